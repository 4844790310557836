package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	CajaAbierta = "abierta"
	CajaCerrada = "cerrada"

	MovimientoIngreso = "ingreso"
	MovimientoEgreso  = "egreso"
)

// SesionCaja represents the lifecycle of a cash register session at a sede.
// At most one session per sede may be "abierta" (partial unique index).
type SesionCaja struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	SedeID         int              `gorm:"not null;index"`
	AbiertaPor     uuid.UUID        `gorm:"type:uuid;not null"`
	MontoInicial   decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	CerradaPor     *uuid.UUID       `gorm:"type:uuid"`
	MontoDeclarado *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Estado         string           `gorm:"type:varchar(20);not null;default:'abierta'"`
	Observaciones  *string
	OpenedAt       time.Time
	ClosedAt       *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
}

func (SesionCaja) TableName() string { return "sesiones_caja" }

func (s *SesionCaja) BeforeCreate(*gorm.DB) error {
	asignarID(&s.ID)
	return nil
}

// MovimientoCaja is an immutable event in the cash register ledger.
// Movements are never modified or deleted; voids append a compensating entry
// pointing back through RevierteMovimientoID.
type MovimientoCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SesionCajaID uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo         string          `gorm:"type:varchar(10);not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion  string          `gorm:"not null"`
	// EsApertura marks the opening float so reconciliation does not count it twice
	EsApertura           bool       `gorm:"not null;default:false"`
	FacturaID            *uuid.UUID `gorm:"type:uuid;index"`
	MetodoPagoID         *uuid.UUID `gorm:"type:uuid"`
	RevierteMovimientoID *uuid.UUID `gorm:"type:uuid;index"`
	CreadoPor            uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt            time.Time
}

func (MovimientoCaja) TableName() string { return "movimientos_caja" }

func (m *MovimientoCaja) BeforeCreate(*gorm.DB) error {
	asignarID(&m.ID)
	return nil
}
