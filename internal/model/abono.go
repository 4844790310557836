package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	AbonoDisponible = "disponible"
	AbonoAgotado    = "agotado"
	AbonoAnulado    = "anulado"
)

// Abono is a client's prepaid store credit.
// 0 <= SaldoDisponible <= MontoOriginal; SaldoDisponible == 0 iff agotado.
type Abono struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ClienteID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	MontoOriginal   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaldoDisponible decimal.Decimal `gorm:"type:decimal(12,2);not null;check:chk_abono_saldo,saldo_disponible >= 0"`
	CitaID          *uuid.UUID      `gorm:"type:uuid"`
	MetodoPagoID    uuid.UUID       `gorm:"type:uuid;not null"`
	Referencia      *string
	Estado          string `gorm:"type:varchar(20);not null;index"`
	Memo            string
	CreadoPor       uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt       time.Time
	AnuladoPor      *uuid.UUID `gorm:"type:uuid"`
	AnuladoAt       *time.Time
	MotivoAnulacion *string

	Redenciones []RedencionAbono `gorm:"foreignKey:AbonoID"`
}

func (Abono) TableName() string { return "abonos" }

func (a *Abono) BeforeCreate(*gorm.DB) error {
	asignarID(&a.ID)
	return nil
}

// RedencionAbono records credit applied to an invoice. Append-only.
type RedencionAbono struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	AbonoID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	FacturaID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	Monto      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AplicadoAt time.Time       `gorm:"not null"`
}

func (RedencionAbono) TableName() string { return "redenciones_abono" }

func (r *RedencionAbono) BeforeCreate(*gorm.DB) error {
	asignarID(&r.ID)
	return nil
}
