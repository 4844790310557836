package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PendienteEstadoPendiente = "pendiente"
	PendienteEstadoAprobado  = "aprobado"
	PendienteEstadoRechazado = "rechazado"
	PendienteEstadoFacturado = "facturado"
)

// FacturaPendiente is a service or product delivered by a specialist and not
// yet invoiced. FacturaID points at the order that mirrors it, and once
// consumed, at the invoice that billed it.
type FacturaPendiente struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EspecialistaID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ClienteID      *uuid.UUID `gorm:"type:uuid;index"`
	Tipo           TipoLinea  `gorm:"type:varchar(10);not null"`
	ItemID         uuid.UUID  `gorm:"type:uuid;not null"`
	Cantidad       int        `gorm:"not null"`
	FechaServicio  time.Time  `gorm:"not null"`
	Estado         string     `gorm:"type:varchar(20);not null;index"`
	RevisadoPor    *uuid.UUID `gorm:"type:uuid"`
	RevisadoAt     *time.Time
	MotivoRechazo  *string
	Notas          string
	FacturaID      *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt      time.Time
}

func (FacturaPendiente) TableName() string { return "facturas_pendientes" }

func (p *FacturaPendiente) BeforeCreate(*gorm.DB) error {
	asignarID(&p.ID)
	return nil
}

// Activa reports whether the entry can still be invoiced.
func (p FacturaPendiente) Activa() bool {
	return p.Estado == PendienteEstadoPendiente || p.Estado == PendienteEstadoAprobado
}
