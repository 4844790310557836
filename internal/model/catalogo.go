package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Catalog read models. Their CRUD belongs to the back-office; this engine only
// reads them and flips Cita.Estado when an appointment is invoiced.

const (
	ComisionPorcentaje = "porcentaje"
	ComisionFijo       = "fijo"

	CitaCompletada = "completada"
)

// Sede is a physical location holding stock and a cash register.
// Ids are small integers so "ascending sede order" is a natural ordering.
type Sede struct {
	ID     int    `gorm:"primaryKey;autoIncrement"`
	Nombre string `gorm:"not null"`
	// EsDevolucion marks the default location for returns with no origin
	EsDevolucion bool `gorm:"not null;default:false"`
	Activa       bool `gorm:"not null;default:true"`
}

func (Sede) TableName() string { return "sedes" }

type Servicio struct {
	ID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Nombre string          `gorm:"not null"`
	Precio decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Default commission; nil tipo means the service pays no commission
	ComisionTipo  *string          `gorm:"type:varchar(20)"`
	ComisionValor *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Activo        bool             `gorm:"not null;default:true"`
	CreatedAt     time.Time
}

func (Servicio) TableName() string { return "servicios" }

func (s *Servicio) BeforeCreate(*gorm.DB) error {
	asignarID(&s.ID)
	return nil
}

type Producto struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CodigoBarras *string         `gorm:"uniqueIndex"`
	Nombre       string          `gorm:"index;not null"`
	PrecioCosto  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// ComisionPct is applied on the gross line amount (price x quantity)
	ComisionPct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Activo      bool            `gorm:"not null;default:true"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Producto) TableName() string { return "productos" }

func (p *Producto) BeforeCreate(*gorm.DB) error {
	asignarID(&p.ID)
	return nil
}

// ComisionEspecialista overrides a service's default commission for one specialist.
type ComisionEspecialista struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	EspecialistaID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_comision_especialista_servicio"`
	ServicioID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_comision_especialista_servicio"`
	Tipo           string          `gorm:"type:varchar(20);not null"`
	Valor          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (ComisionEspecialista) TableName() string { return "comisiones_especialista" }

func (c *ComisionEspecialista) BeforeCreate(*gorm.DB) error {
	asignarID(&c.ID)
	return nil
}

type Cita struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ClienteID *uuid.UUID `gorm:"type:uuid;index"`
	Estado    string     `gorm:"type:varchar(20);not null"`
	UpdatedAt time.Time
}

func (Cita) TableName() string { return "citas" }

func (c *Cita) BeforeCreate(*gorm.DB) error {
	asignarID(&c.ID)
	return nil
}
