package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	FacturaEstadoPendiente = "pendiente"
	FacturaEstadoPagada    = "pagada"
	FacturaEstadoAnulada   = "anulada"
)

// TipoLinea discriminates what an invoice line sells.
type TipoLinea string

const (
	LineaServicio TipoLinea = "servicio"
	LineaProducto TipoLinea = "producto"
)

// Factura is an invoice. A "pendiente" factura is an order (no register, no
// stock moved); "pagada" and "anulada" are issued invoices. anulada is terminal.
//
// Total == max(0, Subtotal - Descuento) + Impuesto.
type Factura struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Numero         string          `gorm:"type:varchar(30);uniqueIndex;not null"`
	SedeID         int             `gorm:"not null;index"`
	ClienteID      *uuid.UUID      `gorm:"type:uuid;index"`
	EmitidaAt      time.Time       `gorm:"not null;index"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Impuesto       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AplicaImpuesto bool            `gorm:"not null;default:false"`
	Estado         string          `gorm:"type:varchar(20);not null;index"`
	SesionCajaID   *uuid.UUID      `gorm:"type:uuid;index"`
	EmitidaPor     uuid.UUID       `gorm:"type:uuid;not null"`
	Observaciones  *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Lineas      []FacturaLinea   `gorm:"foreignKey:FacturaID"`
	Pagos       []Pago           `gorm:"foreignKey:FacturaID"`
	Redenciones []RedencionAbono `gorm:"foreignKey:FacturaID"`
	Eventos     []FacturaEvento  `gorm:"foreignKey:FacturaID"`
}

func (Factura) TableName() string { return "facturas" }

func (f *Factura) BeforeCreate(*gorm.DB) error {
	asignarID(&f.ID)
	return nil
}

// FacturaLinea is one sold service or product. The commission fields are a
// snapshot taken when the line was priced; reports recompute from the rules.
type FacturaLinea struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FacturaID      uuid.UUID       `gorm:"type:uuid;index;not null"`
	Tipo           TipoLinea       `gorm:"type:varchar(10);not null"`
	ItemID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad       int             `gorm:"not null"`
	PrecioUnitario decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DescuentoLinea decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	EspecialistaID *uuid.UUID      `gorm:"type:uuid;index"`
	CitaID         *uuid.UUID      `gorm:"type:uuid"`
	PendienteID    *uuid.UUID      `gorm:"type:uuid"`
	ComisionTipo   *string         `gorm:"type:varchar(20)"`
	ComisionValor  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ComisionMonto  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt      time.Time
}

func (FacturaLinea) TableName() string { return "factura_lineas" }

func (l *FacturaLinea) BeforeCreate(*gorm.DB) error {
	asignarID(&l.ID)
	return nil
}

type Pago struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey"`
	FacturaID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	MetodoPagoID uuid.UUID       `gorm:"type:uuid;not null"`
	Monto        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Referencia   *string
	PagadoPor    uuid.UUID `gorm:"type:uuid;not null"`
	PagadoAt     time.Time `gorm:"not null"`
}

func (Pago) TableName() string { return "pagos" }

func (p *Pago) BeforeCreate(*gorm.DB) error {
	asignarID(&p.ID)
	return nil
}

// Acciones recorded in the invoice audit log.
const (
	EventoCreada      = "creada"
	EventoPagada      = "pagada"
	EventoEditada     = "editada"
	EventoAnulada     = "anulada"
	EventoReemplazada = "reemplazada"
)

// FacturaEvento is the structured, append-only transition log of an invoice.
type FacturaEvento struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FacturaID uuid.UUID `gorm:"type:uuid;index;not null"`
	Accion    string    `gorm:"type:varchar(20);not null"`
	EstadoDe  string    `gorm:"type:varchar(20)"`
	EstadoA   string    `gorm:"type:varchar(20);not null"`
	Motivo    *string
	UsuarioID uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

func (FacturaEvento) TableName() string { return "factura_eventos" }

func (e *FacturaEvento) BeforeCreate(*gorm.DB) error {
	asignarID(&e.ID)
	return nil
}
