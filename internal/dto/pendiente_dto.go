package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RegistrarPendienteRequest struct {
	EspecialistaID uuid.UUID  `json:"especialista_id" validate:"required"`
	ClienteID      *uuid.UUID `json:"cliente_id"`
	Tipo           string     `json:"tipo"            validate:"required,oneof=servicio producto"`
	ItemID         uuid.UUID  `json:"item_id"         validate:"required"`
	Cantidad       int        `json:"cantidad"        validate:"required,min=1"`
	FechaServicio  *time.Time `json:"fecha_servicio"`
	Notas          string     `json:"notas"`
}

type RechazarPendienteRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3"`
}

// PendienteFilter is bound from query string of GET /v1/pendientes.
type PendienteFilter struct {
	ClienteID      string `form:"cliente_id"      validate:"omitempty,uuid"`
	EspecialistaID string `form:"especialista_id" validate:"omitempty,uuid"`
	Estado         string `form:"estado"          validate:"omitempty,oneof=pendiente aprobado rechazado facturado"`
}

type PendienteResponse struct {
	ID             uuid.UUID  `json:"id"`
	EspecialistaID uuid.UUID  `json:"especialista_id"`
	ClienteID      *uuid.UUID `json:"cliente_id"`
	Tipo           string     `json:"tipo"`
	ItemID         uuid.UUID  `json:"item_id"`
	Cantidad       int        `json:"cantidad"`
	FechaServicio  time.Time  `json:"fecha_servicio"`
	Estado         string     `json:"estado"`
	RevisadoPor    *uuid.UUID `json:"revisado_por"`
	RevisadoAt     *time.Time `json:"revisado_at"`
	MotivoRechazo  *string    `json:"motivo_rechazo"`
	Notas          string     `json:"notas"`
	FacturaID      *uuid.UUID `json:"factura_id"`
}

type PendienteValorizado struct {
	PendienteResponse
	Nombre         string          `json:"nombre"`
	PrecioUnitario decimal.Decimal `json:"precio_unitario"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

// ResumenPendientesCliente groups active entries of one client; ClienteID nil
// collects walk-in entries.
type ResumenPendientesCliente struct {
	ClienteID *uuid.UUID            `json:"cliente_id"`
	Entradas  []PendienteValorizado `json:"entradas"`
	Total     decimal.Decimal       `json:"total"`
}
