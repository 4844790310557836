package dto

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// FacturaFilter is bound from query string of GET /v1/facturas.
type FacturaFilter struct {
	SedeID    int    `form:"sede_id"`
	ClienteID string `form:"cliente_id" validate:"omitempty,uuid"`
	Estado    string `form:"estado"     validate:"omitempty,oneof=pendiente pagada anulada"`
	Desde     string `form:"desde"      validate:"omitempty,datetime=2006-01-02"`
	Hasta     string `form:"hasta"      validate:"omitempty,datetime=2006-01-02"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type FacturaListResponse struct {
	Data  []FacturaResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LineaFacturaRequest struct {
	Tipo     string    `json:"tipo"     validate:"required,oneof=servicio producto"`
	ItemID   uuid.UUID `json:"item_id"  validate:"required"`
	Cantidad int       `json:"cantidad" validate:"required,min=1"`
	// PrecioUnitario overrides the catalog price when set
	PrecioUnitario *decimal.Decimal `json:"precio_unitario" validate:"omitempty,min=0"`
	Descuento      decimal.Decimal  `json:"descuento"       validate:"min=0"`
	EspecialistaID *uuid.UUID       `json:"especialista_id"`
	CitaID         *uuid.UUID       `json:"cita_id"`
}

type PagoRequest struct {
	MetodoPagoID uuid.UUID       `json:"metodo_pago_id" validate:"required"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	Referencia   *string         `json:"referencia"`
}

type RedencionRequest struct {
	AbonoID uuid.UUID       `json:"abono_id" validate:"required"`
	Monto   decimal.Decimal `json:"monto"    validate:"required,gt=0"`
}

type CrearFacturaRequest struct {
	SedeID           int                   `json:"sede_id"           validate:"required,min=1"`
	ClienteID        *uuid.UUID            `json:"cliente_id"`
	Lineas           []LineaFacturaRequest `json:"lineas"            validate:"required,min=1,dive"`
	DescuentoGeneral decimal.Decimal       `json:"descuento_general" validate:"min=0"`
	AplicaImpuesto   bool                  `json:"aplica_impuesto"`
	Pagos            []PagoRequest         `json:"pagos"             validate:"dive"`
	Redenciones      []RedencionRequest    `json:"redenciones"       validate:"dive"`
	PendienteIDs     []uuid.UUID           `json:"pendiente_ids"`
	Observaciones    *string               `json:"observaciones"`
	// ClienteEmail: optional; when present the receipt worker mails the PDF.
	ClienteEmail *string `json:"cliente_email" validate:"omitempty,email"`
}

type CrearOrdenRequest struct {
	SedeID           int                   `json:"sede_id"           validate:"required,min=1"`
	ClienteID        *uuid.UUID            `json:"cliente_id"`
	Lineas           []LineaFacturaRequest `json:"lineas"            validate:"required,min=1,dive"`
	DescuentoGeneral decimal.Decimal       `json:"descuento_general" validate:"min=0"`
	AplicaImpuesto   bool                  `json:"aplica_impuesto"`
	Observaciones    *string               `json:"observaciones"`
}

type FinalizarOrdenRequest struct {
	Pagos        []PagoRequest      `json:"pagos"       validate:"dive"`
	Redenciones  []RedencionRequest `json:"redenciones" validate:"dive"`
	ClienteEmail *string            `json:"cliente_email" validate:"omitempty,email"`
}

type FinalizarPendientesRequest struct {
	SedeID            int                   `json:"sede_id"            validate:"required,min=1"`
	ClienteID         *uuid.UUID            `json:"cliente_id"`
	PendienteIDs      []uuid.UUID           `json:"pendiente_ids"      validate:"required,min=1"`
	LineasAdicionales []LineaFacturaRequest `json:"lineas_adicionales" validate:"dive"`
	DescuentoGeneral  decimal.Decimal       `json:"descuento_general"  validate:"min=0"`
	AplicaImpuesto    bool                  `json:"aplica_impuesto"`
	Pagos             []PagoRequest         `json:"pagos"              validate:"dive"`
	Redenciones       []RedencionRequest    `json:"redenciones"        validate:"dive"`
	ClienteEmail      *string               `json:"cliente_email"      validate:"omitempty,email"`
}

type AnularFacturaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5"`
}

type ModificarLineaRequest struct {
	LineaID        uuid.UUID        `json:"linea_id"        validate:"required"`
	Cantidad       *int             `json:"cantidad"        validate:"omitempty,min=1"`
	PrecioUnitario *decimal.Decimal `json:"precio_unitario" validate:"omitempty,min=0"`
	Descuento      *decimal.Decimal `json:"descuento"       validate:"omitempty,min=0"`
	EspecialistaID *uuid.UUID       `json:"especialista_id"`
}

type ActualizarFacturaRequest struct {
	Agregar          []LineaFacturaRequest   `json:"agregar"           validate:"dive"`
	Modificar        []ModificarLineaRequest `json:"modificar"         validate:"dive"`
	Eliminar         []uuid.UUID             `json:"eliminar"`
	DescuentoGeneral *decimal.Decimal        `json:"descuento_general" validate:"omitempty,min=0"`
	AplicaImpuesto   *bool                   `json:"aplica_impuesto"`
	// Pagos replaces the payment set of a paid invoice; required when its total changes
	Pagos         []PagoRequest `json:"pagos" validate:"dive"`
	Observaciones *string       `json:"observaciones"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ComisionLineaResponse struct {
	Tipo  *string         `json:"tipo"`
	Valor decimal.Decimal `json:"valor"`
	Monto decimal.Decimal `json:"monto"`
}

type LineaFacturaResponse struct {
	ID             uuid.UUID             `json:"id"`
	Tipo           string                `json:"tipo"`
	ItemID         uuid.UUID             `json:"item_id"`
	Nombre         string                `json:"nombre"`
	Cantidad       int                   `json:"cantidad"`
	PrecioUnitario decimal.Decimal       `json:"precio_unitario"`
	Descuento      decimal.Decimal       `json:"descuento"`
	Subtotal       decimal.Decimal       `json:"subtotal"`
	EspecialistaID *uuid.UUID            `json:"especialista_id"`
	CitaID         *uuid.UUID            `json:"cita_id"`
	PendienteID    *uuid.UUID            `json:"pendiente_id"`
	Comision       ComisionLineaResponse `json:"comision"`
}

type PagoResponse struct {
	ID           uuid.UUID       `json:"id"`
	MetodoPagoID uuid.UUID       `json:"metodo_pago_id"`
	Monto        decimal.Decimal `json:"monto"`
	Referencia   *string         `json:"referencia"`
	PagadoAt     time.Time       `json:"pagado_at"`
}

type RedencionResponse struct {
	ID         uuid.UUID       `json:"id"`
	AbonoID    uuid.UUID       `json:"abono_id"`
	FacturaID  uuid.UUID       `json:"factura_id"`
	Monto      decimal.Decimal `json:"monto"`
	AplicadoAt time.Time       `json:"aplicado_at"`
}

type EventoFacturaResponse struct {
	Accion    string    `json:"accion"`
	EstadoDe  string    `json:"estado_de"`
	EstadoA   string    `json:"estado_a"`
	Motivo    *string   `json:"motivo"`
	UsuarioID uuid.UUID `json:"usuario_id"`
	CreatedAt time.Time `json:"created_at"`
}

type FacturaResponse struct {
	ID              uuid.UUID               `json:"id"`
	Numero          string                  `json:"numero"`
	SedeID          int                     `json:"sede_id"`
	ClienteID       *uuid.UUID              `json:"cliente_id"`
	Estado          string                  `json:"estado"`
	EmitidaAt       time.Time               `json:"emitida_at"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	Descuento       decimal.Decimal         `json:"descuento"`
	Impuesto        decimal.Decimal         `json:"impuesto"`
	Total           decimal.Decimal         `json:"total"`
	SesionCajaID    *uuid.UUID              `json:"sesion_caja_id"`
	Observaciones   *string                 `json:"observaciones"`
	Lineas          []LineaFacturaResponse  `json:"lineas"`
	Pagos           []PagoResponse          `json:"pagos"`
	Redenciones     []RedencionResponse     `json:"redenciones"`
	TotalComisiones decimal.Decimal         `json:"total_comisiones"`
	Eventos         []EventoFacturaResponse `json:"eventos,omitempty"`
}

// ComprobanteResponse describes the printable receipt of an invoice.
type ComprobanteResponse struct {
	ID        uuid.UUID `json:"id"`
	FacturaID uuid.UUID `json:"factura_id"`
	Estado    string    `json:"estado"`
	PDFUrl    *string   `json:"pdf_url,omitempty"`
	EnviadoA  *string   `json:"enviado_a,omitempty"`
	Intentos  int       `json:"intentos"`
	LastError *string   `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrabajoFallidoResponse is one job parked in a dead letter queue.
type TrabajoFallidoResponse struct {
	Tipo     string          `json:"tipo"`
	Payload  json.RawMessage `json:"payload"`
	Motivo   string          `json:"motivo"`
	FalloAt  time.Time       `json:"fallo_at"`
	Intentos int             `json:"intentos"`
}

type ColaFallidosResponse struct {
	Cola     string                   `json:"cola"`
	Total    int64                    `json:"total"`
	Primeros []TrabajoFallidoResponse `json:"primeros"`
}

type ReencolarFallidosRequest struct {
	Cola     string `json:"cola"     validate:"required,oneof=jobs:comprobante jobs:email"`
	Cantidad int    `json:"cantidad" validate:"required,min=1,max=500"`
}
