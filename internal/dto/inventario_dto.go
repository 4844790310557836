package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AjusteStockRequest struct {
	ProductoID    uuid.UUID `json:"producto_id"    validate:"required"`
	SedeID        int       `json:"sede_id"        validate:"required,min=1"`
	NuevaCantidad int       `json:"nueva_cantidad" validate:"min=0"`
	Motivo        string    `json:"motivo"         validate:"required,min=3"`
}

type TrasladoRequest struct {
	ProductoID    uuid.UUID `json:"producto_id"     validate:"required"`
	SedeOrigenID  int       `json:"sede_origen_id"  validate:"required,min=1"`
	SedeDestinoID int       `json:"sede_destino_id" validate:"required,min=1,nefield=SedeOrigenID"`
	Cantidad      int       `json:"cantidad"        validate:"required,min=1"`
	Motivo        string    `json:"motivo"`
}

type ConteoItem struct {
	ProductoID uuid.UUID `json:"producto_id" validate:"required"`

	// SedeID overrides the request's sede for this entry
	SedeID   int `json:"sede_id"     validate:"omitempty,min=1"`
	Cantidad int `json:"cantidad"    validate:"min=0"`
}

// ConteoMasivoRequest applies a physical count. SedeID is the default
// location for items that carry none.
type ConteoMasivoRequest struct {
	SedeID int          `json:"sede_id" validate:"omitempty,min=1"`
	Items  []ConteoItem `json:"items"   validate:"required,min=1,dive"`
	Motivo string       `json:"motivo"  validate:"required,min=3"`
}

type CompraRequest struct {
	ProductoID    uuid.UUID        `json:"producto_id"    validate:"required"`
	SedeID        int              `json:"sede_id"        validate:"required,min=1"`
	Cantidad      int              `json:"cantidad"       validate:"required,min=1"`
	CostoUnitario *decimal.Decimal `json:"costo_unitario" validate:"omitempty,min=0"`
	Referencia    string           `json:"referencia"`
	Motivo        string           `json:"motivo"`
}

type SalidaRequest struct {
	ProductoID uuid.UUID `json:"producto_id" validate:"required"`
	SedeID     int       `json:"sede_id"     validate:"required,min=1"`
	Tipo       string    `json:"tipo"        validate:"required,oneof=uso_interno merma muestra donacion"`
	Cantidad   int       `json:"cantidad"    validate:"required,min=1"`
	Motivo     string    `json:"motivo"      validate:"required,min=3"`
}

// DescuentoStockRequest takes stock out across sedes, lowest sede id first.
type DescuentoStockRequest struct {
	ProductoID uuid.UUID  `json:"producto_id" validate:"required"`
	Cantidad   int        `json:"cantidad"    validate:"required,min=1"`
	FacturaID  *uuid.UUID `json:"factura_id"`
	Referencia string     `json:"referencia"`
	Motivo     string     `json:"motivo"      validate:"required,min=3"`
}

// DevolucionStockRequest puts stock back. With a factura it returns to the
// sedes that invoice drew from; otherwise to SedeID or the returns sede.
type DevolucionStockRequest struct {
	ProductoID uuid.UUID  `json:"producto_id" validate:"required"`
	Cantidad   int        `json:"cantidad"    validate:"required,min=1"`
	SedeID     *int       `json:"sede_id"     validate:"omitempty,min=1"`
	FacturaID  *uuid.UUID `json:"factura_id"`
	Referencia string     `json:"referencia"`
	Motivo     string     `json:"motivo"      validate:"required,min=3"`
}

type AnularMovimientoRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5"`
}

// MovimientoFilter is bound from query string of GET /v1/inventario/movimientos.
type MovimientoFilter struct {
	ProductoID string `form:"producto_id" validate:"omitempty,uuid"`
	SedeID     int    `form:"sede_id"`
	Tipo       string `form:"tipo"`
	FacturaID  string `form:"factura_id"  validate:"omitempty,uuid"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoInventarioResponse struct {
	ID                   uuid.UUID        `json:"id"`
	ProductoID           uuid.UUID        `json:"producto_id"`
	Tipo                 string           `json:"tipo"`
	Cantidad             int              `json:"cantidad"`
	SedeOrigenID         *int             `json:"sede_origen_id"`
	SedeDestinoID        *int             `json:"sede_destino_id"`
	CostoUnitario        *decimal.Decimal `json:"costo_unitario"`
	CostoTotal           *decimal.Decimal `json:"costo_total"`
	Motivo               string           `json:"motivo"`
	Referencia           string           `json:"referencia"`
	FacturaID            *uuid.UUID       `json:"factura_id"`
	RevierteMovimientoID *uuid.UUID       `json:"revierte_movimiento_id"`
	RealizadoPor         uuid.UUID        `json:"realizado_por"`
	CreatedAt            time.Time        `json:"created_at"`
}

type StockResponse struct {
	ProductoID uuid.UUID `json:"producto_id"`
	SedeID     int       `json:"sede_id"`
	Cantidad   int       `json:"cantidad"`
}

type AjusteStockResponse struct {
	ProductoID    uuid.UUID                     `json:"producto_id"`
	SedeID        int                           `json:"sede_id"`
	StockAnterior int                           `json:"stock_anterior"`
	StockNuevo    int                           `json:"stock_nuevo"`
	Diferencia    int                           `json:"diferencia"`
	Ajustado      bool                          `json:"ajustado"`
	Movimiento    *MovimientoInventarioResponse `json:"movimiento"`
}

type ConteoMasivoResponse struct {
	SedeID  int                   `json:"sede_id"`
	Ajustes []AjusteStockResponse `json:"ajustes"`
}

type MovimientoListResponse struct {
	Data  []MovimientoInventarioResponse `json:"data"`
	Total int64                          `json:"total"`
	Page  int                            `json:"page"`
	Limit int                            `json:"limit"`
}

// ConsultaPreciosResponse is returned by the public price check endpoint.
type ConsultaPreciosResponse struct {
	ProductoID      uuid.UUID       `json:"producto_id"`
	Nombre          string          `json:"nombre"`
	PrecioVenta     decimal.Decimal `json:"precio_venta"`
	StockDisponible int             `json:"stock_disponible"`
}
