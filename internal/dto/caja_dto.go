package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	SedeID        int             `json:"sede_id"       validate:"required,min=1"`
	MontoInicial  decimal.Decimal `json:"monto_inicial" validate:"min=0"`
	Observaciones *string         `json:"observaciones"`
}

type CerrarCajaRequest struct {
	MontoDeclarado *decimal.Decimal `json:"monto_declarado" validate:"omitempty,min=0"`
	Observaciones  *string          `json:"observaciones"`
}

type MovimientoCajaRequest struct {
	SesionCajaID uuid.UUID       `json:"sesion_caja_id" validate:"required"`
	Tipo         string          `json:"tipo"           validate:"required,oneof=ingreso egreso"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	Descripcion  string          `json:"descripcion"    validate:"required,min=3"`
	MetodoPagoID *uuid.UUID      `json:"metodo_pago_id"`
}

// CajaHistorialFilter is bound from query string of GET /v1/caja/historial.
type CajaHistorialFilter struct {
	SedeID int `form:"sede_id"`
	Page   int `form:"page,default=1"   validate:"min=1"`
	Limit  int `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SesionCajaResponse struct {
	ID             uuid.UUID        `json:"id"`
	SedeID         int              `json:"sede_id"`
	AbiertaPor     uuid.UUID        `json:"abierta_por"`
	MontoInicial   decimal.Decimal  `json:"monto_inicial"`
	Estado         string           `json:"estado"`
	MontoDeclarado *decimal.Decimal `json:"monto_declarado"`
	CerradaPor     *uuid.UUID       `json:"cerrada_por"`
	Observaciones  *string          `json:"observaciones"`
	OpenedAt       time.Time        `json:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at"`
}

type MovimientoCajaResponse struct {
	ID                   uuid.UUID       `json:"id"`
	SesionCajaID         uuid.UUID       `json:"sesion_caja_id"`
	Tipo                 string          `json:"tipo"`
	Monto                decimal.Decimal `json:"monto"`
	Descripcion          string          `json:"descripcion"`
	EsApertura           bool            `json:"es_apertura"`
	FacturaID            *uuid.UUID      `json:"factura_id"`
	MetodoPagoID         *uuid.UUID      `json:"metodo_pago_id"`
	RevierteMovimientoID *uuid.UUID      `json:"revierte_movimiento_id"`
	CreatedAt            time.Time       `json:"created_at"`
}

type DesvioResponse struct {
	Monto         decimal.Decimal `json:"monto"`
	Porcentaje    decimal.Decimal `json:"porcentaje"`
	Clasificacion string          `json:"clasificacion"` // normal | advertencia | critico
}

type ConciliacionCajaResponse struct {
	SesionCajaID   uuid.UUID        `json:"sesion_caja_id"`
	Estado         string           `json:"estado"`
	MontoInicial   decimal.Decimal  `json:"monto_inicial"`
	TotalIngresos  decimal.Decimal  `json:"total_ingresos"`
	TotalEgresos   decimal.Decimal  `json:"total_egresos"`
	MontoTeorico   decimal.Decimal  `json:"monto_teorico"`
	MontoDeclarado *decimal.Decimal `json:"monto_declarado"`
	Desvio         *DesvioResponse  `json:"desvio"`
	Movimientos    int              `json:"movimientos"`
}

type CajaHistorialResponse struct {
	Data  []SesionCajaResponse `json:"data"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}
