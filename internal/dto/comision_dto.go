package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComisionReporteFilter is bound from query string of GET /v1/comisiones/reporte.
type ComisionReporteFilter struct {
	EspecialistaID string `form:"especialista_id" validate:"required,uuid"`
	Desde          string `form:"desde"           validate:"required,datetime=2006-01-02"`
	Hasta          string `form:"hasta"           validate:"required,datetime=2006-01-02"`
}

type ComisionReporteLinea struct {
	FacturaID        uuid.UUID       `json:"factura_id"`
	LineaID          uuid.UUID       `json:"linea_id"`
	Tipo             string          `json:"tipo"`
	ItemID           uuid.UUID       `json:"item_id"`
	Cantidad         int             `json:"cantidad"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	MontoRegistrado  decimal.Decimal `json:"monto_registrado"`
	MontoRecalculado decimal.Decimal `json:"monto_recalculado"`
	EmitidaAt        time.Time       `json:"emitida_at"`
}

type ComisionReporteResponse struct {
	EspecialistaID  uuid.UUID              `json:"especialista_id"`
	Desde           time.Time              `json:"desde"`
	Hasta           time.Time              `json:"hasta"`
	Lineas          []ComisionReporteLinea `json:"lineas"`
	TotalRegistrado decimal.Decimal        `json:"total_registrado"`
	Total           decimal.Decimal        `json:"total"`
}
