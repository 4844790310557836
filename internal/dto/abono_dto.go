package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EmitirAbonoRequest struct {
	ClienteID    uuid.UUID       `json:"cliente_id"     validate:"required"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	MetodoPagoID uuid.UUID       `json:"metodo_pago_id" validate:"required"`
	Referencia   *string         `json:"referencia"`
	CitaID       *uuid.UUID      `json:"cita_id"`
	Memo         string          `json:"memo"`
}

type RedimirAbonoRequest struct {
	FacturaID uuid.UUID       `json:"factura_id" validate:"required"`
	Monto     decimal.Decimal `json:"monto"      validate:"required,gt=0"`
}

type AnularAbonoRequest struct {
	Motivo string `json:"motivo" validate:"required,min=5"`
}

type AbonoResponse struct {
	ID              uuid.UUID           `json:"id"`
	ClienteID       uuid.UUID           `json:"cliente_id"`
	MontoOriginal   decimal.Decimal     `json:"monto_original"`
	SaldoDisponible decimal.Decimal     `json:"saldo_disponible"`
	Estado          string              `json:"estado"`
	MetodoPagoID    uuid.UUID           `json:"metodo_pago_id"`
	Referencia      *string             `json:"referencia"`
	CitaID          *uuid.UUID          `json:"cita_id"`
	Memo            string              `json:"memo"`
	CreatedAt       time.Time           `json:"created_at"`
	AnuladoAt       *time.Time          `json:"anulado_at"`
	MotivoAnulacion *string             `json:"motivo_anulacion"`
	Redenciones     []RedencionResponse `json:"redenciones,omitempty"`
}
