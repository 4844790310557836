package dto

import "github.com/google/uuid"

type MetodoPagoResponse struct {
	ID                 uuid.UUID `json:"id"`
	Codigo             string    `json:"codigo"`
	Nombre             string    `json:"nombre"`
	RequiereReferencia bool      `json:"requiere_referencia"`
	EsEfectivo         bool      `json:"es_efectivo"`
	Activo             bool      `json:"activo"`
}
