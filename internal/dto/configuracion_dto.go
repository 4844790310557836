package dto

type ConfiguracionRequest struct {
	Valor string `json:"valor" validate:"required"`
}

type ConfiguracionResponse struct {
	Clave string `json:"clave"`
	Valor string `json:"valor"`
}
