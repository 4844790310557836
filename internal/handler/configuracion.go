package handler

import (
	"net/http"

	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type ConfiguracionHandler struct {
	config  service.ConfiguracionService
	metodos service.MetodoPagoService
}

func NewConfiguracionHandler(config service.ConfiguracionService, metodos service.MetodoPagoService) *ConfiguracionHandler {
	return &ConfiguracionHandler{config: config, metodos: metodos}
}

// Listar godoc
// @Summary Parametros de facturacion vigentes
// @Tags configuracion
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.ConfiguracionResponse
// @Router /v1/configuracion [get]
func (h *ConfiguracionHandler) Listar(c *gin.Context) {
	resp, err := h.config.Listar(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Actualizar godoc
// @Summary Cambia un parametro de facturacion
// @Tags configuracion
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param clave path string true "Clave"
// @Param body body dto.ConfiguracionRequest true "Nuevo valor"
// @Success 200 {object} dto.ConfiguracionResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/configuracion/{clave} [put]
func (h *ConfiguracionHandler) Actualizar(c *gin.Context) {
	var req dto.ConfiguracionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.config.Actualizar(c.Request.Context(), c.Param("clave"), req.Valor)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMetodosPago godoc
// @Summary Metodos de pago configurados
// @Tags configuracion
// @Produce json
// @Security BearerAuth
// @Param todos query bool false "Incluir inactivos"
// @Success 200 {array} dto.MetodoPagoResponse
// @Router /v1/metodos-pago [get]
func (h *ConfiguracionHandler) ListarMetodosPago(c *gin.Context) {
	resp, err := h.metodos.Listar(c.Request.Context(), c.Query("todos") != "true")
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
