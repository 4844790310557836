package handler

import (
	"net/http"

	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type AbonosHandler struct{ svc service.AbonoService }

func NewAbonosHandler(svc service.AbonoService) *AbonosHandler { return &AbonosHandler{svc: svc} }

// Emitir godoc
// @Summary Registra un abono (credito prepagado) de un cliente
// @Tags abonos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.EmitirAbonoRequest true "Abono"
// @Success 201 {object} dto.AbonoResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/abonos [post]
func (h *AbonosHandler) Emitir(c *gin.Context) {
	var req dto.EmitirAbonoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Emitir(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListarDisponibles godoc
// @Summary Abonos con saldo de un cliente, mas antiguos primero
// @Tags abonos
// @Produce json
// @Security BearerAuth
// @Param cliente_id path string true "Cliente"
// @Success 200 {array} dto.AbonoResponse
// @Router /v1/clientes/{cliente_id}/abonos [get]
func (h *AbonosHandler) ListarDisponibles(c *gin.Context) {
	clienteID, ok := paramUUID(c, "cliente_id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarDisponibles(c.Request.Context(), clienteID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Obtener godoc
// @Summary Detalle de un abono con sus redenciones
// @Tags abonos
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del abono"
// @Success 200 {object} dto.AbonoResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/abonos/{id} [get]
func (h *AbonosHandler) Obtener(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Obtener(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Redimir godoc
// @Summary Aplica saldo de un abono a una orden pendiente
// @Tags abonos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del abono"
// @Param body body dto.RedimirAbonoRequest true "Redencion"
// @Success 201 {object} dto.RedencionResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/abonos/{id}/redimir [post]
func (h *AbonosHandler) Redimir(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RedimirAbonoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Redimir(c.Request.Context(), id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Anular godoc
// @Summary Anula un abono sin redenciones
// @Tags abonos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del abono"
// @Param body body dto.AnularAbonoRequest true "Motivo"
// @Success 200 {object} dto.AbonoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/abonos/{id}/anular [post]
func (h *AbonosHandler) Anular(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnularAbonoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Anular(c.Request.Context(), usuarioID, id, req.Motivo)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
