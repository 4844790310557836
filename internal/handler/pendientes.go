package handler

import (
	"net/http"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type PendientesHandler struct{ svc service.PendienteService }

func NewPendientesHandler(svc service.PendienteService) *PendientesHandler {
	return &PendientesHandler{svc: svc}
}

// Registrar godoc
// @Summary Registra un servicio o producto realizado sin facturar
// @Tags pendientes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RegistrarPendienteRequest true "Entrada"
// @Success 201 {object} dto.PendienteResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/pendientes [post]
func (h *PendientesHandler) Registrar(c *gin.Context) {
	var req dto.RegistrarPendienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Registrar(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Aprobar godoc
// @Summary Aprueba una entrada pendiente
// @Tags pendientes
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la entrada"
// @Success 200 {object} dto.PendienteResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/pendientes/{id}/aprobar [post]
func (h *PendientesHandler) Aprobar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Aprobar(c.Request.Context(), usuarioID, id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Rechazar godoc
// @Summary Rechaza una entrada pendiente con motivo
// @Tags pendientes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de la entrada"
// @Param body body dto.RechazarPendienteRequest true "Motivo"
// @Success 200 {object} dto.PendienteResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/pendientes/{id}/rechazar [post]
func (h *PendientesHandler) Rechazar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.RechazarPendienteRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Rechazar(c.Request.Context(), usuarioID, id, req.Motivo)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Listar godoc
// @Summary Lista entradas pendientes
// @Tags pendientes
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.PendienteResponse
// @Router /v1/pendientes [get]
func (h *PendientesHandler) Listar(c *gin.Context) {
	var filter dto.PendienteFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resumen godoc
// @Summary Entradas activas agrupadas por cliente y valorizadas
// @Tags pendientes
// @Produce json
// @Security BearerAuth
// @Param cliente_id query string false "Cliente"
// @Success 200 {array} dto.ResumenPendientesCliente
// @Router /v1/pendientes/resumen [get]
func (h *PendientesHandler) Resumen(c *gin.Context) {
	var clienteID *uuid.UUID
	if raw := c.Query("cliente_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("cliente_id inválido"))
			return
		}
		clienteID = &id
	}
	resp, err := h.svc.ResumenPorCliente(c.Request.Context(), clienteID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
