package handler

import (
	"net/http"
	"strconv"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una sesion de caja en una sede
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionCajaResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Abrir(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cerrar godoc
// @Summary Cierra una sesion de caja con el monto declarado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Param body body dto.CerrarCajaRequest true "Declaracion de cierre"
// @Success 200 {object} dto.SesionCajaResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/{id}/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), id, usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un ingreso o egreso manual en caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoCajaRequest true "Movimiento manual"
// @Success 201 {object} dto.MovimientoCajaResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/movimientos [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListarMovimientos godoc
// @Summary Lista los movimientos de una sesion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {array} dto.MovimientoCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/movimientos [get]
func (h *CajaHandler) ListarMovimientos(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Conciliacion godoc
// @Summary Conciliacion de una sesion: teorico, declarado y desvio
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ConciliacionCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/conciliacion [get]
func (h *CajaHandler) Conciliacion(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Conciliacion(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Abierta returns the open session of the sede given by ?sede_id=.
func (h *CajaHandler) Abierta(c *gin.Context) {
	sedeID, err := strconv.Atoi(c.Query("sede_id"))
	if err != nil || sedeID < 1 {
		c.JSON(http.StatusBadRequest, apierror.New("sede_id requerido"))
		return
	}
	resp, err := h.svc.ObtenerAbierta(c.Request.Context(), sedeID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Historial returns a paginated list of sessions, newest first.
func (h *CajaHandler) Historial(c *gin.Context) {
	var filter dto.CajaHistorialFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Historial(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
