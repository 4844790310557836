package handler

import (
	"net/http"
	"strconv"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// Stock godoc
// @Summary Stock de un producto en una sede
// @Tags inventario
// @Produce json
// @Security BearerAuth
// @Param producto_id path string true "ID del producto"
// @Param sede_id query int true "Sede"
// @Success 200 {object} dto.StockResponse
// @Router /v1/inventario/stock/{producto_id} [get]
func (h *InventarioHandler) Stock(c *gin.Context) {
	productoID, ok := paramUUID(c, "producto_id")
	if !ok {
		return
	}
	sedeID, err := strconv.Atoi(c.Query("sede_id"))
	if err != nil || sedeID < 1 {
		c.JSON(http.StatusBadRequest, apierror.New("sede_id requerido"))
		return
	}
	resp, err := h.svc.StockDe(c.Request.Context(), productoID, sedeID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Ajustar godoc
// @Summary Ajuste de stock a una cantidad contada
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AjusteStockRequest true "Ajuste"
// @Success 200 {object} dto.AjusteStockResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/inventario/ajustes [post]
func (h *InventarioHandler) Ajustar(c *gin.Context) {
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Ajustar(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Trasladar godoc
// @Summary Traslado de stock entre sedes
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TrasladoRequest true "Traslado"
// @Success 201 {object} dto.MovimientoInventarioResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/inventario/traslados [post]
func (h *InventarioHandler) Trasladar(c *gin.Context) {
	var req dto.TrasladoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Trasladar(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ConteoMasivo godoc
// @Summary Conteo fisico de varios productos en una sede
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ConteoMasivoRequest true "Conteo"
// @Success 200 {object} dto.ConteoMasivoResponse
// @Router /v1/inventario/conteos [post]
func (h *InventarioHandler) ConteoMasivo(c *gin.Context) {
	var req dto.ConteoMasivoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.ConteoMasivo(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RegistrarCompra godoc
// @Summary Ingreso de mercaderia comprada
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CompraRequest true "Compra"
// @Success 201 {object} dto.MovimientoInventarioResponse
// @Router /v1/inventario/compras [post]
func (h *InventarioHandler) RegistrarCompra(c *gin.Context) {
	var req dto.CompraRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarCompra(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarSalida godoc
// @Summary Salida de stock por consumo interno o merma
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.SalidaRequest true "Salida"
// @Success 201 {object} dto.MovimientoInventarioResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/inventario/salidas [post]
func (h *InventarioHandler) RegistrarSalida(c *gin.Context) {
	var req dto.SalidaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarSalida(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarDescuento godoc
// @Summary Descuenta stock fuera de una factura
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.DescuentoStockRequest true "Descuento"
// @Success 201 {array} dto.MovimientoInventarioResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/inventario/descuentos [post]
func (h *InventarioHandler) RegistrarDescuento(c *gin.Context) {
	var req dto.DescuentoStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarDescuento(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarDevolucion godoc
// @Summary Devuelve stock a las sedes
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.DevolucionStockRequest true "Devolucion"
// @Success 201 {array} dto.MovimientoInventarioResponse
// @Router /v1/inventario/devoluciones [post]
func (h *InventarioHandler) RegistrarDevolucion(c *gin.Context) {
	var req dto.DevolucionStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarDevolucion(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// AnularMovimiento godoc
// @Summary Revierte un movimiento manual de inventario
// @Tags inventario
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID del movimiento"
// @Param body body dto.AnularMovimientoRequest true "Motivo"
// @Success 200 {object} dto.MovimientoInventarioResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/inventario/movimientos/{id}/anular [post]
func (h *InventarioHandler) AnularMovimiento(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnularMovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.AnularMovimiento(c.Request.Context(), usuarioID, id, req.Motivo)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos godoc
// @Summary Lista el libro de movimientos de inventario
// @Tags inventario
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MovimientoListResponse
// @Router /v1/inventario/movimientos [get]
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var filter dto.MovimientoFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
