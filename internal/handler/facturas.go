package handler

import (
	"net/http"

	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type FacturasHandler struct {
	svc          service.FacturaService
	comprobantes service.ComprobanteService
}

func NewFacturasHandler(svc service.FacturaService, comprobantes service.ComprobanteService) *FacturasHandler {
	return &FacturasHandler{svc: svc, comprobantes: comprobantes}
}

// Crear godoc
// @Summary      Emitir una factura pagada
// @Description  Transacción única: descuenta stock, registra el efectivo en caja, aplica abonos, marca pendientes y encola el comprobante.
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearFacturaRequest true "Detalle de la factura"
// @Success      201  {object} dto.FacturaResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/facturas [post]
func (h *FacturasHandler) Crear(c *gin.Context) {
	var req dto.CrearFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// FinalizarPendientes godoc
// @Summary      Facturar entradas pendientes
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.FinalizarPendientesRequest true "Entradas y pagos"
// @Success      201  {object} dto.FacturaResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/facturas/desde-pendientes [post]
func (h *FacturasHandler) FinalizarPendientes(c *gin.Context) {
	var req dto.FinalizarPendientesRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.FinalizarDesdePendientes(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar facturas
// @Tags         facturas
// @Produce      json
// @Security     BearerAuth
// @Param        sede_id    query int    false "Sede"
// @Param        cliente_id query string false "Cliente"
// @Param        estado     query string false "pendiente | pagada | anulada"
// @Param        desde      query string false "YYYY-MM-DD"
// @Param        hasta      query string false "YYYY-MM-DD"
// @Param        page       query int    false "Página"
// @Param        limit      query int    false "Tamaño de página"
// @Success      200  {object} dto.FacturaListResponse
// @Router       /v1/facturas [get]
func (h *FacturasHandler) Listar(c *gin.Context) {
	var filter dto.FacturaFilter
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

// Obtener godoc
// @Summary      Obtener una factura con líneas, pagos, abonos y eventos
// @Tags         facturas
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "UUID de la factura"
// @Success      200  {object} dto.FacturaResponse
// @Failure      404  {object} apierror.APIError
// @Router       /v1/facturas/{id} [get]
func (h *FacturasHandler) Obtener(c *gin.Context) {
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

// Actualizar godoc
// @Summary      Editar líneas, descuento o pagos de una factura
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                       true "UUID de la factura"
// @Param        body body dto.ActualizarFacturaRequest true "Cambios"
// @Success      200  {object} dto.FacturaResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/facturas/{id} [put]
func (h *FacturasHandler) Actualizar(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.ActualizarFacturaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.Actualizar(c.Request.Context(), usuarioID, id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anular godoc
// @Summary      Anular factura
// @Description  Compensa el efectivo en caja y devuelve el stock a las sedes de origen.
// @Tags         facturas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "UUID de la factura"
// @Param        body body dto.AnularFacturaRequest true "Motivo de anulación"
// @Success      200  {object} dto.FacturaResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/facturas/{id}/anular [post]
func (h *FacturasHandler) Anular(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.AnularFacturaRequest
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

// CrearOrden godoc
// @Summary      Crear una orden sin pagar
// @Tags         ordenes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearOrdenRequest true "Detalle de la orden"
// @Success      201  {object} dto.FacturaResponse
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ordenes [post]
func (h *FacturasHandler) CrearOrden(c *gin.Context) {
	var req dto.CrearOrdenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.CrearOrden(c.Request.Context(), usuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// FinalizarOrden godoc
// @Summary      Cobrar una orden pendiente
// @Tags         ordenes
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                    true "UUID de la orden"
// @Param        body body dto.FinalizarOrdenRequest true "Pagos y abonos"
// @Success      200  {object} dto.FacturaResponse
// @Failure      409  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/ordenes/{id}/finalizar [post]
func (h *FacturasHandler) FinalizarOrden(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req dto.FinalizarOrdenRequest
	if !bindAndValidate(c, &req) {
		return
	}
	usuarioID, ok := usuarioActual(c)
	if !ok {
		return
	}
	resp, err := h.svc.FinalizarOrden(c.Request.Context(), usuarioID, id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerComprobante returns the receipt status of an invoice.
func (h *FacturasHandler) ObtenerComprobante(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	resp, err := h.comprobantes.Obtener(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DescargarPDF streams the receipt file.
func (h *FacturasHandler) DescargarPDF(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	path, err := h.comprobantes.ObtenerPDFPath(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.FileAttachment(path, "factura_"+id.String()+".pdf")
}

type reintentarComprobanteRequest struct {
	Email *string `json:"email" validate:"omitempty,email"`
}

// ReintentarComprobante queues the receipt again.
func (h *FacturasHandler) ReintentarComprobante(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req reintentarComprobanteRequest
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	if err := h.comprobantes.Reintentar(c.Request.Context(), id, req.Email); err != nil {
		responderError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// ComprobantesFallidos lists the jobs parked in the receipt dead letter queues.
func (h *FacturasHandler) ComprobantesFallidos(c *gin.Context) {
	resp, err := h.comprobantes.Fallidos(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ReencolarComprobantes moves parked jobs back onto their queue.
func (h *FacturasHandler) ReencolarComprobantes(c *gin.Context) {
	var req dto.ReencolarFallidosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	n, err := h.comprobantes.ReencolarFallidos(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reencolados": n})
}
