package handler

import (
	"net/http"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ComisionesHandler struct{ svc service.ComisionService }

func NewComisionesHandler(svc service.ComisionService) *ComisionesHandler {
	return &ComisionesHandler{svc: svc}
}

// Reporte godoc
// @Summary Comisiones de un especialista sobre facturas pagadas
// @Tags comisiones
// @Produce json
// @Security BearerAuth
// @Param especialista_id query string true "Especialista"
// @Param desde query string true "YYYY-MM-DD"
// @Param hasta query string true "YYYY-MM-DD (inclusive)"
// @Success 200 {object} dto.ComisionReporteResponse
// @Failure 422 {object} apierror.APIError
// @Router /v1/comisiones/reporte [get]
func (h *ComisionesHandler) Reporte(c *gin.Context) {
	var filter dto.ComisionReporteFilter
	if !bindQuery(c, &filter) {
		return
	}
	// validated by bindQuery
	especialistaID := uuid.MustParse(filter.EspecialistaID)
	desde, _ := time.Parse(time.DateOnly, filter.Desde)
	hasta, _ := time.Parse(time.DateOnly, filter.Hasta)

	resp, err := h.svc.Reporte(c.Request.Context(), especialistaID, desde, hasta.AddDate(0, 0, 1))
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
