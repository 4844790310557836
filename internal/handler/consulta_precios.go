package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Stock moves with every sale, so the cached answer is kept short.
const precioCacheTTL = time.Minute

// ConsultaPreciosHandler serves the front-desk price check. It has no side
// effects.
type ConsultaPreciosHandler struct {
	catalogo   repository.CatalogoRepository
	inventario service.InventarioService
	rdb        *redis.Client
}

func NewConsultaPreciosHandler(catalogo repository.CatalogoRepository, inventario service.InventarioService, rdb *redis.Client) *ConsultaPreciosHandler {
	return &ConsultaPreciosHandler{catalogo: catalogo, inventario: inventario, rdb: rdb}
}

// GetPrecioPorBarcode godoc
// @Summary Consulta de precio y stock total por codigo de barras
// @Tags precio
// @Produce json
// @Param barcode path string true "Codigo de barras"
// @Success 200 {object} dto.ConsultaPreciosResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/precio/{barcode} [get]
func (h *ConsultaPreciosHandler) GetPrecioPorBarcode(c *gin.Context) {
	barcode := c.Param("barcode")
	ctx := c.Request.Context()
	cacheKey := "precio:" + barcode

	if h.rdb != nil {
		if cached, err := h.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var resp dto.ConsultaPreciosResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				c.JSON(http.StatusOK, resp)
				return
			}
		}
	}

	producto, err := h.catalogo.FindProductoPorCodigo(ctx, barcode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, apierror.New("Producto no encontrado"))
			return
		}
		_ = c.Error(err)
		return
	}
	stock, err := h.inventario.Disponible(ctx, producto.ID)
	if err != nil {
		responderError(c, err)
		return
	}

	resp := dto.ConsultaPreciosResponse{
		ProductoID:      producto.ID,
		Nombre:          producto.Nombre,
		PrecioVenta:     producto.PrecioVenta,
		StockDisponible: stock,
	}

	if h.rdb != nil {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			if setErr := h.rdb.Set(context.Background(), cacheKey, b, precioCacheTTL).Err(); setErr != nil {
				log.Debug().Err(setErr).Str("barcode", barcode).Msg("consulta precios: cache no disponible")
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
