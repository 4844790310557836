package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alejo0789/agenda-ia-sub000/internal/config"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/middleware"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/router"
)

const secret = "test-secret"

type api struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := &config.Config{Env: "test", JWTSecret: secret}
	return &api{t: t, engine: router.New(cfg, router.Deps{DB: db}), db: db}
}

func token(t *testing.T, rol string) string {
	t.Helper()
	claims := middleware.JWTClaims{
		UserID:   uuid.NewString(),
		Username: "ana",
		Rol:      rol,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (a *api) do(method, path, tok string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func TestHealth_SinRedis(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "error", body["redis"])
	assert.Equal(t, "disabled", body["smtp"])
}

func TestAuth(t *testing.T) {
	a := newAPI(t)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/caja/abierta?sede_id=1", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/v1/caja/abierta?sede_id=1", "no-es-un-token", nil).Code)
	assert.Equal(t, http.StatusForbidden,
		a.do(http.MethodGet, "/v1/caja/abierta?sede_id=1", token(t, middleware.RolEspecialista), nil).Code)
	assert.Equal(t, http.StatusForbidden,
		a.do(http.MethodGet, "/v1/configuracion", token(t, middleware.RolCajero), nil).Code)
}

func TestCaja_FlujoHTTP(t *testing.T) {
	a := newAPI(t)
	cajero := token(t, middleware.RolCajero)

	w := a.do(http.MethodGet, "/v1/caja/abierta?sede_id=1", cajero, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodPost, "/v1/caja/abrir", cajero, map[string]interface{}{"sede_id": 1, "monto_inicial": "50000"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var sesion dto.SesionCajaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sesion))

	w = a.do(http.MethodPost, "/v1/caja/abrir", cajero, map[string]interface{}{"sede_id": 1, "monto_inicial": "0"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/v1/caja/movimientos", cajero, map[string]interface{}{
		"sesion_caja_id": sesion.ID, "tipo": "retiro", "monto": "1000", "descripcion": "cambio",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, "/v1/caja/movimientos", cajero, map[string]interface{}{
		"sesion_caja_id": uuid.New(), "tipo": "egreso", "monto": "1000", "descripcion": "cambio",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodPost, "/v1/caja/movimientos", cajero, map[string]interface{}{
		"sesion_caja_id": sesion.ID, "tipo": "egreso", "monto": "8000", "descripcion": "compra de toallas",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/v1/caja/"+sesion.ID.String()+"/cerrar", cajero, map[string]interface{}{"monto_declarado": "42000"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/v1/caja/"+sesion.ID.String()+"/cerrar", cajero, map[string]interface{}{"monto_declarado": "42000"})
	assert.Equal(t, http.StatusConflict, w.Code, "cerrar dos veces es un estado inválido")

	w = a.do(http.MethodGet, "/v1/caja/"+sesion.ID.String()+"/conciliacion", cajero, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var conc dto.ConciliacionCajaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conc))
	assert.True(t, conc.MontoTeorico.Equal(decimal.NewFromInt(42000)), conc.MontoTeorico.String())
	require.NotNil(t, conc.Desvio)
	assert.True(t, conc.Desvio.Monto.IsZero())
	assert.Equal(t, "normal", conc.Desvio.Clasificacion)

	w = a.do(http.MethodGet, "/v1/caja/no-uuid/conciliacion", cajero, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConfiguracion_ClaveDesconocida(t *testing.T) {
	a := newAPI(t)
	admin := token(t, middleware.RolAdministrador)

	w := a.do(http.MethodPut, "/v1/configuracion/factura.color", admin, map[string]string{"valor": "azul"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = a.do(http.MethodGet, "/v1/configuracion", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestConsultaPrecios_NoEncontrado(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/v1/precio/7790001", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/facturas", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestComprobantesFallidos_SinCola(t *testing.T) {
	a := newAPI(t)
	w := a.do(http.MethodGet, "/v1/comprobantes/fallidos", token(t, middleware.RolSupervisor), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/v1/comprobantes/fallidos/reencolar", token(t, middleware.RolSupervisor),
		map[string]interface{}{"cola": "jobs:otra", "cantidad": 1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestInventario_DescuentoYDevolucionDirectos(t *testing.T) {
	a := newAPI(t)
	require.NoError(t, a.db.Create(&[]model.Sede{
		{ID: 1, Nombre: "Principal", EsDevolucion: true, Activa: true},
		{ID: 2, Nombre: "Norte", Activa: true},
	}).Error)
	p := model.Producto{Nombre: "Tinte", PrecioVenta: decimal.NewFromInt(15000)}
	require.NoError(t, a.db.Create(&p).Error)
	require.NoError(t, a.db.Create(&[]model.StockSede{
		{ProductoID: p.ID, SedeID: 1, Cantidad: 1},
		{ProductoID: p.ID, SedeID: 2, Cantidad: 2},
	}).Error)
	supervisor := token(t, middleware.RolSupervisor)

	body := dto.DescuentoStockRequest{ProductoID: p.ID, Cantidad: 2, Motivo: "consumo de cabina"}
	w := a.do(http.MethodPost, "/v1/inventario/descuentos", token(t, middleware.RolCajero), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodPost, "/v1/inventario/descuentos", supervisor, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var movs []dto.MovimientoInventarioResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movs))
	require.Len(t, movs, 2)
	assert.Equal(t, 1, *movs[0].SedeOrigenID)
	assert.Equal(t, 2, *movs[1].SedeOrigenID)

	body.Cantidad = 5
	w = a.do(http.MethodPost, "/v1/inventario/descuentos", supervisor, body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, "/v1/inventario/devoluciones", supervisor,
		dto.DevolucionStockRequest{ProductoID: p.ID, Cantidad: 1, Motivo: "cliente devolvió"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &movs))
	require.Len(t, movs, 1)
	assert.Equal(t, 1, *movs[0].SedeDestinoID)

	var stock model.StockSede
	require.NoError(t, a.db.Where("producto_id = ? AND sede_id = ?", p.ID, 1).First(&stock).Error)
	assert.Equal(t, 1, stock.Cantidad)
}
