//go:build integration

package router_test

// Runs the ledger against real Postgres and Redis via testcontainers.
// go test -tags integration ./internal/router/...

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/alejo0789/agenda-ia-sub000/internal/config"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/middleware"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"
	"github.com/alejo0789/agenda-ia-sub000/internal/router"
	"github.com/alejo0789/agenda-ia-sub000/internal/worker"
)

func TestIntegracion_VentaYComprobante(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("salon_test"),
		tcPostgres.WithUsername("salon"),
		tcPostgres.WithPassword("salon"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(context.Background()) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:            "test",
		JWTSecret:      secret,
		DatabaseURL:    pgURL,
		AutoMigrate:    true,
		MaxOpenConns:   10,
		RedisURL:       rdURL,
		PDFStoragePath: t.TempDir(),
		NegocioNombre:  "Salón E2E",
	}
	db, err := infra.NewDatabase(cfg)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	require.NoError(t, db.Create(&model.Sede{ID: 1, Nombre: "Principal", EsDevolucion: true, Activa: true}).Error)
	efectivo := model.MetodoPago{Codigo: "efectivo", Nombre: "Efectivo", EsEfectivo: true, Activo: true}
	require.NoError(t, db.Create(&efectivo).Error)
	require.NoError(t, db.Create(&[]model.Configuracion{
		{Clave: model.ConfigPrefijoFactura, Valor: "FV"},
		{Clave: model.ConfigSiguienteNumero, Valor: "1"},
		{Clave: model.ConfigTasaImpuesto, Valor: "19"},
		{Clave: model.ConfigVentanaAnulacion, Valor: "1"},
	}).Error)
	corte := model.Servicio{Nombre: "Corte", Precio: decimal.NewFromInt(30000)}
	require.NoError(t, db.Create(&corte).Error)

	dispatcher := worker.NewDispatcher(rdb)
	worker.StartWorkerPool(ctx, rdb, &worker.WorkerHandlers{
		Comprobante: worker.NewComprobanteWorker(
			repository.NewFacturaRepository(db),
			repository.NewCatalogoRepository(db),
			repository.NewComprobanteRepository(db),
			infra.NewLocker(rdb), dispatcher, cfg.PDFStoragePath, cfg.NegocioNombre,
		),
	}, 2)

	gin.SetMode(gin.TestMode)
	a := &api{t: t, engine: router.New(cfg, router.Deps{DB: db, RDB: rdb, Dispatcher: dispatcher})}
	cajero := token(t, middleware.RolCajero)

	w := a.do(http.MethodPost, "/v1/caja/abrir", cajero, map[string]interface{}{"sede_id": 1, "monto_inicial": "0"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/v1/facturas", cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{{Tipo: string(model.LineaServicio), ItemID: corte.ID, Cantidad: 1}},
		Pagos:  []dto.PagoRequest{{MetodoPagoID: efectivo.ID, Monto: decimal.NewFromInt(30000)}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var factura dto.FacturaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &factura))
	assert.Equal(t, "FV-000001", factura.Numero)

	require.Eventually(t, func() bool {
		w := a.do(http.MethodGet, "/v1/facturas/"+factura.ID.String()+"/comprobante", cajero, nil)
		if w.Code != http.StatusOK {
			return false
		}
		var comp dto.ComprobanteResponse
		return json.Unmarshal(w.Body.Bytes(), &comp) == nil && comp.Estado == model.ComprobanteGenerado
	}, 20*time.Second, 200*time.Millisecond, "el worker genera el comprobante")

	w = a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// a job nobody handles lands in the dead letter queue
	job, err := json.Marshal(worker.Job{Type: "desconocido", Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, rdb.LPush(ctx, worker.QueueEmail, job).Err())
	require.Eventually(t, func() bool {
		n, err := worker.DLQLength(ctx, rdb, worker.QueueEmail)
		return err == nil && n == 1
	}, 10*time.Second, 100*time.Millisecond)

	supervisor := token(t, middleware.RolSupervisor)
	w = a.do(http.MethodGet, "/v1/comprobantes/fallidos", supervisor, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var colas []dto.ColaFallidosResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &colas))
	for _, c := range colas {
		if c.Cola == worker.QueueEmail {
			assert.EqualValues(t, 1, c.Total)
			require.Len(t, c.Primeros, 1)
			assert.Equal(t, "desconocido", c.Primeros[0].Tipo)
		}
	}

	w = a.do(http.MethodPost, "/v1/comprobantes/fallidos/reencolar", supervisor,
		dto.ReencolarFallidosRequest{Cola: worker.QueueEmail, Cantidad: 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"reencolados":1}`, w.Body.String())
}
