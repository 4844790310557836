package router

import (
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/config"
	"github.com/alejo0789/agenda-ia-sub000/internal/handler"
	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/middleware"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"
	"github.com/alejo0789/agenda-ia-sub000/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the infrastructure pieces built once in main and shared with the
// worker pool.
type Deps struct {
	DB         *gorm.DB
	RDB        *redis.Client
	Mailer     *infra.Mailer
	Dispatcher *worker.Dispatcher
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(d.RDB, 1000, time.Minute)) // 1000 req/min per IP

	db := d.DB

	// ── Repositories ─────────────────────────────────────────────────────────
	catalogoRepo := repository.NewCatalogoRepository(db)
	facturaRepo := repository.NewFacturaRepository(db)
	cajaRepo := repository.NewCajaRepository(db)
	inventarioRepo := repository.NewInventarioRepository(db)
	abonoRepo := repository.NewAbonoRepository(db)
	pendienteRepo := repository.NewPendienteRepository(db)
	metodoPagoRepo := repository.NewMetodoPagoRepository(db)
	configuracionRepo := repository.NewConfiguracionRepository(db)
	comprobanteRepo := repository.NewComprobanteRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	configSvc := service.NewConfiguracionService(configuracionRepo)
	metodosSvc := service.NewMetodoPagoService(metodoPagoRepo)
	cajaSvc := service.NewCajaService(cajaRepo)
	inventarioSvc := service.NewInventarioService(inventarioRepo, catalogoRepo)
	comisionSvc := service.NewComisionService(catalogoRepo, facturaRepo)
	abonoSvc := service.NewAbonoService(abonoRepo, facturaRepo, metodosSvc)
	pendienteSvc := service.NewPendienteService(pendienteRepo, catalogoRepo)
	facturaSvc := service.NewFacturaService(service.FacturaDeps{
		Repo:           facturaRepo,
		Catalogo:       catalogoRepo,
		Abonos:         abonoRepo,
		PendientesRepo: pendienteRepo,
		Config:         configSvc,
		Metodos:        metodosSvc,
		Caja:           cajaSvc,
		Inventario:     inventarioSvc,
		Comisiones:     comisionSvc,
		AbonoSvc:       abonoSvc,
		Pendientes:     pendienteSvc,
		Dispatcher:     d.Dispatcher,
	})
	comprobanteSvc := service.NewComprobanteService(comprobanteRepo, facturaRepo, d.Dispatcher)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(cajaSvc)
	facturasH := handler.NewFacturasHandler(facturaSvc, comprobanteSvc)
	inventarioH := handler.NewInventarioHandler(inventarioSvc)
	pendientesH := handler.NewPendientesHandler(pendienteSvc)
	abonosH := handler.NewAbonosHandler(abonoSvc)
	comisionesH := handler.NewComisionesHandler(comisionSvc)
	configH := handler.NewConfiguracionHandler(configSvc, metodosSvc)
	consultaH := handler.NewConsultaPreciosHandler(catalogoRepo, inventarioSvc, d.RDB)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, d.RDB, d.Mailer))
	r.GET("/v1/precio/:barcode", consultaH.GetPrecioPorBarcode)

	const (
		admin        = middleware.RolAdministrador
		supervisor   = middleware.RolSupervisor
		cajero       = middleware.RolCajero
		especialista = middleware.RolEspecialista
	)
	mostrador := middleware.RequireRole(cajero, supervisor, admin)
	gestion := middleware.RequireRole(supervisor, admin)

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		caja := v1.Group("/caja", mostrador)
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.POST("/:id/cerrar", cajaH.Cerrar)
			caja.POST("/movimientos", cajaH.RegistrarMovimiento)
			caja.GET("/:id/movimientos", cajaH.ListarMovimientos)
			caja.GET("/:id/conciliacion", cajaH.Conciliacion)
			caja.GET("/abierta", cajaH.Abierta)
			caja.GET("/historial", gestion, cajaH.Historial)
		}

		fact := v1.Group("/facturas", mostrador)
		{
			fact.POST("", facturasH.Crear)
			fact.POST("/desde-pendientes", facturasH.FinalizarPendientes)
			fact.GET("", facturasH.Listar)
			fact.GET("/:id", facturasH.Obtener)
			fact.PUT("/:id", gestion, facturasH.Actualizar)
			fact.POST("/:id/anular", gestion, facturasH.Anular)
			fact.GET("/:id/comprobante", facturasH.ObtenerComprobante)
			fact.GET("/:id/comprobante/pdf", facturasH.DescargarPDF)
			fact.POST("/:id/comprobante/reintentar", facturasH.ReintentarComprobante)
		}

		ordenes := v1.Group("/ordenes")
		{
			ordenes.POST("", middleware.RequireRole(especialista, cajero, supervisor, admin), facturasH.CrearOrden)
			ordenes.POST("/:id/finalizar", mostrador, facturasH.FinalizarOrden)
		}

		pend := v1.Group("/pendientes")
		{
			pend.POST("", middleware.RequireRole(especialista, cajero, supervisor, admin), pendientesH.Registrar)
			pend.GET("", mostrador, pendientesH.Listar)
			pend.GET("/resumen", mostrador, pendientesH.Resumen)
			pend.POST("/:id/aprobar", gestion, pendientesH.Aprobar)
			pend.POST("/:id/rechazar", gestion, pendientesH.Rechazar)
		}

		abonos := v1.Group("/abonos", mostrador)
		{
			abonos.POST("", abonosH.Emitir)
			abonos.GET("/:id", abonosH.Obtener)
			abonos.POST("/:id/redimir", abonosH.Redimir)
			abonos.POST("/:id/anular", gestion, abonosH.Anular)
		}
		v1.GET("/clientes/:cliente_id/abonos", mostrador, abonosH.ListarDisponibles)

		inv := v1.Group("/inventario")
		{
			inv.GET("/stock/:producto_id", mostrador, inventarioH.Stock)
			inv.GET("/movimientos", gestion, inventarioH.ListarMovimientos)
			inv.POST("/ajustes", gestion, inventarioH.Ajustar)
			inv.POST("/traslados", gestion, inventarioH.Trasladar)
			inv.POST("/conteos", gestion, inventarioH.ConteoMasivo)
			inv.POST("/compras", gestion, inventarioH.RegistrarCompra)
			inv.POST("/salidas", gestion, inventarioH.RegistrarSalida)
			inv.POST("/descuentos", gestion, inventarioH.RegistrarDescuento)
			inv.POST("/devoluciones", gestion, inventarioH.RegistrarDevolucion)
			inv.POST("/movimientos/:id/anular", gestion, inventarioH.AnularMovimiento)
		}

		comp := v1.Group("/comprobantes/fallidos", gestion)
		{
			comp.GET("", facturasH.ComprobantesFallidos)
			comp.POST("/reencolar", facturasH.ReencolarComprobantes)
		}

		v1.GET("/comisiones/reporte", gestion, comisionesH.Reporte)

		v1.GET("/metodos-pago", mostrador, configH.ListarMetodosPago)
		conf := v1.Group("/configuracion", middleware.RequireRole(admin))
		{
			conf.GET("", configH.Listar)
			conf.PUT("/:clave", configH.Actualizar)
		}
	}

	// Swagger UI outside production only
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
