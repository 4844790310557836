package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"
	"github.com/alejo0789/agenda-ia-sub000/internal/service"
)

// newTestDB opens a throwaway SQLite file with the full schema. Transactions
// take the write lock on BEGIN so concurrent callers queue up instead of
// failing on lock upgrades.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "pos.db") +
		"?_journal_mode=WAL&_busy_timeout=10000&_txlock=immediate"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// fixture wires every service against one database, the way the router does.
type fixture struct {
	db *gorm.DB

	catalogoRepo repository.CatalogoRepository
	facturaRepo  repository.FacturaRepository
	invRepo      repository.InventarioRepository
	cajaRepo     repository.CajaRepository
	pendRepo     repository.PendienteRepository

	config     service.ConfiguracionService
	metodos    service.MetodoPagoService
	caja       service.CajaService
	inventario service.InventarioService
	comisiones service.ComisionService
	abonos     service.AbonoService
	pendientes service.PendienteService
	facturas   service.FacturaService

	cajero   uuid.UUID
	efectivo model.MetodoPago
	tarjeta  model.MetodoPago
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{db: db, cajero: uuid.New()}

	f.catalogoRepo = repository.NewCatalogoRepository(db)
	f.facturaRepo = repository.NewFacturaRepository(db)
	f.invRepo = repository.NewInventarioRepository(db)
	f.cajaRepo = repository.NewCajaRepository(db)
	f.pendRepo = repository.NewPendienteRepository(db)
	abonoRepo := repository.NewAbonoRepository(db)

	f.config = service.NewConfiguracionService(repository.NewConfiguracionRepository(db))
	f.metodos = service.NewMetodoPagoService(repository.NewMetodoPagoRepository(db))
	f.caja = service.NewCajaService(f.cajaRepo)
	f.inventario = service.NewInventarioService(f.invRepo, f.catalogoRepo)
	f.comisiones = service.NewComisionService(f.catalogoRepo, f.facturaRepo)
	f.abonos = service.NewAbonoService(abonoRepo, f.facturaRepo, f.metodos)
	f.pendientes = service.NewPendienteService(f.pendRepo, f.catalogoRepo)
	f.facturas = service.NewFacturaService(service.FacturaDeps{
		Repo:           f.facturaRepo,
		Catalogo:       f.catalogoRepo,
		Abonos:         abonoRepo,
		PendientesRepo: f.pendRepo,
		Config:         f.config,
		Metodos:        f.metodos,
		Caja:           f.caja,
		Inventario:     f.inventario,
		Comisiones:     f.comisiones,
		AbonoSvc:       f.abonos,
		Pendientes:     f.pendientes,
	})

	require.NoError(t, db.Create(&[]model.Sede{
		{ID: 1, Nombre: "Principal", EsDevolucion: true},
		{ID: 2, Nombre: "Sucursal Norte"},
	}).Error)
	f.efectivo = model.MetodoPago{Codigo: "efectivo", Nombre: "Efectivo", EsEfectivo: true}
	f.tarjeta = model.MetodoPago{Codigo: "tarjeta_debito", Nombre: "Tarjeta débito", RequiereReferencia: true}
	require.NoError(t, db.Create(&f.efectivo).Error)
	require.NoError(t, db.Create(&f.tarjeta).Error)
	require.NoError(t, db.Create(&[]model.Configuracion{
		{Clave: model.ConfigPrefijoFactura, Valor: "FV"},
		{Clave: model.ConfigTasaImpuesto, Valor: "19"},
		{Clave: model.ConfigVentanaAnulacion, Valor: "1"},
	}).Error)
	return f
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func assertKind(t *testing.T, err error, kind apierror.Kind) {
	t.Helper()
	require.Error(t, err)
	got, ok := apierror.KindOf(err)
	require.True(t, ok, "expected a typed error, got %v", err)
	assert.Equal(t, kind, got, err.Error())
}

func (f *fixture) producto(t *testing.T, precio string, stock map[int]int) model.Producto {
	t.Helper()
	p := model.Producto{Nombre: "Shampoo " + uuid.NewString()[:8], PrecioVenta: dec(precio), ComisionPct: dec("10")}
	require.NoError(t, f.db.Create(&p).Error)
	for sede, cantidad := range stock {
		require.NoError(t, f.db.Create(&model.StockSede{ProductoID: p.ID, SedeID: sede, Cantidad: cantidad}).Error)
	}
	return p
}

func (f *fixture) servicio(t *testing.T, precio string, tipo *string, valor *decimal.Decimal) model.Servicio {
	t.Helper()
	s := model.Servicio{Nombre: "Corte " + uuid.NewString()[:8], Precio: dec(precio), ComisionTipo: tipo, ComisionValor: valor}
	require.NoError(t, f.db.Create(&s).Error)
	return s
}

func (f *fixture) abrirCaja(t *testing.T, sedeID int, inicial string) *dto.SesionCajaResponse {
	t.Helper()
	s, err := f.caja.Abrir(context.Background(), f.cajero, dto.AbrirCajaRequest{SedeID: sedeID, MontoInicial: dec(inicial)})
	require.NoError(t, err)
	return s
}

func (f *fixture) stock(t *testing.T, productoID uuid.UUID, sedeID int) int {
	t.Helper()
	n, err := f.invRepo.GetStock(context.Background(), nil, productoID, sedeID)
	require.NoError(t, err)
	return n
}

func (f *fixture) pagoEfectivo(monto string) []dto.PagoRequest {
	return []dto.PagoRequest{{MetodoPagoID: f.efectivo.ID, Monto: dec(monto)}}
}

func lineaProducto(p model.Producto, cantidad int) dto.LineaFacturaRequest {
	return dto.LineaFacturaRequest{Tipo: string(model.LineaProducto), ItemID: p.ID, Cantidad: cantidad}
}

func lineaServicio(s model.Servicio, especialista uuid.UUID) dto.LineaFacturaRequest {
	return dto.LineaFacturaRequest{Tipo: string(model.LineaServicio), ItemID: s.ID, Cantidad: 1, EspecialistaID: &especialista}
}
