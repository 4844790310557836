package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
)

func lineaDe(t *testing.T, resp *dto.FacturaResponse, tipo model.TipoLinea) dto.LineaFacturaResponse {
	t.Helper()
	for _, l := range resp.Lineas {
		if l.Tipo == string(tipo) {
			return l
		}
	}
	t.Fatalf("la factura %s no tiene líneas de tipo %s", resp.Numero, tipo)
	return dto.LineaFacturaResponse{}
}

func (f *fixture) movimientosCaja(t *testing.T, sesionID uuid.UUID) []dto.MovimientoCajaResponse {
	t.Helper()
	movs, err := f.caja.ListarMovimientos(context.Background(), sesionID)
	require.NoError(t, err)
	return movs
}

// ── Crear ─────────────────────────────────────────────────────────────────────

func TestFactura_CrearContado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "0")
	p := f.producto(t, "15000", map[int]int{1: 1, 2: 5})
	especialista := uuid.New()
	tipo := model.ComisionPorcentaje
	s := f.servicio(t, "50000", &tipo, decPtr("40"))

	resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaProducto(p, 2), lineaServicio(s, especialista)},
		Pagos:  f.pagoEfectivo("80000"),
	})
	require.NoError(t, err)

	assert.Equal(t, "FV-000001", resp.Numero)
	assert.Equal(t, model.FacturaEstadoPagada, resp.Estado)
	assertDec(t, "80000", resp.Total)
	assertDec(t, "20000", resp.TotalComisiones)
	require.NotNil(t, resp.SesionCajaID)
	assert.Equal(t, sesion.ID, *resp.SesionCajaID)

	serv := lineaDe(t, resp, model.LineaServicio)
	assertDec(t, "20000", serv.Comision.Monto)
	prod := lineaDe(t, resp, model.LineaProducto)
	assert.True(t, prod.Comision.Monto.IsZero(), "sin especialista no hay comisión")

	assert.Equal(t, 0, f.stock(t, p.ID, 1))
	assert.Equal(t, 4, f.stock(t, p.ID, 2))

	movs := f.movimientosCaja(t, sesion.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, model.MovimientoIngreso, movs[0].Tipo)
	assertDec(t, "80000", movs[0].Monto)
	require.NotNil(t, movs[0].FacturaID)
	assert.Equal(t, resp.ID, *movs[0].FacturaID)

	siguiente, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaProducto(p, 1)},
		Pagos:  f.pagoEfectivo("15000"),
	})
	require.NoError(t, err)
	assert.Equal(t, "FV-000002", siguiente.Numero)
}

func TestFactura_CrearConImpuestoYTarjeta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "0")
	s := f.servicio(t, "100000", nil, nil)
	esp := uuid.New()

	req := dto.CrearFacturaRequest{
		SedeID:           1,
		Lineas:           []dto.LineaFacturaRequest{lineaServicio(s, esp)},
		DescuentoGeneral: dec("10000"),
		AplicaImpuesto:   true,
		Pagos:            []dto.PagoRequest{{MetodoPagoID: f.tarjeta.ID, Monto: dec("107100")}},
	}
	_, err := f.facturas.Crear(ctx, f.cajero, req)
	assertKind(t, err, apierror.KindValidation)

	req.Pagos[0].Referencia = strPtr("AUT-5521")
	resp, err := f.facturas.Crear(ctx, f.cajero, req)
	require.NoError(t, err)
	assertDec(t, "90000", resp.Subtotal.Sub(resp.Descuento))
	assertDec(t, "17100", resp.Impuesto)
	assertDec(t, "107100", resp.Total)
	assert.True(t, lineaDe(t, resp, model.LineaServicio).Comision.Monto.IsZero())

	// card payments do not touch the drawer
	assert.Empty(t, f.movimientosCaja(t, sesion.ID))
}

func TestFactura_ConciliacionDePagos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")
	p := f.producto(t, "10000", map[int]int{1: 10})

	crear := func(pago string) (*dto.FacturaResponse, error) {
		return f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
			SedeID: 1,
			Lineas: []dto.LineaFacturaRequest{lineaProducto(p, 3)},
			Pagos:  f.pagoEfectivo(pago),
		})
	}

	_, err := crear("29990")
	assertKind(t, err, apierror.KindValidation)
	assert.Contains(t, err.Error(), "no cuadran")
	assert.Equal(t, 10, f.stock(t, p.ID, 1), "un rechazo no toca el stock")

	_, err = crear("30000.02")
	assertKind(t, err, apierror.KindValidation)

	resp, err := crear("29999.99")
	require.NoError(t, err)
	assertDec(t, "30000", resp.Total)
	assert.Equal(t, "FV-000001", resp.Numero, "los intentos rechazados no consumen numeración")
	assert.Equal(t, 7, f.stock(t, p.ID, 1))

	err = f.facturas.ValidarConciliacion(ctx, f.pagoEfectivo("15000"), nil, dec("15000.01"), nil)
	assert.NoError(t, err)
}

func TestFactura_CrearSinCajaAbierta(t *testing.T) {
	f := newFixture(t)
	p := f.producto(t, "10000", map[int]int{1: 10})

	_, err := f.facturas.Crear(context.Background(), f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaProducto(p, 1)},
		Pagos:  f.pagoEfectivo("10000"),
	})
	assertKind(t, err, apierror.KindValidation)
	assert.Equal(t, 10, f.stock(t, p.ID, 1))
}

func TestFactura_CrearSinStock(t *testing.T) {
	f := newFixture(t)
	f.abrirCaja(t, 1, "0")
	p := f.producto(t, "10000", map[int]int{1: 1, 2: 1})

	_, err := f.facturas.Crear(context.Background(), f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaProducto(p, 3)},
		Pagos:  f.pagoEfectivo("30000"),
	})
	assertKind(t, err, apierror.KindValidation)
	assert.Contains(t, err.Error(), "stock insuficiente")

	lista, err := f.facturas.Listar(context.Background(), dto.FacturaFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, lista.Total)
}

func TestFactura_CrearCompletaCitaYFacturaPendientes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")
	cliente := uuid.New()
	cita := model.Cita{ClienteID: &cliente, Estado: "confirmada"}
	require.NoError(t, f.db.Create(&cita).Error)
	s := f.servicio(t, "30000", nil, nil)
	esp := uuid.New()

	entrada, err := f.pendientes.Registrar(ctx, dto.RegistrarPendienteRequest{
		EspecialistaID: esp, ClienteID: &cliente, Tipo: string(model.LineaServicio), ItemID: s.ID, Cantidad: 1,
	})
	require.NoError(t, err)

	linea := lineaServicio(s, esp)
	linea.CitaID = &cita.ID
	resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID:       1,
		ClienteID:    &cliente,
		Lineas:       []dto.LineaFacturaRequest{linea},
		Pagos:        f.pagoEfectivo("30000"),
		PendienteIDs: []uuid.UUID{entrada.ID},
	})
	require.NoError(t, err)

	var actual model.Cita
	require.NoError(t, f.db.First(&actual, "id = ?", cita.ID).Error)
	assert.Equal(t, model.CitaCompletada, actual.Estado)

	pendientes, err := f.pendientes.Listar(ctx, dto.PendienteFilter{ClienteID: cliente.String()})
	require.NoError(t, err)
	require.Len(t, pendientes, 1)
	assert.Equal(t, model.PendienteEstadoFacturado, pendientes[0].Estado)
	require.NotNil(t, pendientes[0].FacturaID)
	assert.Equal(t, resp.ID, *pendientes[0].FacturaID)
}

// ── Abonos dentro de la factura ───────────────────────────────────────────────

func TestFactura_PagoMixtoConAbono(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "0")
	cliente := uuid.New()
	s := f.servicio(t, "60000", nil, nil)

	abono, err := f.abonos.Emitir(ctx, f.cajero, dto.EmitirAbonoRequest{ClienteID: cliente, Monto: dec("50000"), MetodoPagoID: f.efectivo.ID})
	require.NoError(t, err)

	resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID:      1,
		ClienteID:   &cliente,
		Lineas:      []dto.LineaFacturaRequest{lineaServicio(s, uuid.New())},
		Pagos:       f.pagoEfectivo("20000"),
		Redenciones: []dto.RedencionRequest{{AbonoID: abono.ID, Monto: dec("40000")}},
	})
	require.NoError(t, err)
	require.Len(t, resp.Redenciones, 1)

	restante, err := f.abonos.Obtener(ctx, abono.ID)
	require.NoError(t, err)
	assertDec(t, "10000", restante.SaldoDisponible)
	assert.Equal(t, model.AbonoDisponible, restante.Estado)

	// only the cash part reaches the drawer
	movs := f.movimientosCaja(t, sesion.ID)
	require.Len(t, movs, 1)
	assertDec(t, "20000", movs[0].Monto)

	// another client's credit is refused up front
	_, err = f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID:      1,
		ClienteID:   ptrUUID(uuid.New()),
		Lineas:      []dto.LineaFacturaRequest{lineaServicio(s, uuid.New())},
		Pagos:       f.pagoEfectivo("50000"),
		Redenciones: []dto.RedencionRequest{{AbonoID: abono.ID, Monto: dec("10000")}},
	})
	assertKind(t, err, apierror.KindValidation)
}

func ptrUUID(id uuid.UUID) *uuid.UUID { return &id }

// ── Anular ────────────────────────────────────────────────────────────────────

func TestFactura_AnularDevuelveStockYCompensaCaja(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "0")
	p := f.producto(t, "10000", map[int]int{1: 1, 2: 4})

	resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaProducto(p, 3)},
		Pagos:  f.pagoEfectivo("30000"),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, f.stock(t, p.ID, 1))
	assert.Equal(t, 2, f.stock(t, p.ID, 2))

	_, err = f.facturas.Anular(ctx, f.cajero, resp.ID, "  ")
	assertKind(t, err, apierror.KindValidation)

	anulada, err := f.facturas.Anular(ctx, f.cajero, resp.ID, "cliente desistió")
	require.NoError(t, err)
	assert.Equal(t, model.FacturaEstadoAnulada, anulada.Estado)
	assert.Equal(t, 1, f.stock(t, p.ID, 1))
	assert.Equal(t, 4, f.stock(t, p.ID, 2))

	movs := f.movimientosCaja(t, sesion.ID)
	require.Len(t, movs, 2)
	var egreso *dto.MovimientoCajaResponse
	for i := range movs {
		if movs[i].Tipo == model.MovimientoEgreso {
			egreso = &movs[i]
		}
	}
	require.NotNil(t, egreso)
	assertDec(t, "30000", egreso.Monto)
	require.NotNil(t, egreso.RevierteMovimientoID)

	conc, err := f.caja.Conciliacion(ctx, sesion.ID)
	require.NoError(t, err)
	assertDec(t, "0", conc.MontoTeorico)

	_, err = f.facturas.Anular(ctx, f.cajero, resp.ID, "de nuevo")
	assertKind(t, err, apierror.KindInvalidState)
}

func TestFactura_AnularConCajaCerrada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "0")
	s := f.servicio(t, "25000", nil, nil)

	resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaServicio(s, uuid.New())},
		Pagos:  f.pagoEfectivo("25000"),
	})
	require.NoError(t, err)
	_, err = f.caja.Cerrar(ctx, sesion.ID, f.cajero, dto.CerrarCajaRequest{})
	require.NoError(t, err)

	_, err = f.facturas.Anular(ctx, f.cajero, resp.ID, "error de cobro")
	assertKind(t, err, apierror.KindValidation)
	actual, err := f.facturas.Obtener(ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FacturaEstadoPagada, actual.Estado, "la anulación fallida no deja rastro")

	nueva := f.abrirCaja(t, 1, "0")
	_, err = f.facturas.Anular(ctx, f.cajero, resp.ID, "error de cobro")
	require.NoError(t, err)

	movs := f.movimientosCaja(t, nueva.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, model.MovimientoEgreso, movs[0].Tipo)
	assertDec(t, "25000", movs[0].Monto)
}

func TestFactura_AnularFueraDeVentana(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")
	s := f.servicio(t, "25000", nil, nil)

	resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaServicio(s, uuid.New())},
		Pagos:  f.pagoEfectivo("25000"),
	})
	require.NoError(t, err)

	_, err = f.config.Actualizar(ctx, model.ConfigVentanaAnulacion, "0")
	require.NoError(t, err)

	_, err = f.facturas.Anular(ctx, f.cajero, resp.ID, "fuera de plazo")
	assertKind(t, err, apierror.KindInvalidState)
}

// ── Órdenes ───────────────────────────────────────────────────────────────────

func TestFactura_OrdenYFinalizar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")
	cliente := uuid.New()
	p := f.producto(t, "10000", map[int]int{1: 5})
	s := f.servicio(t, "40000", nil, nil)
	esp := uuid.New()

	orden, err := f.facturas.CrearOrden(ctx, f.cajero, dto.CrearOrdenRequest{
		SedeID:    1,
		ClienteID: &cliente,
		Lineas:    []dto.LineaFacturaRequest{lineaServicio(s, esp), lineaProducto(p, 2)},
	})
	require.NoError(t, err)
	assert.Equal(t, model.FacturaEstadoPendiente, orden.Estado)
	assertDec(t, "60000", orden.Total)
	assert.Nil(t, orden.SesionCajaID)
	assert.Equal(t, 5, f.stock(t, p.ID, 1), "una orden no descuenta stock")

	espejos, err := f.pendRepo.ListPorFactura(ctx, nil, orden.ID)
	require.NoError(t, err)
	require.Len(t, espejos, 2)
	for _, e := range espejos {
		if e.Tipo == model.LineaServicio {
			assert.Equal(t, esp, e.EspecialistaID)
		} else {
			assert.Equal(t, f.cajero, e.EspecialistaID, "sin especialista se atribuye a quien crea la orden")
		}
	}

	abono, err := f.abonos.Emitir(ctx, f.cajero, dto.EmitirAbonoRequest{ClienteID: cliente, Monto: dec("10000"), MetodoPagoID: f.efectivo.ID})
	require.NoError(t, err)
	_, err = f.abonos.Redimir(ctx, abono.ID, dto.RedimirAbonoRequest{FacturaID: orden.ID, Monto: dec("10000")})
	require.NoError(t, err)

	_, err = f.facturas.FinalizarOrden(ctx, f.cajero, orden.ID, dto.FinalizarOrdenRequest{Pagos: f.pagoEfectivo("60000")})
	assertKind(t, err, apierror.KindValidation)

	pagada, err := f.facturas.FinalizarOrden(ctx, f.cajero, orden.ID, dto.FinalizarOrdenRequest{Pagos: f.pagoEfectivo("50000")})
	require.NoError(t, err)
	assert.Equal(t, model.FacturaEstadoPagada, pagada.Estado)
	assert.Equal(t, orden.Numero, pagada.Numero)
	assert.Equal(t, 3, f.stock(t, p.ID, 1))

	espejos, err = f.pendRepo.ListPorFactura(ctx, nil, orden.ID)
	require.NoError(t, err)
	for _, e := range espejos {
		assert.Equal(t, model.PendienteEstadoFacturado, e.Estado)
	}

	_, err = f.facturas.FinalizarOrden(ctx, f.cajero, orden.ID, dto.FinalizarOrdenRequest{Pagos: f.pagoEfectivo("50000")})
	assertKind(t, err, apierror.KindInvalidState)
}

func TestFactura_AnularOrdenRechazaEspejos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.servicio(t, "40000", nil, nil)

	orden, err := f.facturas.CrearOrden(ctx, f.cajero, dto.CrearOrdenRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaServicio(s, uuid.New())},
	})
	require.NoError(t, err)

	_, err = f.facturas.Anular(ctx, f.cajero, orden.ID, "cliente no vino")
	require.NoError(t, err)

	espejos, err := f.pendRepo.ListPorFactura(ctx, nil, orden.ID)
	require.NoError(t, err)
	require.Len(t, espejos, 1)
	assert.Equal(t, model.PendienteEstadoRechazado, espejos[0].Estado)
}

func TestFactura_FinalizarDesdePendientesReemplazaLaOrden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")
	cliente := uuid.New()
	corte := f.servicio(t, "30000", nil, nil)
	tinte := f.servicio(t, "70000", nil, nil)

	orden, err := f.facturas.CrearOrden(ctx, f.cajero, dto.CrearOrdenRequest{
		SedeID:    1,
		ClienteID: &cliente,
		Lineas:    []dto.LineaFacturaRequest{lineaServicio(corte, uuid.New()), lineaServicio(tinte, uuid.New())},
	})
	require.NoError(t, err)
	espejos, err := f.pendRepo.ListPorFactura(ctx, nil, orden.ID)
	require.NoError(t, err)
	require.Len(t, espejos, 2)

	// billing one of two entries keeps the order alive
	primera, err := f.facturas.FinalizarDesdePendientes(ctx, f.cajero, dto.FinalizarPendientesRequest{
		SedeID:       1,
		PendienteIDs: []uuid.UUID{espejos[0].ID},
		Pagos:        f.pagoEfectivo(precioDe(espejos[0], corte, tinte)),
	})
	require.NoError(t, err)
	require.NotNil(t, primera.ClienteID)
	assert.Equal(t, cliente, *primera.ClienteID, "el cliente se toma de las entradas")

	viva, err := f.facturas.Obtener(ctx, orden.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FacturaEstadoPendiente, viva.Estado)

	_, err = f.facturas.FinalizarDesdePendientes(ctx, f.cajero, dto.FinalizarPendientesRequest{
		SedeID:       1,
		PendienteIDs: []uuid.UUID{espejos[1].ID},
		Pagos:        f.pagoEfectivo(precioDe(espejos[1], corte, tinte)),
	})
	require.NoError(t, err)

	reemplazada, err := f.facturas.Obtener(ctx, orden.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FacturaEstadoAnulada, reemplazada.Estado)

	_, err = f.facturas.FinalizarDesdePendientes(ctx, f.cajero, dto.FinalizarPendientesRequest{
		SedeID:       1,
		PendienteIDs: []uuid.UUID{espejos[1].ID},
		Pagos:        f.pagoEfectivo("70000"),
	})
	assertKind(t, err, apierror.KindInvalidState)
}

func precioDe(e model.FacturaPendiente, servicios ...model.Servicio) string {
	for _, s := range servicios {
		if s.ID == e.ItemID {
			return s.Precio.String()
		}
	}
	return "0"
}

// ── Actualizar ────────────────────────────────────────────────────────────────

func TestFactura_ActualizarFacturaPagada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "0")
	p := f.producto(t, "10000", map[int]int{1: 5})
	s := f.servicio(t, "40000", nil, nil)

	resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaServicio(s, uuid.New())},
		Pagos:  f.pagoEfectivo("40000"),
	})
	require.NoError(t, err)

	agregar := dto.ActualizarFacturaRequest{Agregar: []dto.LineaFacturaRequest{lineaProducto(p, 2)}}
	_, err = f.facturas.Actualizar(ctx, f.cajero, resp.ID, agregar)
	assertKind(t, err, apierror.KindValidation)
	assert.Equal(t, 5, f.stock(t, p.ID, 1))

	agregar.Pagos = f.pagoEfectivo("60000")
	editada, err := f.facturas.Actualizar(ctx, f.cajero, resp.ID, agregar)
	require.NoError(t, err)
	assertDec(t, "60000", editada.Total)
	assert.Len(t, editada.Lineas, 2)
	assert.Equal(t, 3, f.stock(t, p.ID, 1))

	conc, err := f.caja.Conciliacion(ctx, sesion.ID)
	require.NoError(t, err)
	assertDec(t, "60000", conc.MontoTeorico)

	// dropping the product gives the stock back
	prod := lineaDe(t, editada, model.LineaProducto)
	editada, err = f.facturas.Actualizar(ctx, f.cajero, resp.ID, dto.ActualizarFacturaRequest{
		Eliminar: []uuid.UUID{prod.ID},
		Pagos:    f.pagoEfectivo("40000"),
	})
	require.NoError(t, err)
	assertDec(t, "40000", editada.Total)
	assert.Equal(t, 5, f.stock(t, p.ID, 1))

	serv := lineaDe(t, editada, model.LineaServicio)
	_, err = f.facturas.Actualizar(ctx, f.cajero, resp.ID, dto.ActualizarFacturaRequest{Eliminar: []uuid.UUID{serv.ID}})
	assertKind(t, err, apierror.KindValidation)

	_, err = f.facturas.Actualizar(ctx, f.cajero, resp.ID, dto.ActualizarFacturaRequest{Eliminar: []uuid.UUID{uuid.New()}})
	assertKind(t, err, apierror.KindNotFound)
}

func TestFactura_ActualizarOrdenSincronizaEspejos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s := f.servicio(t, "40000", nil, nil)
	p := f.producto(t, "10000", map[int]int{1: 5})

	orden, err := f.facturas.CrearOrden(ctx, f.cajero, dto.CrearOrdenRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaServicio(s, uuid.New())},
	})
	require.NoError(t, err)

	cantidad := 3
	editada, err := f.facturas.Actualizar(ctx, f.cajero, orden.ID, dto.ActualizarFacturaRequest{
		Agregar: []dto.LineaFacturaRequest{lineaProducto(p, 1)},
	})
	require.NoError(t, err)
	prod := lineaDe(t, editada, model.LineaProducto)

	editada, err = f.facturas.Actualizar(ctx, f.cajero, orden.ID, dto.ActualizarFacturaRequest{
		Modificar: []dto.ModificarLineaRequest{{LineaID: prod.ID, Cantidad: &cantidad}},
	})
	require.NoError(t, err)
	assertDec(t, "70000", editada.Total)
	assert.Equal(t, 5, f.stock(t, p.ID, 1))

	espejos, err := f.pendRepo.ListPorFactura(ctx, nil, orden.ID)
	require.NoError(t, err)
	require.Len(t, espejos, 2)
	for _, e := range espejos {
		if e.Tipo == model.LineaProducto {
			assert.Equal(t, 3, e.Cantidad)
		}
	}
}

func TestFactura_ActualizarOrdenNoBajaDeLosAbonos(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cliente := uuid.New()
	s := f.servicio(t, "20000", nil, nil)
	a, err := f.abonos.Emitir(ctx, f.cajero, dto.EmitirAbonoRequest{ClienteID: cliente, Monto: dec("35000"), MetodoPagoID: f.efectivo.ID})
	require.NoError(t, err)

	orden, err := f.facturas.CrearOrden(ctx, f.cajero, dto.CrearOrdenRequest{
		SedeID: 1, ClienteID: &cliente,
		Lineas: []dto.LineaFacturaRequest{lineaServicio(s, uuid.New()), lineaServicio(s, uuid.New())},
	})
	require.NoError(t, err)
	assertDec(t, "40000", orden.Total)
	_, err = f.abonos.Redimir(ctx, a.ID, dto.RedimirAbonoRequest{FacturaID: orden.ID, Monto: dec("35000")})
	require.NoError(t, err)

	_, err = f.facturas.Actualizar(ctx, f.cajero, orden.ID, dto.ActualizarFacturaRequest{
		Eliminar: []uuid.UUID{orden.Lineas[0].ID},
	})
	assertKind(t, err, apierror.KindValidation)

	_, err = f.facturas.Actualizar(ctx, f.cajero, orden.ID, dto.ActualizarFacturaRequest{DescuentoGeneral: decPtr("5000")})
	require.NoError(t, err, "35000 todavía cubre lo aplicado")

	sinCambios, err := f.facturas.Obtener(ctx, orden.ID)
	require.NoError(t, err)
	assert.Len(t, sinCambios.Lineas, 2)
	assertDec(t, "35000", sinCambios.Total)

	f.abrirCaja(t, 1, "0")
	pagada, err := f.facturas.FinalizarOrden(ctx, f.cajero, orden.ID, dto.FinalizarOrdenRequest{})
	require.NoError(t, err)
	assert.Equal(t, model.FacturaEstadoPagada, pagada.Estado)
}
