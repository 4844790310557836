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

func TestCaja_AbrirRegistraApertura(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sesion := f.abrirCaja(t, 1, "100000")
	assert.Equal(t, model.CajaAbierta, sesion.Estado)

	movs, err := f.caja.ListarMovimientos(ctx, sesion.ID)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.True(t, movs[0].EsApertura)
	assert.Equal(t, model.MovimientoIngreso, movs[0].Tipo)
	assertDec(t, "100000", movs[0].Monto)
}

func TestCaja_UnaSesionAbiertaPorSede(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")

	_, err := f.caja.Abrir(ctx, uuid.New(), dto.AbrirCajaRequest{SedeID: 1})
	assertKind(t, err, apierror.KindConflict)

	// another sede is independent
	_, err = f.caja.Abrir(ctx, uuid.New(), dto.AbrirCajaRequest{SedeID: 2})
	assert.NoError(t, err)
}

func TestCaja_CerrarYReabrir(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "50000")

	cerrada, err := f.caja.Cerrar(ctx, sesion.ID, f.cajero, dto.CerrarCajaRequest{MontoDeclarado: decPtr("50000")})
	require.NoError(t, err)
	assert.Equal(t, model.CajaCerrada, cerrada.Estado)
	require.NotNil(t, cerrada.ClosedAt)

	_, err = f.caja.Cerrar(ctx, sesion.ID, f.cajero, dto.CerrarCajaRequest{})
	assertKind(t, err, apierror.KindInvalidState)

	_, err = f.caja.RegistrarMovimiento(ctx, f.cajero, dto.MovimientoCajaRequest{
		SesionCajaID: sesion.ID, Tipo: model.MovimientoIngreso, Monto: dec("1000"), Descripcion: "tarde",
	})
	assertKind(t, err, apierror.KindValidation)

	_, err = f.caja.Abrir(ctx, f.cajero, dto.AbrirCajaRequest{SedeID: 1})
	assert.NoError(t, err)
}

func TestCaja_Conciliacion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "100000")

	_, err := f.caja.RegistrarMovimiento(ctx, f.cajero, dto.MovimientoCajaRequest{
		SesionCajaID: sesion.ID, Tipo: model.MovimientoIngreso, Monto: dec("40000"), Descripcion: "venta mostrador",
	})
	require.NoError(t, err)
	_, err = f.caja.RegistrarMovimiento(ctx, f.cajero, dto.MovimientoCajaRequest{
		SesionCajaID: sesion.ID, Tipo: model.MovimientoEgreso, Monto: dec("10000"), Descripcion: "compra insumos",
	})
	require.NoError(t, err)

	_, err = f.caja.Cerrar(ctx, sesion.ID, f.cajero, dto.CerrarCajaRequest{MontoDeclarado: decPtr("126000")})
	require.NoError(t, err)

	c, err := f.caja.Conciliacion(ctx, sesion.ID)
	require.NoError(t, err)
	assertDec(t, "40000", c.TotalIngresos)
	assertDec(t, "10000", c.TotalEgresos)
	assertDec(t, "130000", c.MontoTeorico)
	require.NotNil(t, c.Desvio)
	assertDec(t, "-4000", c.Desvio.Monto)
	assertDec(t, "-3.08", c.Desvio.Porcentaje)
	assert.Equal(t, "advertencia", c.Desvio.Clasificacion)
	assert.Equal(t, 3, c.Movimientos)
}

func TestCaja_MovimientoInvalido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sesion := f.abrirCaja(t, 1, "0")

	_, err := f.caja.RegistrarMovimiento(ctx, f.cajero, dto.MovimientoCajaRequest{
		SesionCajaID: sesion.ID, Tipo: "transferencia", Monto: dec("1000"), Descripcion: "x",
	})
	assertKind(t, err, apierror.KindValidation)

	_, err = f.caja.RegistrarMovimiento(ctx, f.cajero, dto.MovimientoCajaRequest{
		SesionCajaID: uuid.New(), Tipo: model.MovimientoIngreso, Monto: dec("1000"), Descripcion: "x",
	})
	assertKind(t, err, apierror.KindNotFound)
}

func TestCaja_SesionAbiertaSinCaja(t *testing.T) {
	f := newFixture(t)
	_, err := f.caja.SesionAbierta(context.Background(), nil, 2)
	assertKind(t, err, apierror.KindValidation)

	_, err = f.caja.ObtenerAbierta(context.Background(), 2)
	assertKind(t, err, apierror.KindNotFound)
}

func TestCaja_HistorialPorSede(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	s1 := f.abrirCaja(t, 1, "0")
	_, err := f.caja.Cerrar(ctx, s1.ID, f.cajero, dto.CerrarCajaRequest{})
	require.NoError(t, err)
	f.abrirCaja(t, 1, "0")
	f.abrirCaja(t, 2, "0")

	h, err := f.caja.Historial(ctx, dto.CajaHistorialFilter{SedeID: 1, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, h.Total)
	assert.Len(t, h.Data, 2)

	todas, err := f.caja.Historial(ctx, dto.CajaHistorialFilter{Page: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 3, todas.Total)
	assert.Len(t, todas.Data, 1)
}
