package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
)

func TestComision_ReglasDeServicio(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")
	pct := model.ComisionPorcentaje
	conRegla := f.servicio(t, "50000", &pct, decPtr("40"))
	sinRegla := f.servicio(t, "20000", nil, nil)

	estrella := uuid.New()
	require.NoError(t, f.db.Create(&model.ComisionEspecialista{
		EspecialistaID: estrella, ServicioID: conRegla.ID, Tipo: model.ComisionFijo, Valor: dec("15000"),
	}).Error)

	tests := []struct {
		name         string
		servicio     model.Servicio
		especialista uuid.UUID
		descuento    string
		want         string
	}{
		{"porcentaje sobre el neto", conRegla, uuid.New(), "10000", "16000"},
		{"el especialista tiene tarifa fija", conRegla, estrella, "10000", "15000"},
		{"servicio sin comisión", sinRegla, uuid.New(), "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linea := lineaServicio(tt.servicio, tt.especialista)
			linea.Descuento = dec(tt.descuento)
			neto := tt.servicio.Precio.Sub(linea.Descuento)
			resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
				SedeID: 1,
				Lineas: []dto.LineaFacturaRequest{linea},
				Pagos:  f.pagoEfectivo(neto.String()),
			})
			require.NoError(t, err)
			assertDec(t, tt.want, lineaDe(t, resp, model.LineaServicio).Comision.Monto)
		})
	}
}

func TestComision_ProductoSobreElBruto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")
	p := f.producto(t, "20000", map[int]int{1: 5})

	linea := lineaProducto(p, 2)
	linea.Descuento = dec("4000")
	linea.EspecialistaID = ptrUUID(uuid.New())
	resp, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{linea},
		Pagos:  f.pagoEfectivo("36000"),
	})
	require.NoError(t, err)
	assertDec(t, "4000", lineaDe(t, resp, model.LineaProducto).Comision.Monto)
}

func TestComision_Reporte(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.abrirCaja(t, 1, "0")
	pct := model.ComisionPorcentaje
	s := f.servicio(t, "50000", &pct, decPtr("30"))
	esp := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
			SedeID: 1,
			Lineas: []dto.LineaFacturaRequest{lineaServicio(s, esp)},
			Pagos:  f.pagoEfectivo("50000"),
		})
		require.NoError(t, err)
	}
	anulada, err := f.facturas.Crear(ctx, f.cajero, dto.CrearFacturaRequest{
		SedeID: 1,
		Lineas: []dto.LineaFacturaRequest{lineaServicio(s, esp)},
		Pagos:  f.pagoEfectivo("50000"),
	})
	require.NoError(t, err)
	_, err = f.facturas.Anular(ctx, f.cajero, anulada.ID, "servicio repetido")
	require.NoError(t, err)

	// a rate change after the fact shows up only in the recomputed total
	require.NoError(t, f.db.Model(&model.Servicio{}).Where("id = ?", s.ID).Update("comision_valor", dec("40")).Error)

	ahora := time.Now()
	rep, err := f.comisiones.Reporte(ctx, esp, ahora.Add(-time.Hour), ahora.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, rep.Lineas, 2)
	assertDec(t, "30000", rep.TotalRegistrado)
	assertDec(t, "40000", rep.Total)

	_, err = f.comisiones.Reporte(ctx, esp, ahora, ahora)
	assertKind(t, err, apierror.KindValidation)
}
