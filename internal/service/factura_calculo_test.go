package service_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/alejo0789/agenda-ia-sub000/internal/service"
)

func TestCalcularTotales(t *testing.T) {
	tests := []struct {
		name      string
		lineas    []service.LineaMonto
		descuento string
		impuesto  bool
		tasa      string
		subtotal  string
		total     string
		iva       string
	}{
		{
			name: "sin impuesto",
			lineas: []service.LineaMonto{
				{Cantidad: 2, PrecioUnitario: dec("15000"), Descuento: decimal.Zero},
			},
			descuento: "0", tasa: "19",
			subtotal: "30000", total: "30000", iva: "0",
		},
		{
			name: "descuento de línea y general con IVA",
			lineas: []service.LineaMonto{
				{Cantidad: 1, PrecioUnitario: dec("50000"), Descuento: dec("5000")},
				{Cantidad: 3, PrecioUnitario: dec("10000"), Descuento: decimal.Zero},
			},
			descuento: "15000", impuesto: true, tasa: "19",
			subtotal: "75000", total: "71400", iva: "11400",
		},
		{
			name: "el descuento general no deja la base negativa",
			lineas: []service.LineaMonto{
				{Cantidad: 1, PrecioUnitario: dec("10000"), Descuento: decimal.Zero},
			},
			descuento: "12000", impuesto: true, tasa: "19",
			subtotal: "10000", total: "0", iva: "0",
		},
		{
			name: "redondeo a centavos al final",
			lineas: []service.LineaMonto{
				{Cantidad: 3, PrecioUnitario: dec("33.333"), Descuento: decimal.Zero},
			},
			descuento: "0", impuesto: true, tasa: "19",
			subtotal: "100", total: "119", iva: "19",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := service.CalcularTotales(tt.lineas, dec(tt.descuento), tt.impuesto, dec(tt.tasa))
			assertDec(t, tt.subtotal, got.Subtotal, "subtotal")
			assertDec(t, tt.iva, got.Impuesto, "impuesto")
			assertDec(t, tt.total, got.Total, "total")
		})
	}
}

func TestLineaMonto_Subtotal(t *testing.T) {
	l := service.LineaMonto{Cantidad: 4, PrecioUnitario: dec("2500.50"), Descuento: dec("2")}
	assertDec(t, "10000", l.Subtotal())
}
