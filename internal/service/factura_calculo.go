package service

import (
	"context"
	"sort"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineaMonto is the pricing part of a line.
type LineaMonto struct {
	Cantidad       int
	PrecioUnitario decimal.Decimal
	Descuento      decimal.Decimal
}

func (l LineaMonto) Subtotal() decimal.Decimal {
	return l.PrecioUnitario.Mul(decimal.NewFromInt(int64(l.Cantidad))).Sub(l.Descuento)
}

type Totales struct {
	Subtotal  decimal.Decimal
	Descuento decimal.Decimal
	Impuesto  decimal.Decimal
	Total     decimal.Decimal
}

// CalcularTotales prices an invoice. The general discount can only bring the
// taxable base down to zero; tasa is a percentage. Amounts are rounded to two
// decimals once, at the end.
func CalcularTotales(lineas []LineaMonto, descuentoGeneral decimal.Decimal, aplicaImpuesto bool, tasa decimal.Decimal) Totales {
	subtotal := decimal.Zero
	for _, l := range lineas {
		subtotal = subtotal.Add(l.Subtotal())
	}
	subtotal = redondear(subtotal)
	descuento := redondear(descuentoGeneral)

	base := subtotal.Sub(descuento)
	if base.IsNegative() {
		base = decimal.Zero
	}
	impuesto := decimal.Zero
	if aplicaImpuesto {
		impuesto = redondear(base.Mul(tasa).Div(cien))
	}
	return Totales{Subtotal: subtotal, Descuento: descuento, Impuesto: impuesto, Total: base.Add(impuesto)}
}

// lineaPlan is a validated line not yet written.
type lineaPlan struct {
	item           ItemLinea
	cantidad       int
	precio         decimal.Decimal
	descuento      decimal.Decimal
	especialistaID *uuid.UUID
	citaID         *uuid.UUID
	pendienteID    *uuid.UUID
}

func (p lineaPlan) monto() LineaMonto {
	return LineaMonto{Cantidad: p.cantidad, PrecioUnitario: p.precio, Descuento: p.descuento}
}

func (p lineaPlan) validar() error {
	if p.cantidad <= 0 {
		return apierror.Validation("la cantidad de %q debe ser mayor a cero", p.item.Nombre())
	}
	if p.precio.IsNegative() {
		return apierror.Validation("el precio de %q no puede ser negativo", p.item.Nombre())
	}
	if p.descuento.IsNegative() {
		return apierror.Validation("el descuento de %q no puede ser negativo", p.item.Nombre())
	}
	bruto := p.precio.Mul(decimal.NewFromInt(int64(p.cantidad)))
	if p.descuento.GreaterThan(bruto) {
		return apierror.Validation("el descuento de %q supera el importe de la línea", p.item.Nombre())
	}
	return nil
}

func (s *facturaService) resolverLinea(ctx context.Context, req dto.LineaFacturaRequest) (lineaPlan, error) {
	item, err := cargarItem(ctx, s.catalogo, model.TipoLinea(req.Tipo), req.ItemID)
	if err != nil {
		return lineaPlan{}, err
	}
	if !item.Activo() {
		return lineaPlan{}, apierror.Validation("%q está inactivo en el catálogo", item.Nombre())
	}
	precio := item.Precio()
	if req.PrecioUnitario != nil {
		precio = *req.PrecioUnitario
	}
	p := lineaPlan{
		item:           item,
		cantidad:       req.Cantidad,
		precio:         precio,
		descuento:      req.Descuento,
		especialistaID: req.EspecialistaID,
		citaID:         req.CitaID,
	}
	return p, p.validar()
}

func (s *facturaService) resolverLineas(ctx context.Context, reqs []dto.LineaFacturaRequest) ([]lineaPlan, error) {
	planes := make([]lineaPlan, 0, len(reqs))
	for _, r := range reqs {
		p, err := s.resolverLinea(ctx, r)
		if err != nil {
			return nil, err
		}
		planes = append(planes, p)
	}
	return planes, nil
}

// construirLinea prices the line and snapshots the specialist commission.
func (s *facturaService) construirLinea(ctx context.Context, facturaID uuid.UUID, p lineaPlan) (model.FacturaLinea, error) {
	l := model.FacturaLinea{
		ID:             uuid.New(),
		FacturaID:      facturaID,
		Tipo:           p.item.Tipo(),
		ItemID:         p.item.ID(),
		Cantidad:       p.cantidad,
		PrecioUnitario: p.precio,
		DescuentoLinea: p.descuento,
		Subtotal:       p.monto().Subtotal(),
		EspecialistaID: p.especialistaID,
		CitaID:         p.citaID,
		PendienteID:    p.pendienteID,
		ComisionValor:  decimal.Zero,
		ComisionMonto:  decimal.Zero,
	}
	if p.especialistaID == nil {
		return l, nil
	}
	c, err := s.comisiones.Resolver(ctx, ComisionInput{
		Item:           p.item,
		EspecialistaID: *p.especialistaID,
		PrecioUnitario: p.precio,
		Cantidad:       p.cantidad,
		Descuento:      p.descuento,
	})
	if err != nil {
		return model.FacturaLinea{}, err
	}
	l.ComisionTipo = c.Tipo
	l.ComisionValor = c.Valor
	l.ComisionMonto = c.Monto
	return l, nil
}

func (s *facturaService) construirLineas(ctx context.Context, facturaID uuid.UUID, planes []lineaPlan) ([]model.FacturaLinea, error) {
	lineas := make([]model.FacturaLinea, 0, len(planes))
	for _, p := range planes {
		l, err := s.construirLinea(ctx, facturaID, p)
		if err != nil {
			return nil, err
		}
		lineas = append(lineas, l)
	}
	return lineas, nil
}

func montosDePlanes(planes []lineaPlan) []LineaMonto {
	out := make([]LineaMonto, 0, len(planes))
	for _, p := range planes {
		out = append(out, p.monto())
	}
	return out
}

func montosDeLineas(lineas []model.FacturaLinea) []LineaMonto {
	out := make([]LineaMonto, 0, len(lineas))
	for _, l := range lineas {
		out = append(out, LineaMonto{Cantidad: l.Cantidad, PrecioUnitario: l.PrecioUnitario, Descuento: l.DescuentoLinea})
	}
	return out
}

func (s *facturaService) tasa(ctx context.Context, aplica bool) (decimal.Decimal, error) {
	if !aplica {
		return decimal.Zero, nil
	}
	return s.config.TasaImpuesto(ctx)
}

// ── Conciliación de pagos ─────────────────────────────────────────────────────

func (s *facturaService) ValidarConciliacion(ctx context.Context, pagos []dto.PagoRequest, redenciones []dto.RedencionRequest, total decimal.Decimal, clienteID *uuid.UUID) error {
	_, err := s.validarConciliacion(ctx, pagos, redenciones, total, clienteID, decimal.Zero)
	return err
}

// validarConciliacion checks payments plus credits (plus credit already
// applied, previo) settle total within one cent, and returns the payment
// method of each payment in order.
func (s *facturaService) validarConciliacion(ctx context.Context, pagos []dto.PagoRequest, redenciones []dto.RedencionRequest, total decimal.Decimal, clienteID *uuid.UUID, previo decimal.Decimal) ([]*model.MetodoPago, error) {
	suma := previo
	metodos := make([]*model.MetodoPago, len(pagos))
	for i, p := range pagos {
		if !p.Monto.IsPositive() {
			return nil, apierror.Validation("cada pago debe ser mayor a cero")
		}
		m, err := s.metodos.Validar(ctx, p.MetodoPagoID, p.Referencia)
		if err != nil {
			return nil, err
		}
		metodos[i] = m
		suma = suma.Add(p.Monto)
	}

	porAbono := make(map[uuid.UUID]decimal.Decimal)
	var orden []uuid.UUID
	for _, r := range redenciones {
		if !r.Monto.IsPositive() {
			return nil, apierror.Validation("cada redención debe ser mayor a cero")
		}
		if _, ok := porAbono[r.AbonoID]; !ok {
			orden = append(orden, r.AbonoID)
		}
		porAbono[r.AbonoID] = porAbono[r.AbonoID].Add(r.Monto)
		suma = suma.Add(r.Monto)
	}
	for _, abonoID := range orden {
		a, err := s.abonos.FindByID(ctx, nil, abonoID)
		if err != nil {
			return nil, noEncontrado(err, "abono %s no encontrado", abonoID)
		}
		if clienteID == nil || a.ClienteID != *clienteID {
			return nil, apierror.Validation("el abono %s no pertenece al cliente de la factura", abonoID)
		}
		if a.Estado != model.AbonoDisponible {
			return nil, apierror.Validation("el abono %s no está disponible (%s)", abonoID, a.Estado)
		}
		if porAbono[abonoID].GreaterThan(a.SaldoDisponible) {
			return nil, apierror.Validation("saldo insuficiente en abono %s: disponible %s, solicitado %s",
				abonoID, a.SaldoDisponible.StringFixed(2), porAbono[abonoID].StringFixed(2))
		}
	}

	if suma.Sub(total).Abs().GreaterThan(tolerancia) {
		return nil, apierror.Validation("los pagos (%s) no cuadran con el total de la factura (%s)",
			suma.StringFixed(2), total.StringFixed(2))
	}
	return metodos, nil
}

func construirPagos(facturaID uuid.UUID, pagos []dto.PagoRequest, usuarioID uuid.UUID, at time.Time) []model.Pago {
	out := make([]model.Pago, 0, len(pagos))
	for _, p := range pagos {
		out = append(out, model.Pago{
			ID:           uuid.New(),
			FacturaID:    facturaID,
			MetodoPagoID: p.MetodoPagoID,
			Monto:        p.Monto,
			Referencia:   p.Referencia,
			PagadoPor:    usuarioID,
			PagadoAt:     at,
		})
	}
	return out
}

// ── Stock ─────────────────────────────────────────────────────────────────────

// verificarStock fails fast, before any write, when the product totals needed
// exceed what all sedes hold together.
func (s *facturaService) verificarStock(ctx context.Context, requeridos map[uuid.UUID]int) error {
	for _, id := range clavesOrdenadas(requeridos) {
		cantidad := requeridos[id]
		if cantidad <= 0 {
			continue
		}
		disponible, err := s.inventario.Disponible(ctx, id)
		if err != nil {
			return err
		}
		if disponible < cantidad {
			p, err := s.catalogo.FindProducto(ctx, id)
			if err != nil {
				return noEncontrado(err, "producto %s no encontrado", id)
			}
			return errStockInsuficiente(p, "todas las sedes", disponible, cantidad)
		}
	}
	return nil
}

func requeridosDePlanes(planes []lineaPlan) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, p := range planes {
		if p.item.Tipo() == model.LineaProducto {
			out[p.item.ID()] += p.cantidad
		}
	}
	return out
}

func requeridosDeLineas(lineas []model.FacturaLinea) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, l := range lineas {
		if l.Tipo == model.LineaProducto {
			out[l.ItemID] += l.Cantidad
		}
	}
	return out
}

func clavesOrdenadas(m map[uuid.UUID]int) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func sinDuplicados(ids []uuid.UUID) []uuid.UUID {
	vistos := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !vistos[id] {
			vistos[id] = true
			out = append(out, id)
		}
	}
	return out
}

func sumarRedenciones(reds []model.RedencionAbono) decimal.Decimal {
	total := decimal.Zero
	for _, r := range reds {
		total = total.Add(r.Monto)
	}
	return total
}
