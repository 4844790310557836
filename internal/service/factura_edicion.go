package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Anular ────────────────────────────────────────────────────────────────────

// Anular voids an invoice inside the configured window. A paid invoice gets
// its cash compensated and its products returned to stock; an order gets its
// mirrored pending entries rejected. Credit redemptions stay applied.
func (s *facturaService) Anular(ctx context.Context, usuarioID, facturaID uuid.UUID, motivo string) (*dto.FacturaResponse, error) {
	motivo = strings.TrimSpace(motivo)
	if motivo == "" {
		return nil, apierror.Validation("el motivo de anulación es obligatorio")
	}
	ctx, span := tracer.Start(ctx, "factura.anular")
	defer span.End()

	f, err := s.repo.FindByID(ctx, nil, facturaID)
	if err != nil {
		return nil, noEncontrado(err, "factura %s no encontrada", facturaID)
	}
	if f.Estado == model.FacturaEstadoAnulada {
		return nil, apierror.InvalidState("la factura %s ya está anulada", f.Numero)
	}
	ventana, err := s.config.VentanaAnulacion(ctx)
	if err != nil {
		return nil, err
	}
	if time.Since(f.EmitidaAt) > ventana {
		return nil, apierror.InvalidState("la factura %s superó la ventana de anulación de %d días",
			f.Numero, int(ventana.Hours()/24))
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		previo := f.Estado
		ok, err := s.repo.CambiarEstado(ctx, tx, f.ID, previo, model.FacturaEstadoAnulada)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.InvalidState("la factura %s cambió de estado durante la anulación", f.Numero)
		}
		f.Estado = model.FacturaEstadoAnulada

		switch previo {
		case model.FacturaEstadoPagada:
			if err := s.caja.CompensarFacturaTx(ctx, tx, f.ID, f.SedeID, usuarioID, motivo); err != nil {
				return err
			}
			if err := s.devolverLineasTx(ctx, tx, f, requeridosDeLineas(f.Lineas), usuarioID, "Anulación"); err != nil {
				return err
			}
		case model.FacturaEstadoPendiente:
			if err := s.rechazarEspejosTx(ctx, tx, f.ID, usuarioID, "orden anulada: "+motivo); err != nil {
				return err
			}
		}
		return s.registrarEventoTx(ctx, tx, f, model.EventoAnulada, previo, model.FacturaEstadoAnulada, &motivo, usuarioID)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("factura", f.Numero).Str("motivo", motivo).Msg("factura anulada")
	return s.toResponse(ctx, f), nil
}

func (s *facturaService) devolverLineasTx(ctx context.Context, tx *gorm.DB, f *model.Factura, cantidades map[uuid.UUID]int, usuarioID uuid.UUID, accion string) error {
	for _, productoID := range clavesOrdenadas(cantidades) {
		if cantidades[productoID] <= 0 {
			continue
		}
		facturaID := f.ID
		_, err := s.inventario.DevolverTx(ctx, tx, Devolucion{
			ProductoID: productoID,
			Cantidad:   cantidades[productoID],
			FacturaID:  &facturaID,
			Referencia: f.Numero,
			Motivo:     fmt.Sprintf("%s factura %s", accion, f.Numero),
			UsuarioID:  usuarioID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *facturaService) rechazarEspejosTx(ctx context.Context, tx *gorm.DB, ordenID, usuarioID uuid.UUID, motivo string) error {
	espejos, err := s.pendientesRepo.ListPorFactura(ctx, tx, ordenID)
	if err != nil {
		return err
	}
	ahora := time.Now()
	for i := range espejos {
		if !espejos[i].Activa() {
			continue
		}
		if err := s.rechazarEntradaTx(ctx, tx, &espejos[i], usuarioID, motivo, ahora); err != nil {
			return err
		}
	}
	return nil
}

func (s *facturaService) rechazarEntradaTx(ctx context.Context, tx *gorm.DB, e *model.FacturaPendiente, usuarioID uuid.UUID, motivo string, at time.Time) error {
	revisor := usuarioID
	e.Estado = model.PendienteEstadoRechazado
	e.RevisadoPor = &revisor
	e.RevisadoAt = &at
	e.MotivoRechazo = &motivo
	return s.pendientesRepo.Update(ctx, tx, e)
}

// ── Actualizar ────────────────────────────────────────────────────────────────

// edicion is the diff computed against the stored lines.
type edicion struct {
	resultado   []model.FacturaLinea
	agregadas   []model.FacturaLinea
	modificadas []model.FacturaLinea
	eliminadas  []model.FacturaLinea
	// stock delta per product: positive takes more, negative gives back
	deltas map[uuid.UUID]int
}

// Actualizar adds, modifies and removes lines and recomputes totals. On a paid
// invoice the stock difference is applied, and the payment set is replaced
// when pagos is sent; it must be sent whenever the total changes.
func (s *facturaService) Actualizar(ctx context.Context, usuarioID, facturaID uuid.UUID, req dto.ActualizarFacturaRequest) (*dto.FacturaResponse, error) {
	f, err := s.repo.FindByID(ctx, nil, facturaID)
	if err != nil {
		return nil, noEncontrado(err, "factura %s no encontrada", facturaID)
	}
	if f.Estado == model.FacturaEstadoAnulada {
		return nil, apierror.InvalidState("la factura %s está anulada y no admite cambios", f.Numero)
	}

	ed, err := s.diferencias(ctx, f, req)
	if err != nil {
		return nil, err
	}
	if len(ed.resultado) == 0 {
		return nil, apierror.Validation("la factura debe conservar al menos una línea")
	}

	descuento := f.Descuento
	if req.DescuentoGeneral != nil {
		descuento = *req.DescuentoGeneral
	}
	if descuento.IsNegative() {
		return nil, apierror.Validation("el descuento general no puede ser negativo")
	}
	aplica := f.AplicaImpuesto
	if req.AplicaImpuesto != nil {
		aplica = *req.AplicaImpuesto
	}
	tasa, err := s.tasa(ctx, aplica)
	if err != nil {
		return nil, err
	}
	tot := CalcularTotales(montosDeLineas(ed.resultado), descuento, aplica, tasa)

	pagada := f.Estado == model.FacturaEstadoPagada
	var sesion *model.SesionCaja
	var metodos []*model.MetodoPago
	if pagada {
		previo := sumarRedenciones(f.Redenciones)
		if req.Pagos != nil {
			if sesion, err = s.caja.SesionAbierta(ctx, nil, f.SedeID); err != nil {
				return nil, err
			}
			if metodos, err = s.validarConciliacion(ctx, req.Pagos, nil, tot.Total, f.ClienteID, previo); err != nil {
				return nil, err
			}
		} else {
			cobrado := previo
			for _, p := range f.Pagos {
				cobrado = cobrado.Add(p.Monto)
			}
			if cobrado.Sub(tot.Total).Abs().GreaterThan(tolerancia) {
				return nil, apierror.Validation("el total pasa de %s a %s; envíe los pagos que lo cubren",
					f.Total.StringFixed(2), tot.Total.StringFixed(2))
			}
		}
		if err := s.verificarStock(ctx, ed.deltas); err != nil {
			return nil, err
		}
	} else if err := cubreRedenciones(f, tot.Total); err != nil {
		return nil, err
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		actual, err := s.repo.LockByID(ctx, tx, f.ID)
		if err != nil {
			return noEncontrado(err, "factura %s no encontrada", f.ID)
		}
		if actual.Estado != f.Estado {
			return apierror.InvalidState("la factura %s cambió de estado durante la edición", f.Numero)
		}
		if !pagada {
			// a redemption may have landed since the first check
			if err := cubreRedenciones(actual, tot.Total); err != nil {
				return err
			}
		}

		if pagada {
			if err := s.aplicarDeltasTx(ctx, tx, f, ed.deltas, usuarioID); err != nil {
				return err
			}
			if req.Pagos != nil {
				if err := s.reemplazarPagosTx(ctx, tx, f, sesion.ID, req.Pagos, metodos, usuarioID); err != nil {
					return err
				}
			}
		} else if err := s.sincronizarEspejosTx(ctx, tx, f, &ed, usuarioID); err != nil {
			return err
		}

		for _, l := range ed.eliminadas {
			if err := s.repo.DeleteLinea(ctx, tx, l.ID); err != nil {
				return err
			}
		}
		for i := range ed.modificadas {
			if err := s.repo.UpdateLinea(ctx, tx, &ed.modificadas[i]); err != nil {
				return err
			}
		}
		for i := range ed.agregadas {
			if err := s.repo.CreateLinea(ctx, tx, &ed.agregadas[i]); err != nil {
				return err
			}
		}

		f.Lineas = ed.resultado
		f.Subtotal = tot.Subtotal
		f.Descuento = tot.Descuento
		f.Impuesto = tot.Impuesto
		f.Total = tot.Total
		f.AplicaImpuesto = aplica
		if req.Observaciones != nil {
			f.Observaciones = req.Observaciones
		}
		if err := s.repo.UpdateCabecera(ctx, tx, f); err != nil {
			return err
		}
		return s.registrarEventoTx(ctx, tx, f, model.EventoEditada, f.Estado, f.Estado, nil, usuarioID)
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("factura", f.Numero).
		Int("agregadas", len(ed.agregadas)).
		Int("modificadas", len(ed.modificadas)).
		Int("eliminadas", len(ed.eliminadas)).
		Str("total", f.Total.StringFixed(2)).
		Msg("factura editada")
	return s.toResponse(ctx, f), nil
}

func (s *facturaService) diferencias(ctx context.Context, f *model.Factura, req dto.ActualizarFacturaRequest) (edicion, error) {
	ed := edicion{deltas: make(map[uuid.UUID]int)}
	existentes := make(map[uuid.UUID]bool, len(f.Lineas))
	for _, l := range f.Lineas {
		existentes[l.ID] = true
	}

	eliminar := make(map[uuid.UUID]bool, len(req.Eliminar))
	for _, id := range req.Eliminar {
		if !existentes[id] {
			return ed, apierror.NotFound("la línea %s no pertenece a la factura %s", id, f.Numero)
		}
		eliminar[id] = true
	}
	modificar := make(map[uuid.UUID]dto.ModificarLineaRequest, len(req.Modificar))
	for _, m := range req.Modificar {
		if !existentes[m.LineaID] {
			return ed, apierror.NotFound("la línea %s no pertenece a la factura %s", m.LineaID, f.Numero)
		}
		if eliminar[m.LineaID] {
			return ed, apierror.Validation("la línea %s no puede modificarse y eliminarse a la vez", m.LineaID)
		}
		modificar[m.LineaID] = m
	}

	for _, l := range f.Lineas {
		if eliminar[l.ID] {
			ed.eliminadas = append(ed.eliminadas, l)
			if l.Tipo == model.LineaProducto {
				ed.deltas[l.ItemID] -= l.Cantidad
			}
			continue
		}
		m, ok := modificar[l.ID]
		if !ok {
			ed.resultado = append(ed.resultado, l)
			continue
		}
		nl, err := s.modificarLinea(ctx, f.ID, l, m)
		if err != nil {
			return ed, err
		}
		if l.Tipo == model.LineaProducto {
			ed.deltas[l.ItemID] += nl.Cantidad - l.Cantidad
		}
		ed.modificadas = append(ed.modificadas, nl)
		ed.resultado = append(ed.resultado, nl)
	}

	for _, r := range req.Agregar {
		p, err := s.resolverLinea(ctx, r)
		if err != nil {
			return ed, err
		}
		nl, err := s.construirLinea(ctx, f.ID, p)
		if err != nil {
			return ed, err
		}
		if nl.Tipo == model.LineaProducto {
			ed.deltas[nl.ItemID] += nl.Cantidad
		}
		ed.agregadas = append(ed.agregadas, nl)
		ed.resultado = append(ed.resultado, nl)
	}
	return ed, nil
}

// modificarLinea reprices a stored line, keeping what the request omits, and
// re-snapshots its commission.
func (s *facturaService) modificarLinea(ctx context.Context, facturaID uuid.UUID, l model.FacturaLinea, m dto.ModificarLineaRequest) (model.FacturaLinea, error) {
	item, err := cargarItem(ctx, s.catalogo, l.Tipo, l.ItemID)
	if err != nil {
		return model.FacturaLinea{}, err
	}
	p := lineaPlan{
		item:           item,
		cantidad:       l.Cantidad,
		precio:         l.PrecioUnitario,
		descuento:      l.DescuentoLinea,
		especialistaID: l.EspecialistaID,
		citaID:         l.CitaID,
		pendienteID:    l.PendienteID,
	}
	if m.Cantidad != nil {
		p.cantidad = *m.Cantidad
	}
	if m.PrecioUnitario != nil {
		p.precio = *m.PrecioUnitario
	}
	if m.Descuento != nil {
		p.descuento = *m.Descuento
	}
	if m.EspecialistaID != nil {
		p.especialistaID = m.EspecialistaID
	}
	if err := p.validar(); err != nil {
		return model.FacturaLinea{}, err
	}
	nl, err := s.construirLinea(ctx, facturaID, p)
	if err != nil {
		return model.FacturaLinea{}, err
	}
	nl.ID = l.ID
	nl.CreatedAt = l.CreatedAt
	return nl, nil
}

func (s *facturaService) aplicarDeltasTx(ctx context.Context, tx *gorm.DB, f *model.Factura, deltas map[uuid.UUID]int, usuarioID uuid.UUID) error {
	devolver := make(map[uuid.UUID]int)
	for _, productoID := range clavesOrdenadas(deltas) {
		d := deltas[productoID]
		if d < 0 {
			devolver[productoID] = -d
			continue
		}
		if d == 0 {
			continue
		}
		facturaID := f.ID
		_, err := s.inventario.DescontarTx(ctx, tx, Descuento{
			ProductoID: productoID,
			Cantidad:   d,
			FacturaID:  &facturaID,
			Referencia: f.Numero,
			Motivo:     fmt.Sprintf("Edición factura %s", f.Numero),
			UsuarioID:  usuarioID,
		})
		if err != nil {
			return err
		}
	}
	return s.devolverLineasTx(ctx, tx, f, devolver, usuarioID, "Edición")
}

// reemplazarPagosTx compensates the cash of the old payment set and records
// the new one in the current session.
func (s *facturaService) reemplazarPagosTx(ctx context.Context, tx *gorm.DB, f *model.Factura, sesionID uuid.UUID, reqs []dto.PagoRequest, metodos []*model.MetodoPago, usuarioID uuid.UUID) error {
	if err := s.caja.CompensarFacturaTx(ctx, tx, f.ID, f.SedeID, usuarioID, "edición de factura"); err != nil {
		return err
	}
	if err := s.repo.DeletePagos(ctx, tx, f.ID); err != nil {
		return err
	}
	pagos := construirPagos(f.ID, reqs, usuarioID, time.Now())
	for i := range pagos {
		if err := s.repo.CreatePago(ctx, tx, &pagos[i]); err != nil {
			return err
		}
	}
	f.Pagos = pagos
	return s.registrarCobroTx(ctx, tx, f, sesionID, pagos, metodos, usuarioID)
}

// sincronizarEspejosTx keeps the pending entries of an order in step with its
// lines. Entries already billed or rejected cannot follow an edit.
func (s *facturaService) sincronizarEspejosTx(ctx context.Context, tx *gorm.DB, f *model.Factura, ed *edicion, usuarioID uuid.UUID) error {
	ahora := time.Now()
	espejo := func(l model.FacturaLinea) (*model.FacturaPendiente, error) {
		if l.PendienteID == nil {
			return nil, nil
		}
		e, err := s.pendientesRepo.FindByID(ctx, tx, *l.PendienteID)
		if err != nil {
			return nil, noEncontrado(err, "entrada pendiente %s no encontrada", *l.PendienteID)
		}
		return e, nil
	}

	for _, l := range ed.eliminadas {
		e, err := espejo(l)
		if err != nil {
			return err
		}
		if e != nil && e.Activa() {
			if err := s.rechazarEntradaTx(ctx, tx, e, usuarioID, "eliminada de la orden "+f.Numero, ahora); err != nil {
				return err
			}
		}
	}
	for _, l := range ed.modificadas {
		e, err := espejo(l)
		if err != nil {
			return err
		}
		if e == nil {
			continue
		}
		if !e.Activa() {
			return apierror.InvalidState("la entrada pendiente %s ya está %s", e.ID, e.Estado)
		}
		e.Cantidad = l.Cantidad
		if err := s.pendientesRepo.Update(ctx, tx, e); err != nil {
			return err
		}
	}
	for i := range ed.agregadas {
		l := &ed.agregadas[i]
		item, err := cargarItem(ctx, s.catalogo, l.Tipo, l.ItemID)
		if err != nil {
			return err
		}
		e := s.espejo(f, lineaPlan{item: item, cantidad: l.Cantidad, especialistaID: l.EspecialistaID}, usuarioID, ahora)
		e.Notas = fmt.Sprintf("Orden %s", f.Numero)
		if err := s.pendientesRepo.Create(ctx, tx, &e); err != nil {
			return err
		}
		id := e.ID
		l.PendienteID = &id
	}
	// resultado holds copies; refresh the added lines there too.
	n := len(ed.resultado) - len(ed.agregadas)
	copy(ed.resultado[n:], ed.agregadas)
	return nil
}

// cubreRedenciones rejects an order total below the credit already applied to
// it; such an order could never be settled.
func cubreRedenciones(f *model.Factura, total decimal.Decimal) error {
	aplicado := sumarRedenciones(f.Redenciones)
	if aplicado.Sub(total).GreaterThan(tolerancia) {
		return apierror.Validation("el nuevo total de la orden %s (%s) es menor que los abonos aplicados (%s)",
			f.Numero, total.StringFixed(2), aplicado.StringFixed(2))
	}
	return nil
}
