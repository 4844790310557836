package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"
	"github.com/alejo0789/agenda-ia-sub000/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/alejo0789/agenda-ia-sub000/internal/service")

type FacturaService interface {
	// ValidarConciliacion checks that payments plus credit redemptions settle
	// total within one cent and that every credit belongs to the client.
	ValidarConciliacion(ctx context.Context, pagos []dto.PagoRequest, redenciones []dto.RedencionRequest, total decimal.Decimal, clienteID *uuid.UUID) error
	Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearFacturaRequest) (*dto.FacturaResponse, error)
	CrearOrden(ctx context.Context, usuarioID uuid.UUID, req dto.CrearOrdenRequest) (*dto.FacturaResponse, error)
	FinalizarOrden(ctx context.Context, usuarioID, facturaID uuid.UUID, req dto.FinalizarOrdenRequest) (*dto.FacturaResponse, error)
	FinalizarDesdePendientes(ctx context.Context, usuarioID uuid.UUID, req dto.FinalizarPendientesRequest) (*dto.FacturaResponse, error)
	Anular(ctx context.Context, usuarioID, facturaID uuid.UUID, motivo string) (*dto.FacturaResponse, error)
	Actualizar(ctx context.Context, usuarioID, facturaID uuid.UUID, req dto.ActualizarFacturaRequest) (*dto.FacturaResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.FacturaResponse, error)
	Listar(ctx context.Context, filter dto.FacturaFilter) (*dto.FacturaListResponse, error)
}

// FacturaDeps groups the collaborators of the invoice engine.
type FacturaDeps struct {
	Repo           repository.FacturaRepository
	Catalogo       repository.CatalogoRepository
	Abonos         repository.AbonoRepository
	PendientesRepo repository.PendienteRepository
	Config         ConfiguracionService
	Metodos        MetodoPagoService
	Caja           CajaService
	Inventario     InventarioService
	Comisiones     ComisionService
	AbonoSvc       AbonoService
	Pendientes     PendienteService
	// Dispatcher may be nil; receipts are then not queued.
	Dispatcher *worker.Dispatcher
}

type facturaService struct {
	repo           repository.FacturaRepository
	catalogo       repository.CatalogoRepository
	abonos         repository.AbonoRepository
	pendientesRepo repository.PendienteRepository
	config         ConfiguracionService
	metodos        MetodoPagoService
	caja           CajaService
	inventario     InventarioService
	comisiones     ComisionService
	abonoSvc       AbonoService
	pendientes     PendienteService
	dispatcher     *worker.Dispatcher
}

func NewFacturaService(d FacturaDeps) FacturaService {
	return &facturaService{
		repo:           d.Repo,
		catalogo:       d.Catalogo,
		abonos:         d.Abonos,
		pendientesRepo: d.PendientesRepo,
		config:         d.Config,
		metodos:        d.Metodos,
		caja:           d.Caja,
		inventario:     d.Inventario,
		comisiones:     d.Comisiones,
		abonoSvc:       d.AbonoSvc,
		pendientes:     d.Pendientes,
		dispatcher:     d.Dispatcher,
	}
}

// ── Emisión ───────────────────────────────────────────────────────────────────

// emision is a paid invoice about to be written.
type emision struct {
	sedeID           int
	clienteID        *uuid.UUID
	planes           []lineaPlan
	descuentoGeneral decimal.Decimal
	aplicaImpuesto   bool
	pagos            []dto.PagoRequest
	redenciones      []dto.RedencionRequest
	pendienteIDs     []uuid.UUID
	observaciones    *string
	clienteEmail     *string
}

func (s *facturaService) Crear(ctx context.Context, usuarioID uuid.UUID, req dto.CrearFacturaRequest) (*dto.FacturaResponse, error) {
	planes, err := s.resolverLineas(ctx, req.Lineas)
	if err != nil {
		return nil, err
	}
	ids := sinDuplicados(req.PendienteIDs)
	if len(ids) > 0 {
		if _, err := s.pendientesActivas(ctx, ids); err != nil {
			return nil, err
		}
	}
	return s.emitir(ctx, usuarioID, emision{
		sedeID:           req.SedeID,
		clienteID:        req.ClienteID,
		planes:           planes,
		descuentoGeneral: req.DescuentoGeneral,
		aplicaImpuesto:   req.AplicaImpuesto,
		pagos:            req.Pagos,
		redenciones:      req.Redenciones,
		pendienteIDs:     ids,
		observaciones:    req.Observaciones,
		clienteEmail:     req.ClienteEmail,
	})
}

// FinalizarDesdePendientes bills pending entries, plus optional extra lines,
// as one paid invoice. An order left with no active entry is voided.
func (s *facturaService) FinalizarDesdePendientes(ctx context.Context, usuarioID uuid.UUID, req dto.FinalizarPendientesRequest) (*dto.FacturaResponse, error) {
	ids := sinDuplicados(req.PendienteIDs)
	if len(ids) == 0 {
		return nil, apierror.Validation("debe indicar al menos una entrada pendiente")
	}
	entradas, err := s.pendientesActivas(ctx, ids)
	if err != nil {
		return nil, err
	}

	clienteID := req.ClienteID
	for _, e := range entradas {
		if e.ClienteID == nil {
			continue
		}
		if clienteID == nil {
			id := *e.ClienteID
			clienteID = &id
		} else if *clienteID != *e.ClienteID {
			return nil, apierror.Validation("la entrada %s pertenece a otro cliente", e.ID)
		}
	}

	planes := make([]lineaPlan, 0, len(entradas)+len(req.LineasAdicionales))
	for _, e := range entradas {
		especialista := e.EspecialistaID
		p, err := s.resolverLinea(ctx, dto.LineaFacturaRequest{
			Tipo:           string(e.Tipo),
			ItemID:         e.ItemID,
			Cantidad:       e.Cantidad,
			EspecialistaID: &especialista,
		})
		if err != nil {
			return nil, err
		}
		pendienteID := e.ID
		p.pendienteID = &pendienteID
		planes = append(planes, p)
	}
	extra, err := s.resolverLineas(ctx, req.LineasAdicionales)
	if err != nil {
		return nil, err
	}
	planes = append(planes, extra...)

	return s.emitir(ctx, usuarioID, emision{
		sedeID:           req.SedeID,
		clienteID:        clienteID,
		planes:           planes,
		descuentoGeneral: req.DescuentoGeneral,
		aplicaImpuesto:   req.AplicaImpuesto,
		pagos:            req.Pagos,
		redenciones:      req.Redenciones,
		pendienteIDs:     ids,
		clienteEmail:     req.ClienteEmail,
	})
}

// pendientesActivas loads the entries in request order; every id must exist
// and still be invoiceable.
func (s *facturaService) pendientesActivas(ctx context.Context, ids []uuid.UUID) ([]model.FacturaPendiente, error) {
	encontradas, err := s.pendientesRepo.FindByIDs(ctx, nil, ids)
	if err != nil {
		return nil, err
	}
	porID := make(map[uuid.UUID]model.FacturaPendiente, len(encontradas))
	for _, e := range encontradas {
		porID[e.ID] = e
	}
	out := make([]model.FacturaPendiente, 0, len(ids))
	for _, id := range ids {
		e, ok := porID[id]
		if !ok {
			return nil, apierror.NotFound("entrada pendiente %s no encontrada", id)
		}
		if !e.Activa() {
			return nil, apierror.InvalidState("la entrada pendiente %s está %s", id, e.Estado)
		}
		out = append(out, e)
	}
	return out, nil
}

// emitir validates everything that can be checked up front, then writes the
// invoice and all of its side effects in one transaction.
func (s *facturaService) emitir(ctx context.Context, usuarioID uuid.UUID, e emision) (*dto.FacturaResponse, error) {
	ctx, span := tracer.Start(ctx, "factura.emitir")
	defer span.End()
	span.SetAttributes(attribute.Int("sede_id", e.sedeID), attribute.Int("lineas", len(e.planes)))

	if len(e.planes) == 0 {
		return nil, apierror.Validation("la factura debe tener al menos una línea")
	}
	if e.descuentoGeneral.IsNegative() {
		return nil, apierror.Validation("el descuento general no puede ser negativo")
	}
	sesion, err := s.caja.SesionAbierta(ctx, nil, e.sedeID)
	if err != nil {
		return nil, err
	}
	tasa, err := s.tasa(ctx, e.aplicaImpuesto)
	if err != nil {
		return nil, err
	}
	tot := CalcularTotales(montosDePlanes(e.planes), e.descuentoGeneral, e.aplicaImpuesto, tasa)
	metodos, err := s.validarConciliacion(ctx, e.pagos, e.redenciones, tot.Total, e.clienteID, decimal.Zero)
	if err != nil {
		return nil, err
	}
	if err := s.verificarStock(ctx, requeridosDePlanes(e.planes)); err != nil {
		return nil, err
	}

	ahora := time.Now()
	sesionID := sesion.ID
	f := &model.Factura{
		ID:             uuid.New(),
		SedeID:         e.sedeID,
		ClienteID:      e.clienteID,
		EmitidaAt:      ahora,
		Subtotal:       tot.Subtotal,
		Descuento:      tot.Descuento,
		Impuesto:       tot.Impuesto,
		Total:          tot.Total,
		AplicaImpuesto: e.aplicaImpuesto,
		Estado:         model.FacturaEstadoPagada,
		SesionCajaID:   &sesionID,
		EmitidaPor:     usuarioID,
		Observaciones:  e.observaciones,
	}
	if f.Lineas, err = s.construirLineas(ctx, f.ID, e.planes); err != nil {
		return nil, err
	}
	f.Pagos = construirPagos(f.ID, e.pagos, usuarioID, ahora)

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numero, err := s.config.SiguienteNumero(ctx, tx)
		if err != nil {
			return err
		}
		f.Numero = numero
		if err := s.repo.Create(ctx, tx, f); err != nil {
			return err
		}
		if err := s.descontarLineasTx(ctx, tx, f, f.Lineas, usuarioID); err != nil {
			return err
		}
		if err := s.registrarCobroTx(ctx, tx, f, sesionID, f.Pagos, metodos, usuarioID); err != nil {
			return err
		}
		reds, err := s.redimirTx(ctx, tx, f, e.redenciones)
		if err != nil {
			return err
		}
		f.Redenciones = reds
		if err := s.facturarPendientesTx(ctx, tx, f, e.pendienteIDs, usuarioID); err != nil {
			return err
		}
		if err := s.completarCitasTx(ctx, tx, f.Lineas); err != nil {
			return err
		}
		return s.registrarEventoTx(ctx, tx, f, model.EventoCreada, "", model.FacturaEstadoPagada, nil, usuarioID)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("factura", f.Numero))

	log.Info().
		Str("factura", f.Numero).
		Int("sede_id", f.SedeID).
		Str("total", f.Total.StringFixed(2)).
		Msg("factura emitida")
	s.encolarComprobante(ctx, f, e.clienteEmail)
	return s.toResponse(ctx, f), nil
}

// ── Órdenes ───────────────────────────────────────────────────────────────────

// CrearOrden stores an unpaid order. Each line is mirrored as a pending entry
// so the order can later be billed through FinalizarDesdePendientes too.
func (s *facturaService) CrearOrden(ctx context.Context, usuarioID uuid.UUID, req dto.CrearOrdenRequest) (*dto.FacturaResponse, error) {
	planes, err := s.resolverLineas(ctx, req.Lineas)
	if err != nil {
		return nil, err
	}
	if req.DescuentoGeneral.IsNegative() {
		return nil, apierror.Validation("el descuento general no puede ser negativo")
	}
	tasa, err := s.tasa(ctx, req.AplicaImpuesto)
	if err != nil {
		return nil, err
	}
	tot := CalcularTotales(montosDePlanes(planes), req.DescuentoGeneral, req.AplicaImpuesto, tasa)

	ahora := time.Now()
	f := &model.Factura{
		ID:             uuid.New(),
		SedeID:         req.SedeID,
		ClienteID:      req.ClienteID,
		EmitidaAt:      ahora,
		Subtotal:       tot.Subtotal,
		Descuento:      tot.Descuento,
		Impuesto:       tot.Impuesto,
		Total:          tot.Total,
		AplicaImpuesto: req.AplicaImpuesto,
		Estado:         model.FacturaEstadoPendiente,
		EmitidaPor:     usuarioID,
		Observaciones:  req.Observaciones,
	}
	entradas := make([]model.FacturaPendiente, len(planes))
	for i := range planes {
		entradas[i] = s.espejo(f, planes[i], usuarioID, ahora)
		id := entradas[i].ID
		planes[i].pendienteID = &id
	}
	if f.Lineas, err = s.construirLineas(ctx, f.ID, planes); err != nil {
		return nil, err
	}

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numero, err := s.config.SiguienteNumero(ctx, tx)
		if err != nil {
			return err
		}
		f.Numero = numero
		if err := s.repo.Create(ctx, tx, f); err != nil {
			return err
		}
		for i := range entradas {
			entradas[i].Notas = fmt.Sprintf("Orden %s", numero)
			if err := s.pendientesRepo.Create(ctx, tx, &entradas[i]); err != nil {
				return err
			}
		}
		return s.registrarEventoTx(ctx, tx, f, model.EventoCreada, "", model.FacturaEstadoPendiente, nil, usuarioID)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("orden", f.Numero).Int("sede_id", f.SedeID).Msg("orden creada")
	return s.toResponse(ctx, f), nil
}

// espejo builds the pending entry mirroring an order line. Lines without a
// specialist are attributed to whoever created the order.
func (s *facturaService) espejo(f *model.Factura, p lineaPlan, usuarioID uuid.UUID, at time.Time) model.FacturaPendiente {
	especialista := usuarioID
	if p.especialistaID != nil {
		especialista = *p.especialistaID
	}
	ordenID := f.ID
	return model.FacturaPendiente{
		ID:             uuid.New(),
		EspecialistaID: especialista,
		ClienteID:      f.ClienteID,
		Tipo:           p.item.Tipo(),
		ItemID:         p.item.ID(),
		Cantidad:       p.cantidad,
		FechaServicio:  at,
		Estado:         model.PendienteEstadoPendiente,
		FacturaID:      &ordenID,
	}
}

// FinalizarOrden collects payment for an order and turns it into a paid
// invoice. Credit already redeemed against the order counts toward the total.
func (s *facturaService) FinalizarOrden(ctx context.Context, usuarioID, facturaID uuid.UUID, req dto.FinalizarOrdenRequest) (*dto.FacturaResponse, error) {
	f, err := s.repo.FindByID(ctx, nil, facturaID)
	if err != nil {
		return nil, noEncontrado(err, "factura %s no encontrada", facturaID)
	}
	if f.Estado != model.FacturaEstadoPendiente {
		return nil, apierror.InvalidState("la factura %s está %s; solo se finalizan órdenes pendientes", f.Numero, f.Estado)
	}
	sesion, err := s.caja.SesionAbierta(ctx, nil, f.SedeID)
	if err != nil {
		return nil, err
	}
	previo := sumarRedenciones(f.Redenciones)
	metodos, err := s.validarConciliacion(ctx, req.Pagos, req.Redenciones, f.Total, f.ClienteID, previo)
	if err != nil {
		return nil, err
	}
	if err := s.verificarStock(ctx, requeridosDeLineas(f.Lineas)); err != nil {
		return nil, err
	}
	espejos, err := s.pendientesRepo.ListPorFactura(ctx, nil, f.ID)
	if err != nil {
		return nil, err
	}
	var pendienteIDs []uuid.UUID
	for _, e := range espejos {
		if e.Activa() {
			pendienteIDs = append(pendienteIDs, e.ID)
		}
	}

	ahora := time.Now()
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		ok, err := s.repo.CambiarEstado(ctx, tx, f.ID, model.FacturaEstadoPendiente, model.FacturaEstadoPagada)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.InvalidState("la orden %s cambió de estado durante la operación", f.Numero)
		}
		sesionID := sesion.ID
		f.Estado = model.FacturaEstadoPagada
		f.SesionCajaID = &sesionID
		f.EmitidaAt = ahora
		if err := s.repo.UpdateCabecera(ctx, tx, f); err != nil {
			return err
		}

		pagos := construirPagos(f.ID, req.Pagos, usuarioID, ahora)
		for i := range pagos {
			if err := s.repo.CreatePago(ctx, tx, &pagos[i]); err != nil {
				return err
			}
		}
		f.Pagos = append(f.Pagos, pagos...)
		if err := s.descontarLineasTx(ctx, tx, f, f.Lineas, usuarioID); err != nil {
			return err
		}
		if err := s.registrarCobroTx(ctx, tx, f, sesionID, pagos, metodos, usuarioID); err != nil {
			return err
		}
		reds, err := s.redimirTx(ctx, tx, f, req.Redenciones)
		if err != nil {
			return err
		}
		f.Redenciones = append(f.Redenciones, reds...)
		if len(pendienteIDs) > 0 {
			if err := s.pendientes.MarcarFacturadasTx(ctx, tx, pendienteIDs, f.ID, usuarioID); err != nil {
				return err
			}
		}
		if err := s.completarCitasTx(ctx, tx, f.Lineas); err != nil {
			return err
		}
		return s.registrarEventoTx(ctx, tx, f, model.EventoPagada, model.FacturaEstadoPendiente, model.FacturaEstadoPagada, nil, usuarioID)
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("factura", f.Numero).Str("total", f.Total.StringFixed(2)).Msg("orden finalizada")
	s.encolarComprobante(ctx, f, req.ClienteEmail)
	return s.toResponse(ctx, f), nil
}

// ── Efectos dentro de la transacción ──────────────────────────────────────────

func (s *facturaService) descontarLineasTx(ctx context.Context, tx *gorm.DB, f *model.Factura, lineas []model.FacturaLinea, usuarioID uuid.UUID) error {
	requeridos := requeridosDeLineas(lineas)
	for _, productoID := range clavesOrdenadas(requeridos) {
		facturaID := f.ID
		_, err := s.inventario.DescontarTx(ctx, tx, Descuento{
			ProductoID: productoID,
			Cantidad:   requeridos[productoID],
			FacturaID:  &facturaID,
			Referencia: f.Numero,
			Motivo:     fmt.Sprintf("Venta factura %s", f.Numero),
			UsuarioID:  usuarioID,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// registrarCobroTx records cash payments as income of the session.
func (s *facturaService) registrarCobroTx(ctx context.Context, tx *gorm.DB, f *model.Factura, sesionID uuid.UUID, pagos []model.Pago, metodos []*model.MetodoPago, usuarioID uuid.UUID) error {
	for i, p := range pagos {
		if !metodos[i].EsEfectivo {
			continue
		}
		facturaID := f.ID
		metodoID := p.MetodoPagoID
		mov := &model.MovimientoCaja{
			SesionCajaID: sesionID,
			Tipo:         model.MovimientoIngreso,
			Monto:        p.Monto,
			Descripcion:  fmt.Sprintf("Cobro factura %s", f.Numero),
			FacturaID:    &facturaID,
			MetodoPagoID: &metodoID,
			CreadoPor:    usuarioID,
		}
		if err := s.caja.RegistrarMovimientoTx(ctx, tx, mov); err != nil {
			return err
		}
	}
	return nil
}

func (s *facturaService) redimirTx(ctx context.Context, tx *gorm.DB, f *model.Factura, reds []dto.RedencionRequest) ([]model.RedencionAbono, error) {
	out := make([]model.RedencionAbono, 0, len(reds))
	for _, r := range reds {
		red, err := s.abonoSvc.RedimirTx(ctx, tx, Redencion{
			AbonoID:   r.AbonoID,
			FacturaID: f.ID,
			ClienteID: f.ClienteID,
			Monto:     r.Monto,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, *red)
	}
	return out, nil
}

// facturarPendientesTx marks the entries as billed by f and voids every order
// that no longer holds an active entry.
func (s *facturaService) facturarPendientesTx(ctx context.Context, tx *gorm.DB, f *model.Factura, ids []uuid.UUID, usuarioID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	entradas, err := s.pendientesRepo.FindByIDs(ctx, tx, ids)
	if err != nil {
		return err
	}
	var ordenes []uuid.UUID
	vistas := make(map[uuid.UUID]bool)
	for _, e := range entradas {
		if e.FacturaID != nil && *e.FacturaID != f.ID && !vistas[*e.FacturaID] {
			vistas[*e.FacturaID] = true
			ordenes = append(ordenes, *e.FacturaID)
		}
	}

	if err := s.pendientes.MarcarFacturadasTx(ctx, tx, ids, f.ID, usuarioID); err != nil {
		return err
	}

	for _, ordenID := range ordenes {
		restantes, err := s.pendientesRepo.ListPorFactura(ctx, tx, ordenID)
		if err != nil {
			return err
		}
		activas := 0
		for _, r := range restantes {
			if r.Activa() {
				activas++
			}
		}
		if activas > 0 {
			continue
		}
		ok, err := s.repo.CambiarEstado(ctx, tx, ordenID, model.FacturaEstadoPendiente, model.FacturaEstadoAnulada)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		motivo := fmt.Sprintf("Reemplazada por factura %s", f.Numero)
		orden := &model.Factura{ID: ordenID}
		if err := s.registrarEventoTx(ctx, tx, orden, model.EventoReemplazada, model.FacturaEstadoPendiente, model.FacturaEstadoAnulada, &motivo, usuarioID); err != nil {
			return err
		}
		log.Info().Str("orden_id", ordenID.String()).Str("factura", f.Numero).Msg("orden reemplazada")
	}
	return nil
}

func (s *facturaService) completarCitasTx(ctx context.Context, tx *gorm.DB, lineas []model.FacturaLinea) error {
	vistas := make(map[uuid.UUID]bool)
	for _, l := range lineas {
		if l.CitaID == nil || vistas[*l.CitaID] {
			continue
		}
		vistas[*l.CitaID] = true
		if err := s.catalogo.CompletarCita(ctx, tx, *l.CitaID); err != nil {
			return noEncontrado(err, "cita %s no encontrada", *l.CitaID)
		}
	}
	return nil
}

func (s *facturaService) registrarEventoTx(ctx context.Context, tx *gorm.DB, f *model.Factura, accion, de, a string, motivo *string, usuarioID uuid.UUID) error {
	ev := model.FacturaEvento{
		FacturaID: f.ID,
		Accion:    accion,
		EstadoDe:  de,
		EstadoA:   a,
		Motivo:    motivo,
		UsuarioID: usuarioID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateEvento(ctx, tx, &ev); err != nil {
		return err
	}
	f.Eventos = append(f.Eventos, ev)
	return nil
}

// encolarComprobante queues the PDF receipt. Best effort: the invoice is
// already committed.
func (s *facturaService) encolarComprobante(ctx context.Context, f *model.Factura, email *string) {
	if s.dispatcher == nil {
		return
	}
	payload := worker.ComprobanteJobPayload{FacturaID: f.ID.String()}
	if email != nil && *email != "" {
		payload.ClienteEmail = *email
	}
	if err := s.dispatcher.EnqueueComprobante(ctx, payload); err != nil {
		log.Warn().Err(err).Str("factura", f.Numero).Msg("no se pudo encolar el comprobante")
	}
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *facturaService) Obtener(ctx context.Context, id uuid.UUID) (*dto.FacturaResponse, error) {
	f, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, noEncontrado(err, "factura %s no encontrada", id)
	}
	return s.toResponse(ctx, f), nil
}

func (s *facturaService) Listar(ctx context.Context, filter dto.FacturaFilter) (*dto.FacturaListResponse, error) {
	rf := repository.FacturaFilter{
		SedeID: filter.SedeID,
		Estado: filter.Estado,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.ClienteID != "" {
		id, err := uuid.Parse(filter.ClienteID)
		if err != nil {
			return nil, apierror.Validation("cliente_id inválido")
		}
		rf.ClienteID = &id
	}
	if filter.Desde != "" {
		t, err := time.Parse("2006-01-02", filter.Desde)
		if err != nil {
			return nil, apierror.Validation("fecha desde inválida")
		}
		rf.Desde = &t
	}
	if filter.Hasta != "" {
		t, err := time.Parse("2006-01-02", filter.Hasta)
		if err != nil {
			return nil, apierror.Validation("fecha hasta inválida")
		}
		// inclusive: up to the end of that day
		t = t.Add(24*time.Hour - time.Nanosecond)
		rf.Hasta = &t
	}

	facturas, total, err := s.repo.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	data := make([]dto.FacturaResponse, 0, len(facturas))
	for i := range facturas {
		resp := s.toResponse(ctx, &facturas[i])
		resp.Eventos = nil
		data = append(data, *resp)
	}
	return &dto.FacturaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *facturaService) toResponse(ctx context.Context, f *model.Factura) *dto.FacturaResponse {
	resp := &dto.FacturaResponse{
		ID:              f.ID,
		Numero:          f.Numero,
		SedeID:          f.SedeID,
		ClienteID:       f.ClienteID,
		Estado:          f.Estado,
		EmitidaAt:       f.EmitidaAt,
		Subtotal:        f.Subtotal,
		Descuento:       f.Descuento,
		Impuesto:        f.Impuesto,
		Total:           f.Total,
		SesionCajaID:    f.SesionCajaID,
		Observaciones:   f.Observaciones,
		Lineas:          make([]dto.LineaFacturaResponse, 0, len(f.Lineas)),
		Pagos:           make([]dto.PagoResponse, 0, len(f.Pagos)),
		Redenciones:     make([]dto.RedencionResponse, 0, len(f.Redenciones)),
		TotalComisiones: decimal.Zero,
	}
	for _, l := range f.Lineas {
		nombre := ""
		if item, err := cargarItem(ctx, s.catalogo, l.Tipo, l.ItemID); err == nil {
			nombre = item.Nombre()
		}
		resp.Lineas = append(resp.Lineas, dto.LineaFacturaResponse{
			ID:             l.ID,
			Tipo:           string(l.Tipo),
			ItemID:         l.ItemID,
			Nombre:         nombre,
			Cantidad:       l.Cantidad,
			PrecioUnitario: l.PrecioUnitario,
			Descuento:      l.DescuentoLinea,
			Subtotal:       l.Subtotal,
			EspecialistaID: l.EspecialistaID,
			CitaID:         l.CitaID,
			PendienteID:    l.PendienteID,
			Comision: dto.ComisionLineaResponse{
				Tipo:  l.ComisionTipo,
				Valor: l.ComisionValor,
				Monto: l.ComisionMonto,
			},
		})
		resp.TotalComisiones = resp.TotalComisiones.Add(l.ComisionMonto)
	}
	for _, p := range f.Pagos {
		resp.Pagos = append(resp.Pagos, dto.PagoResponse{
			ID:           p.ID,
			MetodoPagoID: p.MetodoPagoID,
			Monto:        p.Monto,
			Referencia:   p.Referencia,
			PagadoAt:     p.PagadoAt,
		})
	}
	for _, r := range f.Redenciones {
		resp.Redenciones = append(resp.Redenciones, redencionToResponse(r))
	}
	for _, e := range f.Eventos {
		resp.Eventos = append(resp.Eventos, dto.EventoFacturaResponse{
			Accion:    e.Accion,
			EstadoDe:  e.EstadoDe,
			EstadoA:   e.EstadoA,
			Motivo:    e.Motivo,
			UsuarioID: e.UsuarioID,
			CreatedAt: e.CreatedAt,
		})
	}
	return resp
}
