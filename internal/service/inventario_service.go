package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Descuento describes a sale deduction across sedes.
type Descuento struct {
	ProductoID uuid.UUID
	Cantidad   int
	FacturaID  *uuid.UUID
	Referencia string
	Motivo     string
	UsuarioID  uuid.UUID
}

// Devolucion describes stock coming back. With a FacturaID the quantity goes
// back to the sedes the invoice took it from; the rest (or everything, when
// there is no invoice) lands at SedeID or the default return sede.
type Devolucion struct {
	ProductoID uuid.UUID
	Cantidad   int
	SedeID     *int
	FacturaID  *uuid.UUID
	Referencia string
	Motivo     string
	UsuarioID  uuid.UUID
}

// InventarioService is the per-sede stock ledger. Stock never goes negative
// and every change leaves a MovimientoInventario.
type InventarioService interface {
	StockDe(ctx context.Context, productoID uuid.UUID, sedeID int) (*dto.StockResponse, error)
	// Disponible sums the product's stock over every sede.
	Disponible(ctx context.Context, productoID uuid.UUID) (int, error)
	Ajustar(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteStockRequest) (*dto.AjusteStockResponse, error)
	Trasladar(ctx context.Context, usuarioID uuid.UUID, req dto.TrasladoRequest) (*dto.MovimientoInventarioResponse, error)
	ConteoMasivo(ctx context.Context, usuarioID uuid.UUID, req dto.ConteoMasivoRequest) (*dto.ConteoMasivoResponse, error)
	RegistrarCompra(ctx context.Context, usuarioID uuid.UUID, req dto.CompraRequest) (*dto.MovimientoInventarioResponse, error)
	RegistrarSalida(ctx context.Context, usuarioID uuid.UUID, req dto.SalidaRequest) (*dto.MovimientoInventarioResponse, error)
	AnularMovimiento(ctx context.Context, usuarioID, movimientoID uuid.UUID, motivo string) (*dto.MovimientoInventarioResponse, error)
	ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error)
	// RegistrarDescuento and RegistrarDevolucion expose Descontar and Devolver
	// for stock that moves outside the invoice flow.
	RegistrarDescuento(ctx context.Context, usuarioID uuid.UUID, req dto.DescuentoStockRequest) ([]dto.MovimientoInventarioResponse, error)
	RegistrarDevolucion(ctx context.Context, usuarioID uuid.UUID, req dto.DevolucionStockRequest) ([]dto.MovimientoInventarioResponse, error)

	Descontar(ctx context.Context, d Descuento) ([]model.MovimientoInventario, error)
	// DescontarTx takes stock greedily from the lowest sede id upward. All or
	// nothing: a shortfall fails before any row is touched.
	DescontarTx(ctx context.Context, tx *gorm.DB, d Descuento) ([]model.MovimientoInventario, error)
	Devolver(ctx context.Context, d Devolucion) ([]model.MovimientoInventario, error)
	DevolverTx(ctx context.Context, tx *gorm.DB, d Devolucion) ([]model.MovimientoInventario, error)
}

type inventarioService struct {
	repo     repository.InventarioRepository
	catalogo repository.CatalogoRepository
}

func NewInventarioService(repo repository.InventarioRepository, catalogo repository.CatalogoRepository) InventarioService {
	return &inventarioService{repo: repo, catalogo: catalogo}
}

func (s *inventarioService) producto(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	p, err := s.catalogo.FindProducto(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "producto %s no encontrado", id)
	}
	return p, nil
}

func errStockInsuficiente(p *model.Producto, sede string, disponible, solicitado int) error {
	return apierror.Validation("stock insuficiente de %q en %s: disponible %d, solicitado %d, faltan %d",
		p.Nombre, sede, disponible, solicitado, solicitado-disponible)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *inventarioService) StockDe(ctx context.Context, productoID uuid.UUID, sedeID int) (*dto.StockResponse, error) {
	if _, err := s.producto(ctx, productoID); err != nil {
		return nil, err
	}
	cantidad, err := s.repo.GetStock(ctx, nil, productoID, sedeID)
	if err != nil {
		return nil, err
	}
	return &dto.StockResponse{ProductoID: productoID, SedeID: sedeID, Cantidad: cantidad}, nil
}

func (s *inventarioService) Disponible(ctx context.Context, productoID uuid.UUID) (int, error) {
	filas, err := s.repo.LockStock(ctx, nil, productoID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, f := range filas {
		total += f.Cantidad
	}
	return total, nil
}

func (s *inventarioService) ListarMovimientos(ctx context.Context, filter dto.MovimientoFilter) (*dto.MovimientoListResponse, error) {
	rf := repository.MovimientoFilter{SedeID: filter.SedeID, Tipo: filter.Tipo, Page: filter.Page, Limit: filter.Limit}
	if filter.ProductoID != "" {
		id, err := uuid.Parse(filter.ProductoID)
		if err != nil {
			return nil, apierror.Validation("producto_id inválido")
		}
		rf.ProductoID = &id
	}
	if filter.FacturaID != "" {
		id, err := uuid.Parse(filter.FacturaID)
		if err != nil {
			return nil, apierror.Validation("factura_id inválido")
		}
		rf.FacturaID = &id
	}
	movs, total, err := s.repo.ListMovimientos(ctx, rf)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovimientoInventarioResponse, 0, len(movs))
	for _, m := range movs {
		data = append(data, movimientoInventarioToResponse(m))
	}
	return &dto.MovimientoListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Ajustes ───────────────────────────────────────────────────────────────────

func (s *inventarioService) Ajustar(ctx context.Context, usuarioID uuid.UUID, req dto.AjusteStockRequest) (*dto.AjusteStockResponse, error) {
	if req.NuevaCantidad < 0 {
		return nil, apierror.Validation("la nueva cantidad no puede ser negativa")
	}
	if _, err := s.producto(ctx, req.ProductoID); err != nil {
		return nil, err
	}
	var resp *dto.AjusteStockResponse
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		resp, err = s.ajustarTx(ctx, tx, usuarioID, req.ProductoID, req.SedeID, req.NuevaCantidad, req.Motivo)
		return err
	})
	return resp, err
}

// ajustarTx sets the stock of one (product, sede) to nuevaCantidad, writing an
// ajuste movement for the difference. No difference, no movement.
func (s *inventarioService) ajustarTx(ctx context.Context, tx *gorm.DB, usuarioID, productoID uuid.UUID, sedeID, nuevaCantidad int, motivo string) (*dto.AjusteStockResponse, error) {
	anterior, err := s.repo.LockStockSede(ctx, tx, productoID, sedeID)
	if err != nil {
		return nil, err
	}
	delta := nuevaCantidad - anterior
	resp := &dto.AjusteStockResponse{
		ProductoID:    productoID,
		SedeID:        sedeID,
		StockAnterior: anterior,
		StockNuevo:    nuevaCantidad,
		Diferencia:    delta,
	}
	if delta == 0 {
		return resp, nil
	}

	sede := sedeID
	mov := model.MovimientoInventario{ProductoID: productoID, Motivo: motivo, Referencia: "ajuste", RealizadoPor: usuarioID}
	if delta > 0 {
		if err := s.repo.IncrementarStock(ctx, tx, productoID, sedeID, delta); err != nil {
			return nil, err
		}
		mov.Tipo = model.MovAjustePositivo
		mov.Cantidad = delta
		mov.SedeDestinoID = &sede
	} else {
		ok, err := s.repo.DecrementarStock(ctx, tx, productoID, sedeID, -delta)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apierror.Conflict("el stock del producto %s en la sede %d cambió durante el ajuste", productoID, sedeID)
		}
		mov.Tipo = model.MovAjusteNegativo
		mov.Cantidad = -delta
		mov.SedeOrigenID = &sede
	}
	if err := s.repo.CreateMovimiento(ctx, tx, &mov); err != nil {
		return nil, err
	}
	r := movimientoInventarioToResponse(mov)
	resp.Movimiento = &r
	resp.Ajustado = true
	return resp, nil
}

func (s *inventarioService) ConteoMasivo(ctx context.Context, usuarioID uuid.UUID, req dto.ConteoMasivoRequest) (*dto.ConteoMasivoResponse, error) {
	type clave struct {
		producto uuid.UUID
		sede     int
	}
	vistos := make(map[clave]bool, len(req.Items))
	sedes := make([]int, len(req.Items))
	for i, it := range req.Items {
		if it.Cantidad < 0 {
			return nil, apierror.Validation("la cantidad contada del producto %s no puede ser negativa", it.ProductoID)
		}
		sedes[i] = it.SedeID
		if sedes[i] == 0 {
			sedes[i] = req.SedeID
		}
		if sedes[i] <= 0 {
			return nil, apierror.Validation("el producto %s no indica sede", it.ProductoID)
		}
		k := clave{it.ProductoID, sedes[i]}
		if vistos[k] {
			return nil, apierror.Validation("el producto %s aparece más de una vez en el conteo de la sede %d", it.ProductoID, sedes[i])
		}
		vistos[k] = true
		if _, err := s.producto(ctx, it.ProductoID); err != nil {
			return nil, err
		}
	}

	resp := &dto.ConteoMasivoResponse{SedeID: req.SedeID}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		for i, it := range req.Items {
			ajuste, err := s.ajustarTx(ctx, tx, usuarioID, it.ProductoID, sedes[i], it.Cantidad, req.Motivo)
			if err != nil {
				return err
			}
			resp.Ajustes = append(resp.Ajustes, *ajuste)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Int("sede_id", req.SedeID).Int("items", len(req.Items)).Msg("conteo físico aplicado")
	return resp, nil
}

// ── Traslados, compras y salidas ──────────────────────────────────────────────

func (s *inventarioService) Trasladar(ctx context.Context, usuarioID uuid.UUID, req dto.TrasladoRequest) (*dto.MovimientoInventarioResponse, error) {
	if req.SedeOrigenID == req.SedeDestinoID {
		return nil, apierror.Validation("la sede de origen y la de destino deben ser distintas")
	}
	if req.Cantidad <= 0 {
		return nil, apierror.Validation("la cantidad a trasladar debe ser mayor a cero")
	}
	p, err := s.producto(ctx, req.ProductoID)
	if err != nil {
		return nil, err
	}

	var mov model.MovimientoInventario
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		disponible, err := s.repo.LockStockSede(ctx, tx, req.ProductoID, req.SedeOrigenID)
		if err != nil {
			return err
		}
		if disponible < req.Cantidad {
			return apierror.Conflict("stock insuficiente de %q en la sede %d: disponible %d, solicitado %d",
				p.Nombre, req.SedeOrigenID, disponible, req.Cantidad)
		}
		mov, err = s.moverTx(ctx, tx, p, req.SedeOrigenID, req.SedeDestinoID, req.Cantidad, usuarioID, req.Motivo, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := movimientoInventarioToResponse(mov)
	return &resp, nil
}

// moverTx moves stock between two sedes and records a traslado movement.
func (s *inventarioService) moverTx(ctx context.Context, tx *gorm.DB, p *model.Producto, origen, destino, cantidad int, usuarioID uuid.UUID, motivo string, revierte *uuid.UUID) (model.MovimientoInventario, error) {
	ok, err := s.repo.DecrementarStock(ctx, tx, p.ID, origen, cantidad)
	if err != nil {
		return model.MovimientoInventario{}, err
	}
	if !ok {
		disponible, _ := s.repo.GetStock(ctx, tx, p.ID, origen)
		return model.MovimientoInventario{}, errStockInsuficiente(p, fmt.Sprintf("la sede %d", origen), disponible, cantidad)
	}
	if err := s.repo.IncrementarStock(ctx, tx, p.ID, destino, cantidad); err != nil {
		return model.MovimientoInventario{}, err
	}
	o, d := origen, destino
	mov := model.MovimientoInventario{
		ProductoID:           p.ID,
		Tipo:                 model.MovTraslado,
		Cantidad:             cantidad,
		SedeOrigenID:         &o,
		SedeDestinoID:        &d,
		Motivo:               motivo,
		Referencia:           "traslado",
		RevierteMovimientoID: revierte,
		RealizadoPor:         usuarioID,
	}
	return mov, s.repo.CreateMovimiento(ctx, tx, &mov)
}

func (s *inventarioService) RegistrarCompra(ctx context.Context, usuarioID uuid.UUID, req dto.CompraRequest) (*dto.MovimientoInventarioResponse, error) {
	if req.Cantidad <= 0 {
		return nil, apierror.Validation("la cantidad comprada debe ser mayor a cero")
	}
	if _, err := s.producto(ctx, req.ProductoID); err != nil {
		return nil, err
	}
	sede := req.SedeID
	mov := model.MovimientoInventario{
		ProductoID:    req.ProductoID,
		Tipo:          model.MovCompra,
		Cantidad:      req.Cantidad,
		SedeDestinoID: &sede,
		CostoUnitario: req.CostoUnitario,
		Motivo:        req.Motivo,
		Referencia:    req.Referencia,
		RealizadoPor:  usuarioID,
	}
	if req.CostoUnitario != nil {
		total := req.CostoUnitario.Mul(decimal.NewFromInt(int64(req.Cantidad)))
		mov.CostoTotal = &total
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.IncrementarStock(ctx, tx, req.ProductoID, req.SedeID, req.Cantidad); err != nil {
			return err
		}
		return s.repo.CreateMovimiento(ctx, tx, &mov)
	})
	if err != nil {
		return nil, err
	}
	resp := movimientoInventarioToResponse(mov)
	return &resp, nil
}

func (s *inventarioService) RegistrarSalida(ctx context.Context, usuarioID uuid.UUID, req dto.SalidaRequest) (*dto.MovimientoInventarioResponse, error) {
	tipo := model.TipoMovimiento(req.Tipo)
	switch tipo {
	case model.MovUsoInterno, model.MovMerma, model.MovMuestra, model.MovDonacion:
	default:
		return nil, apierror.Validation("tipo de salida inválido: %q", req.Tipo)
	}
	if req.Cantidad <= 0 {
		return nil, apierror.Validation("la cantidad debe ser mayor a cero")
	}
	p, err := s.producto(ctx, req.ProductoID)
	if err != nil {
		return nil, err
	}

	sede := req.SedeID
	mov := model.MovimientoInventario{
		ProductoID:   req.ProductoID,
		Tipo:         tipo,
		Cantidad:     req.Cantidad,
		SedeOrigenID: &sede,
		Motivo:       req.Motivo,
		Referencia:   string(tipo),
		RealizadoPor: usuarioID,
	}
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.retirarTx(ctx, tx, p, req.SedeID, req.Cantidad); err != nil {
			return err
		}
		return s.repo.CreateMovimiento(ctx, tx, &mov)
	})
	if err != nil {
		return nil, err
	}
	resp := movimientoInventarioToResponse(mov)
	return &resp, nil
}

// retirarTx removes cantidad from one sede or fails naming the shortfall.
func (s *inventarioService) retirarTx(ctx context.Context, tx *gorm.DB, p *model.Producto, sedeID, cantidad int) error {
	disponible, err := s.repo.LockStockSede(ctx, tx, p.ID, sedeID)
	if err != nil {
		return err
	}
	if disponible < cantidad {
		return errStockInsuficiente(p, fmt.Sprintf("la sede %d", sedeID), disponible, cantidad)
	}
	ok, err := s.repo.DecrementarStock(ctx, tx, p.ID, sedeID, cantidad)
	if err != nil {
		return err
	}
	if !ok {
		return apierror.Conflict("el stock de %q en la sede %d cambió durante la operación", p.Nombre, sedeID)
	}
	return nil
}

// ── Ventas ────────────────────────────────────────────────────────────────────

func (s *inventarioService) RegistrarDescuento(ctx context.Context, usuarioID uuid.UUID, req dto.DescuentoStockRequest) ([]dto.MovimientoInventarioResponse, error) {
	movs, err := s.Descontar(ctx, Descuento{
		ProductoID: req.ProductoID,
		Cantidad:   req.Cantidad,
		FacturaID:  req.FacturaID,
		Referencia: req.Referencia,
		Motivo:     req.Motivo,
		UsuarioID:  usuarioID,
	})
	if err != nil {
		return nil, err
	}
	return movimientosToResponse(movs), nil
}

func (s *inventarioService) RegistrarDevolucion(ctx context.Context, usuarioID uuid.UUID, req dto.DevolucionStockRequest) ([]dto.MovimientoInventarioResponse, error) {
	movs, err := s.Devolver(ctx, Devolucion{
		ProductoID: req.ProductoID,
		Cantidad:   req.Cantidad,
		SedeID:     req.SedeID,
		FacturaID:  req.FacturaID,
		Referencia: req.Referencia,
		Motivo:     req.Motivo,
		UsuarioID:  usuarioID,
	})
	if err != nil {
		return nil, err
	}
	return movimientosToResponse(movs), nil
}

func movimientosToResponse(movs []model.MovimientoInventario) []dto.MovimientoInventarioResponse {
	out := make([]dto.MovimientoInventarioResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, movimientoInventarioToResponse(m))
	}
	return out
}

func (s *inventarioService) Descontar(ctx context.Context, d Descuento) ([]model.MovimientoInventario, error) {
	var movs []model.MovimientoInventario
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		movs, err = s.DescontarTx(ctx, tx, d)
		return err
	})
	return movs, err
}

func (s *inventarioService) DescontarTx(ctx context.Context, tx *gorm.DB, d Descuento) ([]model.MovimientoInventario, error) {
	if d.Cantidad <= 0 {
		return nil, apierror.Validation("la cantidad a descontar debe ser mayor a cero")
	}
	p, err := s.producto(ctx, d.ProductoID)
	if err != nil {
		return nil, err
	}

	filas, err := s.repo.LockStock(ctx, tx, d.ProductoID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, f := range filas {
		total += f.Cantidad
	}
	if total < d.Cantidad {
		return nil, errStockInsuficiente(p, "todas las sedes", total, d.Cantidad)
	}

	type toma struct{ sede, cantidad int }
	var plan []toma
	restante := d.Cantidad
	for _, f := range filas {
		if restante == 0 {
			break
		}
		if f.Cantidad <= 0 {
			continue
		}
		n := min(f.Cantidad, restante)
		plan = append(plan, toma{sede: f.SedeID, cantidad: n})
		restante -= n
	}

	movs := make([]model.MovimientoInventario, 0, len(plan))
	for _, t := range plan {
		ok, err := s.repo.DecrementarStock(ctx, tx, d.ProductoID, t.sede, t.cantidad)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apierror.Conflict("el stock de %q en la sede %d cambió durante la venta", p.Nombre, t.sede)
		}
		sede := t.sede
		mov := model.MovimientoInventario{
			ProductoID:   d.ProductoID,
			Tipo:         model.MovVenta,
			Cantidad:     t.cantidad,
			SedeOrigenID: &sede,
			Motivo:       d.Motivo,
			Referencia:   d.Referencia,
			FacturaID:    d.FacturaID,
			RealizadoPor: d.UsuarioID,
		}
		if err := s.repo.CreateMovimiento(ctx, tx, &mov); err != nil {
			return nil, err
		}
		movs = append(movs, mov)
	}
	return movs, nil
}

func (s *inventarioService) Devolver(ctx context.Context, d Devolucion) ([]model.MovimientoInventario, error) {
	var movs []model.MovimientoInventario
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		var err error
		movs, err = s.DevolverTx(ctx, tx, d)
		return err
	})
	return movs, err
}

func (s *inventarioService) DevolverTx(ctx context.Context, tx *gorm.DB, d Devolucion) ([]model.MovimientoInventario, error) {
	if d.Cantidad <= 0 {
		return nil, apierror.Validation("la cantidad a devolver debe ser mayor a cero")
	}
	if _, err := s.producto(ctx, d.ProductoID); err != nil {
		return nil, err
	}

	type entrega struct{ sede, cantidad int }
	var plan []entrega
	restante := d.Cantidad

	if d.FacturaID != nil {
		pendiente, err := s.vendidoSinDevolver(ctx, tx, *d.FacturaID, d.ProductoID)
		if err != nil {
			return nil, err
		}
		for _, v := range pendiente {
			if restante == 0 {
				break
			}
			n := min(v.cantidad, restante)
			plan = append(plan, entrega{sede: v.sede, cantidad: n})
			restante -= n
		}
	}
	if restante > 0 {
		sede, err := s.sedeDevolucion(ctx, tx, d.SedeID)
		if err != nil {
			return nil, err
		}
		plan = append(plan, entrega{sede: sede, cantidad: restante})
	}

	movs := make([]model.MovimientoInventario, 0, len(plan))
	for _, e := range plan {
		if err := s.repo.IncrementarStock(ctx, tx, d.ProductoID, e.sede, e.cantidad); err != nil {
			return nil, err
		}
		sede := e.sede
		mov := model.MovimientoInventario{
			ProductoID:    d.ProductoID,
			Tipo:          model.MovDevolucion,
			Cantidad:      e.cantidad,
			SedeDestinoID: &sede,
			Motivo:        d.Motivo,
			Referencia:    d.Referencia,
			FacturaID:     d.FacturaID,
			RealizadoPor:  d.UsuarioID,
		}
		if err := s.repo.CreateMovimiento(ctx, tx, &mov); err != nil {
			return nil, err
		}
		movs = append(movs, mov)
	}
	return movs, nil
}

type porSede struct{ sede, cantidad int }

// vendidoSinDevolver returns, per sede ascending, what the invoice took and
// has not yet given back.
func (s *inventarioService) vendidoSinDevolver(ctx context.Context, tx *gorm.DB, facturaID, productoID uuid.UUID) ([]porSede, error) {
	movs, err := s.repo.ListMovimientosPorFactura(ctx, tx, facturaID, productoID)
	if err != nil {
		return nil, err
	}
	neto := make(map[int]int)
	var orden []int
	for _, m := range movs {
		switch {
		case m.Tipo == model.MovVenta && m.SedeOrigenID != nil:
			if _, ok := neto[*m.SedeOrigenID]; !ok {
				orden = append(orden, *m.SedeOrigenID)
			}
			neto[*m.SedeOrigenID] += m.Cantidad
		case m.Tipo == model.MovDevolucion && m.SedeDestinoID != nil:
			neto[*m.SedeDestinoID] -= m.Cantidad
		}
	}
	slices.Sort(orden)
	out := make([]porSede, 0, len(orden))
	for _, sede := range orden {
		if neto[sede] > 0 {
			out = append(out, porSede{sede: sede, cantidad: neto[sede]})
		}
	}
	return out, nil
}

func (s *inventarioService) sedeDevolucion(ctx context.Context, tx *gorm.DB, pedida *int) (int, error) {
	if pedida != nil {
		return *pedida, nil
	}
	sede, err := s.catalogo.FindSedeDevolucion(ctx, tx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apierror.Validation("no hay sede configurada para devoluciones")
		}
		return 0, err
	}
	return sede.ID, nil
}

// ── AnularMovimiento ──────────────────────────────────────────────────────────
// Appends the inverse movement. Sale stock is only reversed by voiding the
// invoice.

func (s *inventarioService) AnularMovimiento(ctx context.Context, usuarioID, movimientoID uuid.UUID, motivo string) (*dto.MovimientoInventarioResponse, error) {
	var inverso model.MovimientoInventario
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		orig, err := s.repo.FindMovimiento(ctx, tx, movimientoID)
		if err != nil {
			return noEncontrado(err, "movimiento %s no encontrado", movimientoID)
		}
		if orig.Tipo == model.MovVenta || (orig.Tipo == model.MovDevolucion && orig.FacturaID != nil) {
			return apierror.InvalidState("los movimientos de factura se revierten anulando la factura")
		}
		if orig.RevierteMovimientoID != nil {
			return apierror.InvalidState("el movimiento %s ya es un reverso y no puede anularse", movimientoID)
		}
		if _, err := s.repo.FindReversion(ctx, tx, movimientoID); err == nil {
			return apierror.InvalidState("el movimiento %s ya fue anulado", movimientoID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		p, err := s.producto(ctx, orig.ProductoID)
		if err != nil {
			return err
		}
		motivoRev := fmt.Sprintf("Anulación de %s: %s", orig.ID, motivo)
		origID := orig.ID

		switch {
		case orig.Tipo == model.MovTraslado:
			inverso, err = s.moverTx(ctx, tx, p, *orig.SedeDestinoID, *orig.SedeOrigenID, orig.Cantidad, usuarioID, motivoRev, &origID)
			return err
		case orig.EsEntrada():
			sede := *orig.SedeDestinoID
			if err := s.retirarTx(ctx, tx, p, sede, orig.Cantidad); err != nil {
				return err
			}
			inverso = model.MovimientoInventario{Tipo: model.MovAjusteNegativo, SedeOrigenID: &sede}
		case orig.EsSalida():
			sede := *orig.SedeOrigenID
			if err := s.repo.IncrementarStock(ctx, tx, p.ID, sede, orig.Cantidad); err != nil {
				return err
			}
			inverso = model.MovimientoInventario{Tipo: model.MovAjustePositivo, SedeDestinoID: &sede}
		default:
			return apierror.Validation("tipo de movimiento desconocido: %q", orig.Tipo)
		}
		inverso.ProductoID = p.ID
		inverso.Cantidad = orig.Cantidad
		inverso.Motivo = motivoRev
		inverso.Referencia = "anulacion"
		inverso.RevierteMovimientoID = &origID
		inverso.RealizadoPor = usuarioID
		return s.repo.CreateMovimiento(ctx, tx, &inverso)
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("movimiento_id", movimientoID.String()).Str("reverso_id", inverso.ID.String()).Msg("movimiento de inventario anulado")
	resp := movimientoInventarioToResponse(inverso)
	return &resp, nil
}

func movimientoInventarioToResponse(m model.MovimientoInventario) dto.MovimientoInventarioResponse {
	return dto.MovimientoInventarioResponse{
		ID:                   m.ID,
		ProductoID:           m.ProductoID,
		Tipo:                 string(m.Tipo),
		Cantidad:             m.Cantidad,
		SedeOrigenID:         m.SedeOrigenID,
		SedeDestinoID:        m.SedeDestinoID,
		CostoUnitario:        m.CostoUnitario,
		CostoTotal:           m.CostoTotal,
		Motivo:               m.Motivo,
		Referencia:           m.Referencia,
		FacturaID:            m.FacturaID,
		RevierteMovimientoID: m.RevierteMovimientoID,
		RealizadoPor:         m.RealizadoPor,
		CreatedAt:            m.CreatedAt,
	}
}
