package service

import (
	"context"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Redencion is a credit application requested inside an invoice transaction.
type Redencion struct {
	AbonoID   uuid.UUID
	FacturaID uuid.UUID
	// ClienteID is the invoice's client; credits only pay their owner's invoices.
	ClienteID *uuid.UUID
	Monto     decimal.Decimal
}

// AbonoService is the store-credit ledger.
type AbonoService interface {
	Emitir(ctx context.Context, usuarioID uuid.UUID, req dto.EmitirAbonoRequest) (*dto.AbonoResponse, error)
	// ListarDisponibles returns available credits oldest first.
	ListarDisponibles(ctx context.Context, clienteID uuid.UUID) ([]dto.AbonoResponse, error)
	Obtener(ctx context.Context, id uuid.UUID) (*dto.AbonoResponse, error)
	// Redimir applies credit to an order still awaiting payment.
	Redimir(ctx context.Context, abonoID uuid.UUID, req dto.RedimirAbonoRequest) (*dto.RedencionResponse, error)
	RedimirTx(ctx context.Context, tx *gorm.DB, r Redencion) (*model.RedencionAbono, error)
	Anular(ctx context.Context, usuarioID, abonoID uuid.UUID, motivo string) (*dto.AbonoResponse, error)
}

type abonoService struct {
	repo     repository.AbonoRepository
	facturas repository.FacturaRepository
	metodos  MetodoPagoService
}

func NewAbonoService(repo repository.AbonoRepository, facturas repository.FacturaRepository, metodos MetodoPagoService) AbonoService {
	return &abonoService{repo: repo, facturas: facturas, metodos: metodos}
}

// ── Emitir ────────────────────────────────────────────────────────────────────

func (s *abonoService) Emitir(ctx context.Context, usuarioID uuid.UUID, req dto.EmitirAbonoRequest) (*dto.AbonoResponse, error) {
	if !req.Monto.IsPositive() {
		return nil, apierror.Validation("el monto del abono debe ser mayor a cero")
	}
	if req.ClienteID == uuid.Nil {
		return nil, apierror.Validation("el abono requiere un cliente")
	}
	if _, err := s.metodos.Validar(ctx, req.MetodoPagoID, req.Referencia); err != nil {
		return nil, err
	}

	a := &model.Abono{
		ClienteID:       req.ClienteID,
		MontoOriginal:   req.Monto,
		SaldoDisponible: req.Monto,
		CitaID:          req.CitaID,
		MetodoPagoID:    req.MetodoPagoID,
		Referencia:      req.Referencia,
		Estado:          model.AbonoDisponible,
		Memo:            req.Memo,
		CreadoPor:       usuarioID,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.Create(ctx, nil, a); err != nil {
		return nil, err
	}
	log.Info().Str("abono_id", a.ID.String()).Str("cliente_id", a.ClienteID.String()).
		Str("monto", a.MontoOriginal.StringFixed(2)).Msg("abono emitido")
	return abonoToResponse(a, nil), nil
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *abonoService) ListarDisponibles(ctx context.Context, clienteID uuid.UUID) ([]dto.AbonoResponse, error) {
	abonos, err := s.repo.ListDisponibles(ctx, clienteID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.AbonoResponse, 0, len(abonos))
	for i := range abonos {
		out = append(out, *abonoToResponse(&abonos[i], nil))
	}
	return out, nil
}

func (s *abonoService) Obtener(ctx context.Context, id uuid.UUID) (*dto.AbonoResponse, error) {
	a, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, noEncontrado(err, "abono %s no encontrado", id)
	}
	reds, err := s.repo.ListRedenciones(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	return abonoToResponse(a, reds), nil
}

// ── Redimir ───────────────────────────────────────────────────────────────────

func (s *abonoService) Redimir(ctx context.Context, abonoID uuid.UUID, req dto.RedimirAbonoRequest) (*dto.RedencionResponse, error) {
	f, err := s.facturas.FindByID(ctx, nil, req.FacturaID)
	if err != nil {
		return nil, noEncontrado(err, "factura %s no encontrada", req.FacturaID)
	}
	if err := admiteRedencion(f, req.Monto); err != nil {
		return nil, err
	}

	var red *model.RedencionAbono
	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// the order row lock serializes redemptions from different credits
		orden, err := s.facturas.LockByID(ctx, tx, req.FacturaID)
		if err != nil {
			return noEncontrado(err, "factura %s no encontrada", req.FacturaID)
		}
		if err := admiteRedencion(orden, req.Monto); err != nil {
			return err
		}
		red, err = s.RedimirTx(ctx, tx, Redencion{AbonoID: abonoID, FacturaID: orden.ID, ClienteID: orden.ClienteID, Monto: req.Monto})
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := redencionToResponse(*red)
	return &resp, nil
}

// admiteRedencion checks that f is an open order with room for monto more credit.
func admiteRedencion(f *model.Factura, monto decimal.Decimal) error {
	if f.Estado != model.FacturaEstadoPendiente {
		return apierror.InvalidState("solo se aplican abonos a órdenes pendientes de pago; la factura %s está %s", f.Numero, f.Estado)
	}
	if sumarRedenciones(f.Redenciones).Add(monto).GreaterThan(f.Total) {
		return apierror.Validation("el abono excede el saldo de la orden %s", f.Numero)
	}
	return nil
}

func (s *abonoService) RedimirTx(ctx context.Context, tx *gorm.DB, r Redencion) (*model.RedencionAbono, error) {
	if !r.Monto.IsPositive() {
		return nil, apierror.Validation("el monto a redimir debe ser mayor a cero")
	}
	a, err := s.repo.FindByID(ctx, tx, r.AbonoID)
	if err != nil {
		return nil, noEncontrado(err, "abono %s no encontrado", r.AbonoID)
	}
	if a.Estado != model.AbonoDisponible {
		return nil, apierror.InvalidState("el abono %s no está disponible (%s)", a.ID, a.Estado)
	}
	if r.ClienteID == nil || *r.ClienteID != a.ClienteID {
		return nil, apierror.Conflict("el abono %s pertenece a otro cliente", a.ID)
	}
	if r.Monto.GreaterThan(a.SaldoDisponible) {
		return nil, apierror.Validation("saldo insuficiente en abono %s: disponible %s, solicitado %s",
			a.ID, a.SaldoDisponible.StringFixed(2), r.Monto.StringFixed(2))
	}

	ok, err := s.repo.Redimir(ctx, tx, a.ID, r.Monto)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Conflict("el saldo del abono %s cambió durante la operación", a.ID)
	}
	red := &model.RedencionAbono{AbonoID: a.ID, FacturaID: r.FacturaID, Monto: r.Monto, AplicadoAt: time.Now()}
	if err := s.repo.CreateRedencion(ctx, tx, red); err != nil {
		return nil, err
	}
	return red, nil
}

// ── Anular ────────────────────────────────────────────────────────────────────
// Only an untouched credit can be voided.

func (s *abonoService) Anular(ctx context.Context, usuarioID, abonoID uuid.UUID, motivo string) (*dto.AbonoResponse, error) {
	a, err := s.repo.FindByID(ctx, nil, abonoID)
	if err != nil {
		return nil, noEncontrado(err, "abono %s no encontrado", abonoID)
	}
	if a.Estado == model.AbonoAnulado {
		return nil, apierror.InvalidState("el abono %s ya está anulado", abonoID)
	}
	if !a.SaldoDisponible.Equal(a.MontoOriginal) {
		return nil, apierror.Validation("el abono %s ya fue redimido parcialmente y no puede anularse", abonoID)
	}

	ahora := time.Now()
	ok, err := s.repo.Anular(ctx, nil, abonoID, usuarioID, motivo, ahora)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.Conflict("el abono %s cambió durante la anulación", abonoID)
	}
	a.Estado = model.AbonoAnulado
	a.AnuladoPor = &usuarioID
	a.AnuladoAt = &ahora
	a.MotivoAnulacion = &motivo

	log.Info().Str("abono_id", abonoID.String()).Msg("abono anulado")
	return abonoToResponse(a, nil), nil
}

func abonoToResponse(a *model.Abono, reds []model.RedencionAbono) *dto.AbonoResponse {
	resp := &dto.AbonoResponse{
		ID:              a.ID,
		ClienteID:       a.ClienteID,
		MontoOriginal:   a.MontoOriginal,
		SaldoDisponible: a.SaldoDisponible,
		Estado:          a.Estado,
		MetodoPagoID:    a.MetodoPagoID,
		Referencia:      a.Referencia,
		CitaID:          a.CitaID,
		Memo:            a.Memo,
		CreatedAt:       a.CreatedAt,
		AnuladoAt:       a.AnuladoAt,
		MotivoAnulacion: a.MotivoAnulacion,
	}
	for _, r := range reds {
		resp.Redenciones = append(resp.Redenciones, redencionToResponse(r))
	}
	return resp
}

func redencionToResponse(r model.RedencionAbono) dto.RedencionResponse {
	return dto.RedencionResponse{ID: r.ID, AbonoID: r.AbonoID, FacturaID: r.FacturaID, Monto: r.Monto, AplicadoAt: r.AplicadoAt}
}
