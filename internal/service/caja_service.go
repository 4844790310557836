package service

import (
	"context"
	"errors"
	"fmt"
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

type CajaService interface {
	Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error)
	Cerrar(ctx context.Context, sesionID, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.SesionCajaResponse, error)
	RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error)
	ListarMovimientos(ctx context.Context, sesionID uuid.UUID) ([]dto.MovimientoCajaResponse, error)
	Conciliacion(ctx context.Context, sesionID uuid.UUID) (*dto.ConciliacionCajaResponse, error)
	ObtenerAbierta(ctx context.Context, sedeID int) (*dto.SesionCajaResponse, error)
	Historial(ctx context.Context, filter dto.CajaHistorialFilter) (*dto.CajaHistorialResponse, error)

	// SesionAbierta resolves the open session of a sede; ValidationError when
	// none is open. Used by FacturaService before any mutation.
	SesionAbierta(ctx context.Context, tx *gorm.DB, sedeID int) (*model.SesionCaja, error)
	// RegistrarMovimientoTx appends a movement to an open session inside the
	// caller's transaction.
	RegistrarMovimientoTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error
	// CompensarFacturaTx appends an opposite movement for every uncompensated
	// movement of the invoice. Targets the original session while open, else
	// the sede's open session.
	CompensarFacturaTx(ctx context.Context, tx *gorm.DB, facturaID uuid.UUID, sedeID int, usuarioID uuid.UUID, motivo string) error
}

type cajaService struct {
	repo repository.CajaRepository
}

func NewCajaService(repo repository.CajaRepository) CajaService {
	return &cajaService{repo: repo}
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, usuarioID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoInicial.IsNegative() {
		return nil, apierror.Validation("el monto inicial no puede ser negativo")
	}
	// Fast path; the partial unique index settles races below.
	if _, err := s.repo.FindSesionAbiertaPorSede(ctx, nil, req.SedeID); err == nil {
		return nil, apierror.Conflict("ya existe una caja abierta en la sede %d", req.SedeID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sesion := &model.SesionCaja{
		SedeID:        req.SedeID,
		AbiertaPor:    usuarioID,
		MontoInicial:  req.MontoInicial,
		Estado:        model.CajaAbierta,
		Observaciones: req.Observaciones,
		OpenedAt:      time.Now(),
	}
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		if err := s.repo.CreateSesion(ctx, tx, sesion); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apierror.Conflict("ya existe una caja abierta en la sede %d", req.SedeID)
			}
			return err
		}
		if !req.MontoInicial.IsPositive() {
			return nil
		}
		return s.repo.CreateMovimiento(ctx, tx, &model.MovimientoCaja{
			SesionCajaID: sesion.ID,
			Tipo:         model.MovimientoIngreso,
			Monto:        req.MontoInicial,
			Descripcion:  "Fondo inicial de caja",
			EsApertura:   true,
			CreadoPor:    usuarioID,
		})
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("sesion_caja_id", sesion.ID.String()).Int("sede_id", sesion.SedeID).
		Str("monto_inicial", sesion.MontoInicial.StringFixed(2)).Msg("caja abierta")
	return sesionToResponse(sesion), nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────

func (s *cajaService) Cerrar(ctx context.Context, sesionID, usuarioID uuid.UUID, req dto.CerrarCajaRequest) (*dto.SesionCajaResponse, error) {
	if req.MontoDeclarado != nil && req.MontoDeclarado.IsNegative() {
		return nil, apierror.Validation("el monto declarado no puede ser negativo")
	}
	sesion, err := s.repo.FindSesionByID(ctx, nil, sesionID)
	if err != nil {
		return nil, noEncontrado(err, "sesión de caja %s no encontrada", sesionID)
	}
	if sesion.Estado != model.CajaAbierta {
		return nil, apierror.InvalidState("la sesión de caja %s ya está cerrada", sesionID)
	}

	ahora := time.Now()
	sesion.CerradaPor = &usuarioID
	sesion.MontoDeclarado = req.MontoDeclarado
	sesion.ClosedAt = &ahora
	if req.Observaciones != nil {
		sesion.Observaciones = req.Observaciones
	}
	ok, err := s.repo.CerrarSesion(ctx, nil, sesion)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.InvalidState("la sesión de caja %s ya está cerrada", sesionID)
	}
	sesion.Estado = model.CajaCerrada

	log.Info().Str("sesion_caja_id", sesion.ID.String()).Int("sede_id", sesion.SedeID).Msg("caja cerrada")
	return sesionToResponse(sesion), nil
}

// ── Movimientos ───────────────────────────────────────────────────────────────
// Manual in/out. Movements are immutable; no Update/Delete.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, usuarioID uuid.UUID, req dto.MovimientoCajaRequest) (*dto.MovimientoCajaResponse, error) {
	if req.Tipo != model.MovimientoIngreso && req.Tipo != model.MovimientoEgreso {
		return nil, apierror.Validation("tipo de movimiento inválido: %q", req.Tipo)
	}
	mov := &model.MovimientoCaja{
		SesionCajaID: req.SesionCajaID,
		Tipo:         req.Tipo,
		Monto:        req.Monto,
		Descripcion:  req.Descripcion,
		MetodoPagoID: req.MetodoPagoID,
		CreadoPor:    usuarioID,
	}
	if err := s.RegistrarMovimientoTx(ctx, nil, mov); err != nil {
		return nil, err
	}
	resp := movimientoToResponse(*mov)
	return &resp, nil
}

func (s *cajaService) RegistrarMovimientoTx(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error {
	if !m.Monto.IsPositive() {
		return apierror.Validation("el monto del movimiento debe ser mayor a cero")
	}
	sesion, err := s.repo.FindSesionByID(ctx, tx, m.SesionCajaID)
	if err != nil {
		return noEncontrado(err, "sesión de caja %s no encontrada", m.SesionCajaID)
	}
	if sesion.Estado != model.CajaAbierta {
		return apierror.Validation("la sesión de caja %s no está abierta", m.SesionCajaID)
	}
	return s.repo.CreateMovimiento(ctx, tx, m)
}

func (s *cajaService) ListarMovimientos(ctx context.Context, sesionID uuid.UUID) ([]dto.MovimientoCajaResponse, error) {
	if _, err := s.repo.FindSesionByID(ctx, nil, sesionID); err != nil {
		return nil, noEncontrado(err, "sesión de caja %s no encontrada", sesionID)
	}
	movs, err := s.repo.ListMovimientos(ctx, nil, sesionID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovimientoCajaResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, movimientoToResponse(m))
	}
	return out, nil
}

// ── Conciliacion ──────────────────────────────────────────────────────────────
// teórico = monto_inicial + Σingresos − Σegresos; the opening ingreso is the
// monto_inicial itself and is skipped.

func (s *cajaService) Conciliacion(ctx context.Context, sesionID uuid.UUID) (*dto.ConciliacionCajaResponse, error) {
	sesion, err := s.repo.FindSesionByID(ctx, nil, sesionID)
	if err != nil {
		return nil, noEncontrado(err, "sesión de caja %s no encontrada", sesionID)
	}
	movs, err := s.repo.ListMovimientos(ctx, nil, sesionID)
	if err != nil {
		return nil, err
	}

	ingresos, egresos := decimal.Zero, decimal.Zero
	for _, m := range movs {
		if m.EsApertura {
			continue
		}
		switch m.Tipo {
		case model.MovimientoIngreso:
			ingresos = ingresos.Add(m.Monto)
		case model.MovimientoEgreso:
			egresos = egresos.Add(m.Monto)
		}
	}
	teorico := sesion.MontoInicial.Add(ingresos).Sub(egresos)

	resp := &dto.ConciliacionCajaResponse{
		SesionCajaID:   sesion.ID,
		Estado:         sesion.Estado,
		MontoInicial:   sesion.MontoInicial,
		TotalIngresos:  ingresos,
		TotalEgresos:   egresos,
		MontoTeorico:   teorico,
		MontoDeclarado: sesion.MontoDeclarado,
		Movimientos:    len(movs),
	}
	if sesion.MontoDeclarado != nil {
		desvio := sesion.MontoDeclarado.Sub(teorico)
		pct := decimal.Zero
		if !teorico.IsZero() {
			pct = desvio.Div(teorico).Mul(cien).Round(2)
		}
		resp.Desvio = &dto.DesvioResponse{Monto: desvio, Porcentaje: pct, Clasificacion: clasificarDesvio(pct)}
	}
	return resp, nil
}

// clasificarDesvio returns "normal" | "advertencia" | "critico"
// normal: |desvio| <= 1%, advertencia: <= 5%, critico: > 5%
func clasificarDesvio(pct decimal.Decimal) string {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(decimal.NewFromInt(1)):
		return "normal"
	case abs.LessThanOrEqual(decimal.NewFromInt(5)):
		return "advertencia"
	default:
		return "critico"
	}
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func (s *cajaService) ObtenerAbierta(ctx context.Context, sedeID int) (*dto.SesionCajaResponse, error) {
	sesion, err := s.repo.FindSesionAbiertaPorSede(ctx, nil, sedeID)
	if err != nil {
		return nil, noEncontrado(err, "no hay caja abierta en la sede %d", sedeID)
	}
	return sesionToResponse(sesion), nil
}

func (s *cajaService) Historial(ctx context.Context, filter dto.CajaHistorialFilter) (*dto.CajaHistorialResponse, error) {
	sesiones, total, err := s.repo.ListSesiones(ctx, filter.SedeID, filter.Page, filter.Limit)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SesionCajaResponse, 0, len(sesiones))
	for i := range sesiones {
		data = append(data, *sesionToResponse(&sesiones[i]))
	}
	return &dto.CajaHistorialResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Colaboración con FacturaService ───────────────────────────────────────────

func (s *cajaService) SesionAbierta(ctx context.Context, tx *gorm.DB, sedeID int) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionAbiertaPorSede(ctx, tx, sedeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apierror.Validation("no hay caja abierta en la sede %d", sedeID)
	}
	return sesion, err
}

func (s *cajaService) CompensarFacturaTx(ctx context.Context, tx *gorm.DB, facturaID uuid.UUID, sedeID int, usuarioID uuid.UUID, motivo string) error {
	movs, err := s.repo.ListMovimientosPorFactura(ctx, tx, facturaID)
	if err != nil {
		return err
	}
	compensados := make(map[uuid.UUID]bool)
	for _, m := range movs {
		if m.RevierteMovimientoID != nil {
			compensados[*m.RevierteMovimientoID] = true
		}
	}

	var pendientes []model.MovimientoCaja
	for _, m := range movs {
		if m.RevierteMovimientoID == nil && !compensados[m.ID] {
			pendientes = append(pendientes, m)
		}
	}
	if len(pendientes) == 0 {
		return nil
	}

	// Resolve every target session before writing anything.
	destinos := make(map[uuid.UUID]uuid.UUID, len(pendientes))
	var actual *model.SesionCaja
	for _, m := range pendientes {
		original, err := s.repo.FindSesionByID(ctx, tx, m.SesionCajaID)
		if err != nil {
			return err
		}
		if original.Estado == model.CajaAbierta {
			destinos[m.ID] = original.ID
			continue
		}
		if actual == nil {
			actual, err = s.SesionAbierta(ctx, tx, sedeID)
			if err != nil {
				return err
			}
		}
		destinos[m.ID] = actual.ID
	}

	for _, m := range pendientes {
		origen := m.ID
		comp := &model.MovimientoCaja{
			SesionCajaID:         destinos[m.ID],
			Tipo:                 opuesto(m.Tipo),
			Monto:                m.Monto,
			Descripcion:          fmt.Sprintf("Reverso: %s (%s)", m.Descripcion, motivo),
			FacturaID:            m.FacturaID,
			MetodoPagoID:         m.MetodoPagoID,
			RevierteMovimientoID: &origen,
			CreadoPor:            usuarioID,
		}
		if err := s.repo.CreateMovimiento(ctx, tx, comp); err != nil {
			return err
		}
	}
	return nil
}

func opuesto(tipo string) string {
	if tipo == model.MovimientoIngreso {
		return model.MovimientoEgreso
	}
	return model.MovimientoIngreso
}

// ── Mapping ───────────────────────────────────────────────────────────────────

func sesionToResponse(s *model.SesionCaja) *dto.SesionCajaResponse {
	return &dto.SesionCajaResponse{
		ID:             s.ID,
		SedeID:         s.SedeID,
		AbiertaPor:     s.AbiertaPor,
		MontoInicial:   s.MontoInicial,
		Estado:         s.Estado,
		MontoDeclarado: s.MontoDeclarado,
		CerradaPor:     s.CerradaPor,
		Observaciones:  s.Observaciones,
		OpenedAt:       s.OpenedAt,
		ClosedAt:       s.ClosedAt,
	}
}

func movimientoToResponse(m model.MovimientoCaja) dto.MovimientoCajaResponse {
	return dto.MovimientoCajaResponse{
		ID:                   m.ID,
		SesionCajaID:         m.SesionCajaID,
		Tipo:                 m.Tipo,
		Monto:                m.Monto,
		Descripcion:          m.Descripcion,
		EsApertura:           m.EsApertura,
		FacturaID:            m.FacturaID,
		MetodoPagoID:         m.MetodoPagoID,
		RevierteMovimientoID: m.RevierteMovimientoID,
		CreatedAt:            m.CreatedAt,
	}
}
