package service

import (
	"context"
	"strings"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/google/uuid"
)

type MetodoPagoService interface {
	Listar(ctx context.Context, soloActivos bool) ([]dto.MetodoPagoResponse, error)
	// Validar checks the method exists, is active and has its reference when
	// the method demands one.
	Validar(ctx context.Context, id uuid.UUID, referencia *string) (*model.MetodoPago, error)
}

type metodoPagoService struct {
	repo repository.MetodoPagoRepository
}

func NewMetodoPagoService(repo repository.MetodoPagoRepository) MetodoPagoService {
	return &metodoPagoService{repo: repo}
}

func (s *metodoPagoService) Listar(ctx context.Context, soloActivos bool) ([]dto.MetodoPagoResponse, error) {
	metodos, err := s.repo.List(ctx, soloActivos)
	if err != nil {
		return nil, err
	}
	out := make([]dto.MetodoPagoResponse, 0, len(metodos))
	for _, m := range metodos {
		out = append(out, dto.MetodoPagoResponse{
			ID:                 m.ID,
			Codigo:             m.Codigo,
			Nombre:             m.Nombre,
			RequiereReferencia: m.RequiereReferencia,
			EsEfectivo:         m.EsEfectivo,
			Activo:             m.Activo,
		})
	}
	return out, nil
}

func (s *metodoPagoService) Validar(ctx context.Context, id uuid.UUID, referencia *string) (*model.MetodoPago, error) {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, noEncontrado(err, "método de pago %s no encontrado", id)
	}
	if !m.Activo {
		return nil, apierror.Validation("el método de pago %s está inactivo", m.Nombre)
	}
	if m.RequiereReferencia && (referencia == nil || strings.TrimSpace(*referencia) == "") {
		return nil, apierror.Validation("el método de pago %s requiere referencia", m.Nombre)
	}
	return m, nil
}
