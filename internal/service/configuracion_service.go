package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	prefijoPorDefecto       = "FV"
	ventanaAnulacionDefecto = 1
	numeroInicialPorDefecto = 1
)

// ConfiguracionService reads business settings at call time so changes apply
// without a restart.
type ConfiguracionService interface {
	TasaImpuesto(ctx context.Context) (decimal.Decimal, error)
	VentanaAnulacion(ctx context.Context) (time.Duration, error)
	// SiguienteNumero reserves the next invoice number inside tx.
	SiguienteNumero(ctx context.Context, tx *gorm.DB) (string, error)
	Listar(ctx context.Context) ([]dto.ConfiguracionResponse, error)
	Actualizar(ctx context.Context, clave, valor string) (*dto.ConfiguracionResponse, error)
}

type configuracionService struct {
	repo repository.ConfiguracionRepository
}

func NewConfiguracionService(repo repository.ConfiguracionRepository) ConfiguracionService {
	return &configuracionService{repo: repo}
}

func (s *configuracionService) TasaImpuesto(ctx context.Context) (decimal.Decimal, error) {
	v, ok, err := s.repo.Get(ctx, nil, model.ConfigTasaImpuesto)
	if err != nil || !ok {
		return decimal.Zero, err
	}
	tasa, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s inválida: %w", model.ConfigTasaImpuesto, err)
	}
	return tasa, nil
}

func (s *configuracionService) VentanaAnulacion(ctx context.Context) (time.Duration, error) {
	dias := ventanaAnulacionDefecto
	v, ok, err := s.repo.Get(ctx, nil, model.ConfigVentanaAnulacion)
	if err != nil {
		return 0, err
	}
	if ok {
		if dias, err = strconv.Atoi(v); err != nil {
			return 0, fmt.Errorf("%s inválida: %w", model.ConfigVentanaAnulacion, err)
		}
	}
	return time.Duration(dias) * 24 * time.Hour, nil
}

func (s *configuracionService) SiguienteNumero(ctx context.Context, tx *gorm.DB) (string, error) {
	prefijo, ok, err := s.repo.Get(ctx, tx, model.ConfigPrefijoFactura)
	if err != nil {
		return "", err
	}
	if !ok || prefijo == "" {
		prefijo = prefijoPorDefecto
	}
	n, err := s.repo.SiguienteSecuencia(ctx, tx, model.ConfigSiguienteNumero, numeroInicialPorDefecto)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%06d", prefijo, n), nil
}

func (s *configuracionService) Listar(ctx context.Context) ([]dto.ConfiguracionResponse, error) {
	cs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ConfiguracionResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, dto.ConfiguracionResponse{Clave: c.Clave, Valor: c.Valor})
	}
	return out, nil
}

func (s *configuracionService) Actualizar(ctx context.Context, clave, valor string) (*dto.ConfiguracionResponse, error) {
	switch clave {
	case model.ConfigPrefijoFactura:
		if valor == "" || len(valor) > 10 {
			return nil, apierror.Validation("el prefijo debe tener entre 1 y 10 caracteres")
		}
	case model.ConfigTasaImpuesto:
		tasa, err := decimal.NewFromString(valor)
		if err != nil || tasa.IsNegative() || tasa.GreaterThan(cien) {
			return nil, apierror.Validation("la tasa de impuesto debe ser un porcentaje entre 0 y 100")
		}
	case model.ConfigVentanaAnulacion:
		dias, err := strconv.Atoi(valor)
		if err != nil || dias < 0 {
			return nil, apierror.Validation("la ventana de anulación debe ser un número de días no negativo")
		}
	case model.ConfigSiguienteNumero:
		return nil, apierror.Validation("la numeración de facturas no se modifica manualmente")
	default:
		return nil, apierror.NotFound("clave de configuración desconocida: %s", clave)
	}
	if err := s.repo.Set(ctx, nil, clave, valor); err != nil {
		return nil, err
	}
	return &dto.ConfiguracionResponse{Clave: clave, Valor: valor}, nil
}
