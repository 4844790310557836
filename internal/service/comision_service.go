package service

import (
	"context"
	"errors"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ComisionInput is one priced line to attribute to a specialist.
type ComisionInput struct {
	Item           ItemLinea
	EspecialistaID uuid.UUID
	PrecioUnitario decimal.Decimal
	Cantidad       int
	Descuento      decimal.Decimal
}

// Comision is the resolved rule and amount. Tipo nil means no commission.
type Comision struct {
	Tipo  *string
	Valor decimal.Decimal
	Monto decimal.Decimal
}

// ComisionService resolves specialist commissions. Resolution has no side
// effects so it can be re-run for reports.
type ComisionService interface {
	Resolver(ctx context.Context, in ComisionInput) (Comision, error)
	Reporte(ctx context.Context, especialistaID uuid.UUID, desde, hasta time.Time) (*dto.ComisionReporteResponse, error)
}

type comisionService struct {
	catalogo repository.CatalogoRepository
	facturas repository.FacturaRepository
}

func NewComisionService(catalogo repository.CatalogoRepository, facturas repository.FacturaRepository) ComisionService {
	return &comisionService{catalogo: catalogo, facturas: facturas}
}

// Resolver applies, for services: the specialist override, else the service
// default, else nothing. Percentages apply to the net line (after line
// discount); fixed amounts multiply by quantity. Products always pay
// comision_pct of the gross line.
func (s *comisionService) Resolver(ctx context.Context, in ComisionInput) (Comision, error) {
	if in.Cantidad <= 0 {
		return Comision{}, apierror.Validation("la cantidad debe ser mayor a cero")
	}
	bruto := in.PrecioUnitario.Mul(decimal.NewFromInt(int64(in.Cantidad)))

	switch item := in.Item.(type) {
	case itemServicio:
		tipo, valor, err := s.reglaServicio(ctx, item.s, in.EspecialistaID)
		if err != nil {
			return Comision{}, err
		}
		if tipo == nil {
			return Comision{Valor: decimal.Zero, Monto: decimal.Zero}, nil
		}
		switch *tipo {
		case model.ComisionPorcentaje:
			neto := bruto.Sub(in.Descuento)
			return Comision{Tipo: tipo, Valor: valor, Monto: redondear(neto.Mul(valor).Div(cien))}, nil
		case model.ComisionFijo:
			return Comision{Tipo: tipo, Valor: valor, Monto: redondear(valor.Mul(decimal.NewFromInt(int64(in.Cantidad))))}, nil
		default:
			return Comision{}, apierror.Validation("tipo de comisión desconocido: %q", *tipo)
		}
	case itemProducto:
		tipo := model.ComisionPorcentaje
		pct := item.p.ComisionPct
		return Comision{Tipo: &tipo, Valor: pct, Monto: redondear(bruto.Mul(pct).Div(cien))}, nil
	default:
		return Comision{}, apierror.Validation("tipo de línea no soportado")
	}
}

func (s *comisionService) reglaServicio(ctx context.Context, svc *model.Servicio, especialistaID uuid.UUID) (*string, decimal.Decimal, error) {
	override, err := s.catalogo.FindComisionEspecialista(ctx, especialistaID, svc.ID)
	switch {
	case err == nil:
		tipo := override.Tipo
		return &tipo, override.Valor, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, decimal.Zero, err
	}
	if svc.ComisionTipo == nil || svc.ComisionValor == nil {
		return nil, decimal.Zero, nil
	}
	tipo := *svc.ComisionTipo
	return &tipo, *svc.ComisionValor, nil
}

// ── Reporte ───────────────────────────────────────────────────────────────────

func (s *comisionService) Reporte(ctx context.Context, especialistaID uuid.UUID, desde, hasta time.Time) (*dto.ComisionReporteResponse, error) {
	if !hasta.After(desde) {
		return nil, apierror.Validation("el rango de fechas es inválido")
	}
	lineas, err := s.facturas.ListLineasPagadas(ctx, especialistaID, desde, hasta)
	if err != nil {
		return nil, err
	}

	resp := &dto.ComisionReporteResponse{
		EspecialistaID:  especialistaID,
		Desde:           desde,
		Hasta:           hasta,
		Lineas:          make([]dto.ComisionReporteLinea, 0, len(lineas)),
		TotalRegistrado: decimal.Zero,
		Total:           decimal.Zero,
	}
	for _, l := range lineas {
		item, err := cargarItem(ctx, s.catalogo, l.Tipo, l.ItemID)
		if err != nil {
			return nil, err
		}
		c, err := s.Resolver(ctx, ComisionInput{
			Item:           item,
			EspecialistaID: especialistaID,
			PrecioUnitario: l.PrecioUnitario,
			Cantidad:       l.Cantidad,
			Descuento:      l.DescuentoLinea,
		})
		if err != nil {
			return nil, err
		}
		resp.Lineas = append(resp.Lineas, dto.ComisionReporteLinea{
			FacturaID:        l.FacturaID,
			LineaID:          l.ID,
			Tipo:             string(l.Tipo),
			ItemID:           l.ItemID,
			Cantidad:         l.Cantidad,
			Subtotal:         l.Subtotal,
			MontoRegistrado:  l.ComisionMonto,
			MontoRecalculado: c.Monto,
			EmitidaAt:        l.EmitidaAt,
		})
		resp.TotalRegistrado = resp.TotalRegistrado.Add(l.ComisionMonto)
		resp.Total = resp.Total.Add(c.Monto)
	}
	return resp, nil
}
