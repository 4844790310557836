package service

import (
	"context"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"
	"github.com/alejo0789/agenda-ia-sub000/internal/worker"

	"github.com/google/uuid"
)

type ComprobanteService interface {
	Obtener(ctx context.Context, facturaID uuid.UUID) (*dto.ComprobanteResponse, error)
	ObtenerPDFPath(ctx context.Context, facturaID uuid.UUID) (string, error)
	// Reintentar queues the receipt again, optionally to a new address.
	Reintentar(ctx context.Context, facturaID uuid.UUID, email *string) error
	// Fallidos summarises the dead letter queues of the receipt pipeline.
	Fallidos(ctx context.Context) ([]dto.ColaFallidosResponse, error)
	ReencolarFallidos(ctx context.Context, req dto.ReencolarFallidosRequest) (int, error)
}

type comprobanteService struct {
	repo       repository.ComprobanteRepository
	facturas   repository.FacturaRepository
	dispatcher *worker.Dispatcher
}

func NewComprobanteService(repo repository.ComprobanteRepository, facturas repository.FacturaRepository, dispatcher *worker.Dispatcher) ComprobanteService {
	return &comprobanteService{repo: repo, facturas: facturas, dispatcher: dispatcher}
}

func (s *comprobanteService) Obtener(ctx context.Context, facturaID uuid.UUID) (*dto.ComprobanteResponse, error) {
	comp, err := s.repo.FindByFacturaID(ctx, facturaID)
	if err != nil {
		return nil, noEncontrado(err, "comprobante no encontrado para la factura %s", facturaID)
	}
	return comprobanteToResponse(comp), nil
}

func (s *comprobanteService) ObtenerPDFPath(ctx context.Context, facturaID uuid.UUID) (string, error) {
	comp, err := s.repo.FindByFacturaID(ctx, facturaID)
	if err != nil {
		return "", noEncontrado(err, "comprobante no encontrado para la factura %s", facturaID)
	}
	if comp.PDFPath == nil || *comp.PDFPath == "" {
		return "", apierror.InvalidState("PDF no disponible: el comprobante está en estado %q", comp.Estado)
	}
	return *comp.PDFPath, nil
}

func (s *comprobanteService) Reintentar(ctx context.Context, facturaID uuid.UUID, email *string) error {
	f, err := s.facturas.FindByID(ctx, nil, facturaID)
	if err != nil {
		return noEncontrado(err, "factura %s no encontrada", facturaID)
	}
	if f.Estado == model.FacturaEstadoPendiente {
		return apierror.InvalidState("la orden %s aún no está pagada", f.Numero)
	}
	if s.dispatcher == nil {
		return apierror.InvalidState("la cola de comprobantes no está disponible")
	}
	payload := worker.ComprobanteJobPayload{FacturaID: facturaID.String()}
	if email != nil {
		payload.ClienteEmail = *email
	}
	// a fresh render is forced by clearing the stored file
	if comp, err := s.repo.FindByFacturaID(ctx, facturaID); err == nil {
		comp.Estado = model.ComprobantePendiente
		comp.PDFPath = nil
		comp.NextRetryAt = nil
		if err := s.repo.Update(ctx, comp); err != nil {
			return err
		}
	}
	return s.dispatcher.EnqueueComprobante(ctx, payload)
}

const muestraFallidos = 20

func (s *comprobanteService) Fallidos(ctx context.Context) ([]dto.ColaFallidosResponse, error) {
	if s.dispatcher == nil {
		return nil, apierror.InvalidState("la cola de comprobantes no está disponible")
	}
	totales, err := s.dispatcher.Atascados(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ColaFallidosResponse, 0, len(worker.Colas))
	for _, cola := range worker.Colas {
		entradas, err := s.dispatcher.Muestra(ctx, cola, muestraFallidos)
		if err != nil {
			return nil, err
		}
		r := dto.ColaFallidosResponse{Cola: cola, Total: totales[cola], Primeros: make([]dto.TrabajoFallidoResponse, 0, len(entradas))}
		for _, e := range entradas {
			r.Primeros = append(r.Primeros, dto.TrabajoFallidoResponse{
				Tipo: e.JobType, Payload: e.Payload, Motivo: e.Reason, FalloAt: e.FailedAt, Intentos: e.Attempts,
			})
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *comprobanteService) ReencolarFallidos(ctx context.Context, req dto.ReencolarFallidosRequest) (int, error) {
	if s.dispatcher == nil {
		return 0, apierror.InvalidState("la cola de comprobantes no está disponible")
	}
	return s.dispatcher.Reencolar(ctx, req.Cola, req.Cantidad)
}

func comprobanteToResponse(c *model.Comprobante) *dto.ComprobanteResponse {
	resp := &dto.ComprobanteResponse{
		ID:        c.ID,
		FacturaID: c.FacturaID,
		Estado:    c.Estado,
		EnviadoA:  c.EnviadoA,
		Intentos:  c.Intentos,
		LastError: c.LastError,
		UpdatedAt: c.UpdatedAt,
	}
	if c.PDFPath != nil && *c.PDFPath != "" {
		u := "/v1/facturas/" + c.FacturaID.String() + "/comprobante/pdf"
		resp.PDFUrl = &u
	}
	return resp
}
