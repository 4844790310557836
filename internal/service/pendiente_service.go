package service

import (
	"context"
	"sort"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/apierror"
	"github.com/alejo0789/agenda-ia-sub000/internal/dto"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PendienteService is the queue of delivered-but-not-invoiced work:
// pendiente → aprobado | rechazado, and (pendiente | aprobado) → facturado.
type PendienteService interface {
	Registrar(ctx context.Context, req dto.RegistrarPendienteRequest) (*dto.PendienteResponse, error)
	Aprobar(ctx context.Context, revisorID, id uuid.UUID) (*dto.PendienteResponse, error)
	Rechazar(ctx context.Context, revisorID, id uuid.UUID, motivo string) (*dto.PendienteResponse, error)
	Listar(ctx context.Context, filter dto.PendienteFilter) ([]dto.PendienteResponse, error)
	// ResumenPorCliente groups active entries by client, priced at the
	// current catalog price.
	ResumenPorCliente(ctx context.Context, clienteID *uuid.UUID) ([]dto.ResumenPendientesCliente, error)
	// MarcarFacturadasTx flips every id to facturado or fails when any of them
	// is no longer active.
	MarcarFacturadasTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, facturaID, revisorID uuid.UUID) error
}

type pendienteService struct {
	repo     repository.PendienteRepository
	catalogo repository.CatalogoRepository
}

func NewPendienteService(repo repository.PendienteRepository, catalogo repository.CatalogoRepository) PendienteService {
	return &pendienteService{repo: repo, catalogo: catalogo}
}

func (s *pendienteService) Registrar(ctx context.Context, req dto.RegistrarPendienteRequest) (*dto.PendienteResponse, error) {
	if req.Cantidad <= 0 {
		return nil, apierror.Validation("la cantidad debe ser mayor a cero")
	}
	if req.EspecialistaID == uuid.Nil {
		return nil, apierror.Validation("la entrada requiere el especialista que prestó el servicio")
	}
	item, err := cargarItem(ctx, s.catalogo, model.TipoLinea(req.Tipo), req.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.Activo() {
		return nil, apierror.Validation("%s está inactivo en el catálogo", item.Nombre())
	}

	fecha := time.Now()
	if req.FechaServicio != nil {
		fecha = *req.FechaServicio
	}
	p := &model.FacturaPendiente{
		EspecialistaID: req.EspecialistaID,
		ClienteID:      req.ClienteID,
		Tipo:           item.Tipo(),
		ItemID:         item.ID(),
		Cantidad:       req.Cantidad,
		FechaServicio:  fecha,
		Estado:         model.PendienteEstadoPendiente,
		Notas:          req.Notas,
	}
	if err := s.repo.Create(ctx, nil, p); err != nil {
		return nil, err
	}
	resp := pendienteToResponse(*p)
	return &resp, nil
}

func (s *pendienteService) Aprobar(ctx context.Context, revisorID, id uuid.UUID) (*dto.PendienteResponse, error) {
	return s.revisar(ctx, revisorID, id, model.PendienteEstadoAprobado, nil)
}

func (s *pendienteService) Rechazar(ctx context.Context, revisorID, id uuid.UUID, motivo string) (*dto.PendienteResponse, error) {
	if motivo == "" {
		return nil, apierror.Validation("el rechazo requiere un motivo")
	}
	return s.revisar(ctx, revisorID, id, model.PendienteEstadoRechazado, &motivo)
}

func (s *pendienteService) revisar(ctx context.Context, revisorID, id uuid.UUID, estado string, motivo *string) (*dto.PendienteResponse, error) {
	p, err := s.repo.FindByID(ctx, nil, id)
	if err != nil {
		return nil, noEncontrado(err, "entrada pendiente %s no encontrada", id)
	}
	if p.Estado != model.PendienteEstadoPendiente {
		return nil, apierror.InvalidState("la entrada %s ya fue revisada (%s)", id, p.Estado)
	}
	ahora := time.Now()
	ok, err := s.repo.Revisar(ctx, nil, id, estado, revisorID, ahora, motivo)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apierror.InvalidState("la entrada %s cambió de estado durante la revisión", id)
	}
	p.Estado = estado
	p.RevisadoPor = &revisorID
	p.RevisadoAt = &ahora
	p.MotivoRechazo = motivo
	resp := pendienteToResponse(*p)
	return &resp, nil
}

func (s *pendienteService) Listar(ctx context.Context, filter dto.PendienteFilter) ([]dto.PendienteResponse, error) {
	var rf repository.PendienteFilter
	if filter.ClienteID != "" {
		id, err := uuid.Parse(filter.ClienteID)
		if err != nil {
			return nil, apierror.Validation("cliente_id inválido")
		}
		rf.ClienteID = &id
	}
	if filter.EspecialistaID != "" {
		id, err := uuid.Parse(filter.EspecialistaID)
		if err != nil {
			return nil, apierror.Validation("especialista_id inválido")
		}
		rf.EspecialistaID = &id
	}
	if filter.Estado != "" {
		rf.Estados = []string{filter.Estado}
	}
	ps, err := s.repo.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PendienteResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, pendienteToResponse(p))
	}
	return out, nil
}

func (s *pendienteService) ResumenPorCliente(ctx context.Context, clienteID *uuid.UUID) ([]dto.ResumenPendientesCliente, error) {
	ps, err := s.repo.List(ctx, repository.PendienteFilter{
		ClienteID: clienteID,
		Estados:   []string{model.PendienteEstadoPendiente, model.PendienteEstadoAprobado},
	})
	if err != nil {
		return nil, err
	}

	grupos := make(map[uuid.UUID]*dto.ResumenPendientesCliente)
	for _, p := range ps {
		clave := uuid.Nil
		if p.ClienteID != nil {
			clave = *p.ClienteID
		}
		g, ok := grupos[clave]
		if !ok {
			g = &dto.ResumenPendientesCliente{ClienteID: p.ClienteID, Total: decimal.Zero}
			grupos[clave] = g
		}
		item, err := cargarItem(ctx, s.catalogo, p.Tipo, p.ItemID)
		if err != nil {
			return nil, err
		}
		subtotal := item.Precio().Mul(decimal.NewFromInt(int64(p.Cantidad)))
		g.Entradas = append(g.Entradas, dto.PendienteValorizado{
			PendienteResponse: pendienteToResponse(p),
			Nombre:            item.Nombre(),
			PrecioUnitario:    item.Precio(),
			Subtotal:          subtotal,
		})
		g.Total = g.Total.Add(subtotal)
	}

	claves := make([]uuid.UUID, 0, len(grupos))
	for k := range grupos {
		claves = append(claves, k)
	}
	sort.Slice(claves, func(i, j int) bool { return claves[i].String() < claves[j].String() })
	out := make([]dto.ResumenPendientesCliente, 0, len(claves))
	for _, k := range claves {
		out = append(out, *grupos[k])
	}
	return out, nil
}

func (s *pendienteService) MarcarFacturadasTx(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, facturaID, revisorID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := s.repo.MarcarFacturadas(ctx, tx, ids, facturaID, revisorID, time.Now())
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return apierror.InvalidState("alguna entrada pendiente ya fue facturada o rechazada")
	}
	return nil
}

func pendienteToResponse(p model.FacturaPendiente) dto.PendienteResponse {
	return dto.PendienteResponse{
		ID:             p.ID,
		EspecialistaID: p.EspecialistaID,
		ClienteID:      p.ClienteID,
		Tipo:           string(p.Tipo),
		ItemID:         p.ItemID,
		Cantidad:       p.Cantidad,
		FechaServicio:  p.FechaServicio,
		Estado:         p.Estado,
		RevisadoPor:    p.RevisadoPor,
		RevisadoAt:     p.RevisadoAt,
		MotivoRechazo:  p.MotivoRechazo,
		Notas:          p.Notas,
		FacturaID:      p.FacturaID,
	}
}
