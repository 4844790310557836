package repository

import (
	"context"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PendienteFilter defines filters for listing pending service entries.
type PendienteFilter struct {
	ClienteID      *uuid.UUID
	EspecialistaID *uuid.UUID
	Estados        []string
}

type PendienteRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.FacturaPendiente) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.FacturaPendiente, error)
	FindByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.FacturaPendiente, error)
	ListPorFactura(ctx context.Context, tx *gorm.DB, facturaID uuid.UUID) ([]model.FacturaPendiente, error)
	List(ctx context.Context, filter PendienteFilter) ([]model.FacturaPendiente, error)
	// Revisar moves an entry out of "pendiente" (approve or reject).
	Revisar(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado string, revisor uuid.UUID, at time.Time, motivo *string) (bool, error)
	// MarcarFacturadas flips still-active entries to facturado and returns how
	// many rows changed.
	MarcarFacturadas(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, facturaID, revisor uuid.UUID, at time.Time) (int64, error)
	// Update rewrites quantity, state and review fields of an entry.
	Update(ctx context.Context, tx *gorm.DB, p *model.FacturaPendiente) error
	DB() *gorm.DB
}

type pendienteRepo struct{ db *gorm.DB }

func NewPendienteRepository(db *gorm.DB) PendienteRepository { return &pendienteRepo{db: db} }

func (r *pendienteRepo) DB() *gorm.DB { return r.db }

func (r *pendienteRepo) Create(ctx context.Context, tx *gorm.DB, p *model.FacturaPendiente) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *pendienteRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.FacturaPendiente, error) {
	var p model.FacturaPendiente
	err := conn(ctx, r.db, tx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *pendienteRepo) FindByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]model.FacturaPendiente, error) {
	var ps []model.FacturaPendiente
	err := conn(ctx, r.db, tx).Where("id IN ?", ids).Order("fecha_servicio ASC").Find(&ps).Error
	return ps, err
}

func (r *pendienteRepo) ListPorFactura(ctx context.Context, tx *gorm.DB, facturaID uuid.UUID) ([]model.FacturaPendiente, error) {
	var ps []model.FacturaPendiente
	err := conn(ctx, r.db, tx).Where("factura_id = ?", facturaID).Order("created_at ASC").Find(&ps).Error
	return ps, err
}

func (r *pendienteRepo) List(ctx context.Context, filter PendienteFilter) ([]model.FacturaPendiente, error) {
	q := r.db.WithContext(ctx).Model(&model.FacturaPendiente{})
	if filter.ClienteID != nil {
		q = q.Where("cliente_id = ?", *filter.ClienteID)
	}
	if filter.EspecialistaID != nil {
		q = q.Where("especialista_id = ?", *filter.EspecialistaID)
	}
	if len(filter.Estados) > 0 {
		q = q.Where("estado IN ?", filter.Estados)
	}
	var ps []model.FacturaPendiente
	err := q.Order("fecha_servicio ASC").Find(&ps).Error
	return ps, err
}

func (r *pendienteRepo) Revisar(ctx context.Context, tx *gorm.DB, id uuid.UUID, estado string, revisor uuid.UUID, at time.Time, motivo *string) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.FacturaPendiente{}).
		Where("id = ? AND estado = ?", id, model.PendienteEstadoPendiente).
		Updates(map[string]interface{}{
			"estado":         estado,
			"revisado_por":   revisor,
			"revisado_at":    at,
			"motivo_rechazo": motivo,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *pendienteRepo) MarcarFacturadas(ctx context.Context, tx *gorm.DB, ids []uuid.UUID, facturaID, revisor uuid.UUID, at time.Time) (int64, error) {
	res := conn(ctx, r.db, tx).Model(&model.FacturaPendiente{}).
		Where("id IN ? AND estado IN ?", ids,
			[]string{model.PendienteEstadoPendiente, model.PendienteEstadoAprobado}).
		Updates(map[string]interface{}{
			"estado":       model.PendienteEstadoFacturado,
			"factura_id":   facturaID,
			"revisado_por": revisor,
			"revisado_at":  at,
		})
	return res.RowsAffected, res.Error
}

func (r *pendienteRepo) Update(ctx context.Context, tx *gorm.DB, p *model.FacturaPendiente) error {
	return conn(ctx, r.db, tx).Model(&model.FacturaPendiente{}).Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"cantidad":       p.Cantidad,
			"estado":         p.Estado,
			"revisado_por":   p.RevisadoPor,
			"revisado_at":    p.RevisadoAt,
			"motivo_rechazo": p.MotivoRechazo,
		}).Error
}
