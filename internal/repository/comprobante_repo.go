package repository

import (
	"context"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ComprobanteRepository interface {
	// Upsert returns the receipt row for the invoice, creating it if needed.
	Upsert(ctx context.Context, facturaID uuid.UUID) (*model.Comprobante, error)
	FindByFacturaID(ctx context.Context, facturaID uuid.UUID) (*model.Comprobante, error)
	Update(ctx context.Context, c *model.Comprobante) error
	// ListPendingRetries returns failed receipts whose next attempt is due.
	ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.Comprobante, error)
}

type comprobanteRepo struct{ db *gorm.DB }

func NewComprobanteRepository(db *gorm.DB) ComprobanteRepository {
	return &comprobanteRepo{db: db}
}

func (r *comprobanteRepo) Upsert(ctx context.Context, facturaID uuid.UUID) (*model.Comprobante, error) {
	c := model.Comprobante{FacturaID: facturaID, Estado: model.ComprobantePendiente}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "factura_id"}}, DoNothing: true}).
		Create(&c).Error
	if err != nil {
		return nil, err
	}
	return r.FindByFacturaID(ctx, facturaID)
}

func (r *comprobanteRepo) FindByFacturaID(ctx context.Context, facturaID uuid.UUID) (*model.Comprobante, error) {
	var c model.Comprobante
	err := r.db.WithContext(ctx).Where("factura_id = ?", facturaID).First(&c).Error
	return &c, err
}

func (r *comprobanteRepo) Update(ctx context.Context, c *model.Comprobante) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *comprobanteRepo) ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.Comprobante, error) {
	var out []model.Comprobante
	err := r.db.WithContext(ctx).
		Where("estado = ? AND next_retry_at IS NOT NULL AND next_retry_at <= ?", model.ComprobanteError, now).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
