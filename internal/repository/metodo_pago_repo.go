package repository

import (
	"context"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MetodoPagoRepository interface {
	List(ctx context.Context, soloActivos bool) ([]model.MetodoPago, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.MetodoPago, error)
}

type metodoPagoRepo struct{ db *gorm.DB }

func NewMetodoPagoRepository(db *gorm.DB) MetodoPagoRepository { return &metodoPagoRepo{db: db} }

func (r *metodoPagoRepo) List(ctx context.Context, soloActivos bool) ([]model.MetodoPago, error) {
	q := r.db.WithContext(ctx)
	if soloActivos {
		q = q.Where("activo = ?", true)
	}
	var metodos []model.MetodoPago
	err := q.Order("nombre ASC").Find(&metodos).Error
	return metodos, err
}

func (r *metodoPagoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.MetodoPago, error) {
	var m model.MetodoPago
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	return &m, err
}
