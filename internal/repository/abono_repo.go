package repository

import (
	"context"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AbonoRepository interface {
	Create(ctx context.Context, tx *gorm.DB, a *model.Abono) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Abono, error)
	// ListDisponibles returns the client's available credits, oldest first.
	ListDisponibles(ctx context.Context, clienteID uuid.UUID) ([]model.Abono, error)
	// Redimir subtracts monto if the credit is still available with enough
	// balance, flipping it to agotado when the balance reaches zero.
	Redimir(ctx context.Context, tx *gorm.DB, id uuid.UUID, monto decimal.Decimal) (bool, error)
	CreateRedencion(ctx context.Context, tx *gorm.DB, r *model.RedencionAbono) error
	ListRedenciones(ctx context.Context, tx *gorm.DB, abonoID uuid.UUID) ([]model.RedencionAbono, error)
	// Anular voids a credit only while it is untouched.
	Anular(ctx context.Context, tx *gorm.DB, id, usuarioID uuid.UUID, motivo string, at time.Time) (bool, error)
	DB() *gorm.DB
}

type abonoRepo struct{ db *gorm.DB }

func NewAbonoRepository(db *gorm.DB) AbonoRepository { return &abonoRepo{db: db} }

func (r *abonoRepo) DB() *gorm.DB { return r.db }

func (r *abonoRepo) Create(ctx context.Context, tx *gorm.DB, a *model.Abono) error {
	return conn(ctx, r.db, tx).Create(a).Error
}

func (r *abonoRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Abono, error) {
	var a model.Abono
	err := conn(ctx, r.db, tx).Where("id = ?", id).First(&a).Error
	return &a, err
}

func (r *abonoRepo) ListDisponibles(ctx context.Context, clienteID uuid.UUID) ([]model.Abono, error) {
	var abonos []model.Abono
	err := r.db.WithContext(ctx).
		Where("cliente_id = ? AND estado = ?", clienteID, model.AbonoDisponible).
		Order("created_at ASC, id ASC").
		Find(&abonos).Error
	return abonos, err
}

func (r *abonoRepo) Redimir(ctx context.Context, tx *gorm.DB, id uuid.UUID, monto decimal.Decimal) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.Abono{}).
		Where("id = ? AND estado = ? AND saldo_disponible >= ?", id, model.AbonoDisponible, monto).
		Updates(map[string]interface{}{
			"saldo_disponible": gorm.Expr("saldo_disponible - ?", monto),
			"estado": gorm.Expr("CASE WHEN saldo_disponible - ? = 0 THEN ? ELSE estado END",
				monto, model.AbonoAgotado),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *abonoRepo) CreateRedencion(ctx context.Context, tx *gorm.DB, red *model.RedencionAbono) error {
	return conn(ctx, r.db, tx).Create(red).Error
}

func (r *abonoRepo) ListRedenciones(ctx context.Context, tx *gorm.DB, abonoID uuid.UUID) ([]model.RedencionAbono, error) {
	var reds []model.RedencionAbono
	err := conn(ctx, r.db, tx).Where("abono_id = ?", abonoID).Order("aplicado_at ASC").Find(&reds).Error
	return reds, err
}

func (r *abonoRepo) Anular(ctx context.Context, tx *gorm.DB, id, usuarioID uuid.UUID, motivo string, at time.Time) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.Abono{}).
		Where("id = ? AND estado = ? AND saldo_disponible = monto_original", id, model.AbonoDisponible).
		Updates(map[string]interface{}{
			"estado":           model.AbonoAnulado,
			"anulado_por":      usuarioID,
			"anulado_at":       at,
			"motivo_anulacion": motivo,
		})
	return res.RowsAffected == 1, res.Error
}
