package repository

import (
	"context"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CajaRepository interface {
	CreateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error
	FindSesionAbiertaPorSede(ctx context.Context, tx *gorm.DB, sedeID int) (*model.SesionCaja, error)
	FindSesionByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error)
	// CerrarSesion closes the session only if it is still open.
	CerrarSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) (bool, error)
	CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, tx *gorm.DB, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error)
	ListMovimientosPorFactura(ctx context.Context, tx *gorm.DB, facturaID uuid.UUID) ([]model.MovimientoCaja, error)
	ListSesiones(ctx context.Context, sedeID int, page, limit int) ([]model.SesionCaja, int64, error)
	DB() *gorm.DB
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error {
	return conn(ctx, r.db, tx).Create(s).Error
}

func (r *cajaRepo) FindSesionAbiertaPorSede(ctx context.Context, tx *gorm.DB, sedeID int) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := conn(ctx, r.db, tx).Where("sede_id = ? AND estado = ?", sedeID, model.CajaAbierta).First(&s).Error
	return &s, err
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := conn(ctx, r.db, tx).Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *cajaRepo) CerrarSesion(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.SesionCaja{}).
		Where("id = ? AND estado = ?", s.ID, model.CajaAbierta).
		Updates(map[string]interface{}{
			"estado":          model.CajaCerrada,
			"cerrada_por":     s.CerradaPor,
			"monto_declarado": s.MontoDeclarado,
			"observaciones":   s.Observaciones,
			"closed_at":       s.ClosedAt,
		})
	return res.RowsAffected == 1, res.Error
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoCaja) error {
	return conn(ctx, r.db, tx).Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, tx *gorm.DB, sesionCajaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := conn(ctx, r.db, tx).Where("sesion_caja_id = ?", sesionCajaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) ListMovimientosPorFactura(ctx context.Context, tx *gorm.DB, facturaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := conn(ctx, r.db, tx).Where("factura_id = ?", facturaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) ListSesiones(ctx context.Context, sedeID int, page, limit int) ([]model.SesionCaja, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SesionCaja{})
	if sedeID > 0 {
		q = q.Where("sede_id = ?", sedeID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := paginar(page, limit, 100, 20)
	var sesiones []model.SesionCaja
	err := q.Order("opened_at DESC").Offset(offset).Limit(limit).Find(&sesiones).Error
	return sesiones, total, err
}

