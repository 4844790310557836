package repository

import (
	"context"
	"errors"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovimientoFilter defines filters for listing inventory movements.
type MovimientoFilter struct {
	ProductoID *uuid.UUID
	SedeID     int
	Tipo       string
	FacturaID  *uuid.UUID
	Page       int
	Limit      int
}

type InventarioRepository interface {
	// GetStock returns 0 when the product has never been stocked at the sede.
	GetStock(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, sedeID int) (int, error)
	// LockStock locks every stock row of the product, ordered by sede ascending.
	LockStock(ctx context.Context, tx *gorm.DB, productoID uuid.UUID) ([]model.StockSede, error)
	// LockStockSede locks one row and returns its quantity (0 if absent).
	LockStockSede(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, sedeID int) (int, error)
	IncrementarStock(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, sedeID, cantidad int) error
	// DecrementarStock subtracts only when enough stock remains; false means
	// nothing was changed.
	DecrementarStock(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, sedeID, cantidad int) (bool, error)
	CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoInventario) error
	FindMovimiento(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MovimientoInventario, error)
	// FindReversion returns the movement that reverses id, or gorm.ErrRecordNotFound.
	FindReversion(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MovimientoInventario, error)
	ListMovimientosPorFactura(ctx context.Context, tx *gorm.DB, facturaID, productoID uuid.UUID) ([]model.MovimientoInventario, error)
	ListMovimientos(ctx context.Context, filter MovimientoFilter) ([]model.MovimientoInventario, int64, error)
	DB() *gorm.DB
}

type inventarioRepo struct{ db *gorm.DB }

func NewInventarioRepository(db *gorm.DB) InventarioRepository {
	return &inventarioRepo{db: db}
}

func (r *inventarioRepo) DB() *gorm.DB { return r.db }

func (r *inventarioRepo) GetStock(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, sedeID int) (int, error) {
	var s model.StockSede
	err := conn(ctx, r.db, tx).Where("producto_id = ? AND sede_id = ?", productoID, sedeID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return s.Cantidad, err
}

func (r *inventarioRepo) LockStock(ctx context.Context, tx *gorm.DB, productoID uuid.UUID) ([]model.StockSede, error) {
	var filas []model.StockSede
	err := forUpdate(conn(ctx, r.db, tx)).
		Where("producto_id = ?", productoID).
		Order("sede_id ASC").
		Find(&filas).Error
	return filas, err
}

func (r *inventarioRepo) LockStockSede(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, sedeID int) (int, error) {
	var s model.StockSede
	err := forUpdate(conn(ctx, r.db, tx)).
		Where("producto_id = ? AND sede_id = ?", productoID, sedeID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return s.Cantidad, err
}

func (r *inventarioRepo) IncrementarStock(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, sedeID, cantidad int) error {
	ahora := time.Now()
	fila := model.StockSede{ProductoID: productoID, SedeID: sedeID, Cantidad: cantidad, UpdatedAt: ahora}
	return conn(ctx, r.db, tx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "producto_id"}, {Name: "sede_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"cantidad":   gorm.Expr("stock_sedes.cantidad + ?", cantidad),
			"updated_at": ahora,
		}),
	}).Create(&fila).Error
}

func (r *inventarioRepo) DecrementarStock(ctx context.Context, tx *gorm.DB, productoID uuid.UUID, sedeID, cantidad int) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.StockSede{}).
		Where("producto_id = ? AND sede_id = ? AND cantidad >= ?", productoID, sedeID, cantidad).
		Updates(map[string]interface{}{
			"cantidad":   gorm.Expr("cantidad - ?", cantidad),
			"updated_at": time.Now(),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *inventarioRepo) CreateMovimiento(ctx context.Context, tx *gorm.DB, m *model.MovimientoInventario) error {
	return conn(ctx, r.db, tx).Create(m).Error
}

func (r *inventarioRepo) FindMovimiento(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MovimientoInventario, error) {
	var m model.MovimientoInventario
	err := conn(ctx, r.db, tx).Where("id = ?", id).First(&m).Error
	return &m, err
}

func (r *inventarioRepo) FindReversion(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.MovimientoInventario, error) {
	var m model.MovimientoInventario
	err := conn(ctx, r.db, tx).Where("revierte_movimiento_id = ?", id).First(&m).Error
	return &m, err
}

func (r *inventarioRepo) ListMovimientosPorFactura(ctx context.Context, tx *gorm.DB, facturaID, productoID uuid.UUID) ([]model.MovimientoInventario, error) {
	var movs []model.MovimientoInventario
	err := conn(ctx, r.db, tx).
		Where("factura_id = ? AND producto_id = ?", facturaID, productoID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *inventarioRepo) ListMovimientos(ctx context.Context, filter MovimientoFilter) ([]model.MovimientoInventario, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.MovimientoInventario{})
	if filter.ProductoID != nil {
		q = q.Where("producto_id = ?", *filter.ProductoID)
	}
	if filter.SedeID > 0 {
		q = q.Where("sede_origen_id = ? OR sede_destino_id = ?", filter.SedeID, filter.SedeID)
	}
	if filter.Tipo != "" {
		q = q.Where("tipo = ?", filter.Tipo)
	}
	if filter.FacturaID != nil {
		q = q.Where("factura_id = ?", *filter.FacturaID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := paginar(filter.Page, filter.Limit, 500, 100)

	var movimientos []model.MovimientoInventario
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&movimientos).Error
	return movimientos, total, err
}
