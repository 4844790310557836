package repository

import (
	"context"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FacturaFilter defines filters for listing invoices.
type FacturaFilter struct {
	SedeID    int
	ClienteID *uuid.UUID
	Estado    string
	Desde     *time.Time
	Hasta     *time.Time
	Page      int
	Limit     int
}

type FacturaRepository interface {
	// Create inserts the invoice with its lines and payments.
	Create(ctx context.Context, tx *gorm.DB, f *model.Factura) error
	FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Factura, error)
	// LockByID loads the invoice with its children and locks its row.
	LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Factura, error)
	// UpdateCabecera writes totals, state and session of the invoice header.
	UpdateCabecera(ctx context.Context, tx *gorm.DB, f *model.Factura) error
	// CambiarEstado moves the invoice from one state to another; false when
	// the invoice was no longer in the expected state.
	CambiarEstado(ctx context.Context, tx *gorm.DB, id uuid.UUID, desde, hasta string) (bool, error)
	CreateLinea(ctx context.Context, tx *gorm.DB, l *model.FacturaLinea) error
	UpdateLinea(ctx context.Context, tx *gorm.DB, l *model.FacturaLinea) error
	DeleteLinea(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	CreatePago(ctx context.Context, tx *gorm.DB, p *model.Pago) error
	DeletePagos(ctx context.Context, tx *gorm.DB, facturaID uuid.UUID) error
	CreateEvento(ctx context.Context, tx *gorm.DB, e *model.FacturaEvento) error
	List(ctx context.Context, filter FacturaFilter) ([]model.Factura, int64, error)
	// ListLineasPagadas returns lines of paid invoices attributed to the
	// specialist, with the invoice emission date.
	ListLineasPagadas(ctx context.Context, especialistaID uuid.UUID, desde, hasta time.Time) ([]LineaPagada, error)
	DB() *gorm.DB
}

// LineaPagada is a commission report row.
type LineaPagada struct {
	model.FacturaLinea
	EmitidaAt time.Time
}

type facturaRepo struct{ db *gorm.DB }

func NewFacturaRepository(db *gorm.DB) FacturaRepository { return &facturaRepo{db: db} }

func (r *facturaRepo) DB() *gorm.DB { return r.db }

func (r *facturaRepo) Create(ctx context.Context, tx *gorm.DB, f *model.Factura) error {
	return conn(ctx, r.db, tx).Create(f).Error
}

func preloadFactura(q *gorm.DB) *gorm.DB {
	return q.Preload("Lineas", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Pagos").
		Preload("Redenciones").
		Preload("Eventos", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") })
}

func (r *facturaRepo) FindByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Factura, error) {
	var f model.Factura
	err := preloadFactura(conn(ctx, r.db, tx)).Where("id = ?", id).First(&f).Error
	return &f, err
}

func (r *facturaRepo) LockByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Factura, error) {
	var f model.Factura
	err := preloadFactura(forUpdate(conn(ctx, r.db, tx))).Where("id = ?", id).First(&f).Error
	return &f, err
}

func (r *facturaRepo) UpdateCabecera(ctx context.Context, tx *gorm.DB, f *model.Factura) error {
	return conn(ctx, r.db, tx).Model(&model.Factura{}).Where("id = ?", f.ID).
		Updates(map[string]interface{}{
			"subtotal":        f.Subtotal,
			"descuento":       f.Descuento,
			"impuesto":        f.Impuesto,
			"total":           f.Total,
			"aplica_impuesto": f.AplicaImpuesto,
			"estado":          f.Estado,
			"sesion_caja_id":  f.SesionCajaID,
			"emitida_at":      f.EmitidaAt,
			"observaciones":   f.Observaciones,
			"updated_at":      time.Now(),
		}).Error
}

func (r *facturaRepo) CambiarEstado(ctx context.Context, tx *gorm.DB, id uuid.UUID, desde, hasta string) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.Factura{}).
		Where("id = ? AND estado = ?", id, desde).
		Updates(map[string]interface{}{"estado": hasta, "updated_at": time.Now()})
	return res.RowsAffected == 1, res.Error
}

func (r *facturaRepo) CreateLinea(ctx context.Context, tx *gorm.DB, l *model.FacturaLinea) error {
	return conn(ctx, r.db, tx).Create(l).Error
}

func (r *facturaRepo) UpdateLinea(ctx context.Context, tx *gorm.DB, l *model.FacturaLinea) error {
	return conn(ctx, r.db, tx).Model(&model.FacturaLinea{}).Where("id = ?", l.ID).
		Updates(map[string]interface{}{
			"cantidad":        l.Cantidad,
			"precio_unitario": l.PrecioUnitario,
			"descuento_linea": l.DescuentoLinea,
			"subtotal":        l.Subtotal,
			"especialista_id": l.EspecialistaID,
			"comision_tipo":   l.ComisionTipo,
			"comision_valor":  l.ComisionValor,
			"comision_monto":  l.ComisionMonto,
		}).Error
}

func (r *facturaRepo) DeleteLinea(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return conn(ctx, r.db, tx).Where("id = ?", id).Delete(&model.FacturaLinea{}).Error
}

func (r *facturaRepo) CreatePago(ctx context.Context, tx *gorm.DB, p *model.Pago) error {
	return conn(ctx, r.db, tx).Create(p).Error
}

func (r *facturaRepo) DeletePagos(ctx context.Context, tx *gorm.DB, facturaID uuid.UUID) error {
	return conn(ctx, r.db, tx).Where("factura_id = ?", facturaID).Delete(&model.Pago{}).Error
}

func (r *facturaRepo) CreateEvento(ctx context.Context, tx *gorm.DB, e *model.FacturaEvento) error {
	return conn(ctx, r.db, tx).Create(e).Error
}

func (r *facturaRepo) List(ctx context.Context, filter FacturaFilter) ([]model.Factura, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Factura{})
	if filter.SedeID > 0 {
		q = q.Where("sede_id = ?", filter.SedeID)
	}
	if filter.ClienteID != nil {
		q = q.Where("cliente_id = ?", *filter.ClienteID)
	}
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Desde != nil {
		q = q.Where("emitida_at >= ?", *filter.Desde)
	}
	if filter.Hasta != nil {
		q = q.Where("emitida_at < ?", *filter.Hasta)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset, limit := paginar(filter.Page, filter.Limit, 200, 50)

	var facturas []model.Factura
	err := q.Preload("Lineas").Preload("Pagos").Preload("Redenciones").
		Order("emitida_at DESC").
		Offset(offset).Limit(limit).
		Find(&facturas).Error
	return facturas, total, err
}

func (r *facturaRepo) ListLineasPagadas(ctx context.Context, especialistaID uuid.UUID, desde, hasta time.Time) ([]LineaPagada, error) {
	var filas []LineaPagada
	err := r.db.WithContext(ctx).Model(&model.FacturaLinea{}).
		Select("factura_lineas.*, facturas.emitida_at AS emitida_at").
		Joins("JOIN facturas ON facturas.id = factura_lineas.factura_id").
		Where("facturas.estado = ? AND factura_lineas.especialista_id = ?", model.FacturaEstadoPagada, especialistaID).
		Where("facturas.emitida_at >= ? AND facturas.emitida_at < ?", desde, hasta).
		Order("facturas.emitida_at ASC").
		Scan(&filas).Error
	return filas, err
}
