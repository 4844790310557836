package repository

import (
	"context"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CatalogoRepository is the engine's read-only window on the back-office
// catalog. The only write is completing an invoiced appointment.
type CatalogoRepository interface {
	FindServicio(ctx context.Context, id uuid.UUID) (*model.Servicio, error)
	FindProducto(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindProductoPorCodigo(ctx context.Context, codigo string) (*model.Producto, error)
	// FindComisionEspecialista returns gorm.ErrRecordNotFound when the
	// specialist has no override for the service.
	FindComisionEspecialista(ctx context.Context, especialistaID, servicioID uuid.UUID) (*model.ComisionEspecialista, error)
	FindSede(ctx context.Context, id int) (*model.Sede, error)
	// FindSedeDevolucion returns the flagged return location, falling back to
	// the lowest sede id.
	FindSedeDevolucion(ctx context.Context, tx *gorm.DB) (*model.Sede, error)
	CompletarCita(ctx context.Context, tx *gorm.DB, citaID uuid.UUID) error
}

type catalogoRepo struct{ db *gorm.DB }

func NewCatalogoRepository(db *gorm.DB) CatalogoRepository { return &catalogoRepo{db: db} }

func (r *catalogoRepo) FindServicio(ctx context.Context, id uuid.UUID) (*model.Servicio, error) {
	var s model.Servicio
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *catalogoRepo) FindProducto(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	return &p, err
}

func (r *catalogoRepo) FindProductoPorCodigo(ctx context.Context, codigo string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).Where("codigo_barras = ? AND activo = ?", codigo, true).First(&p).Error
	return &p, err
}

func (r *catalogoRepo) FindComisionEspecialista(ctx context.Context, especialistaID, servicioID uuid.UUID) (*model.ComisionEspecialista, error) {
	var c model.ComisionEspecialista
	err := r.db.WithContext(ctx).
		Where("especialista_id = ? AND servicio_id = ?", especialistaID, servicioID).
		First(&c).Error
	return &c, err
}

func (r *catalogoRepo) FindSede(ctx context.Context, id int) (*model.Sede, error) {
	var s model.Sede
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	return &s, err
}

func (r *catalogoRepo) FindSedeDevolucion(ctx context.Context, tx *gorm.DB) (*model.Sede, error) {
	var s model.Sede
	err := conn(ctx, r.db, tx).Where("activa = ?", true).
		Order("es_devolucion DESC, id ASC").
		First(&s).Error
	return &s, err
}

func (r *catalogoRepo) CompletarCita(ctx context.Context, tx *gorm.DB, citaID uuid.UUID) error {
	res := conn(ctx, r.db, tx).Model(&model.Cita{}).Where("id = ?", citaID).
		Updates(map[string]interface{}{"estado": model.CitaCompletada, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
