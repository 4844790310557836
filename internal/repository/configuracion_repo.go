package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConfiguracionRepository interface {
	// Get returns ok=false when the key was never set.
	Get(ctx context.Context, tx *gorm.DB, clave string) (valor string, ok bool, err error)
	Set(ctx context.Context, tx *gorm.DB, clave, valor string) error
	List(ctx context.Context) ([]model.Configuracion, error)
	// SiguienteSecuencia locks the counter row, returns its current value and
	// stores value+1. A missing row starts at inicial.
	SiguienteSecuencia(ctx context.Context, tx *gorm.DB, clave string, inicial int64) (int64, error)
	DB() *gorm.DB
}

type configuracionRepo struct{ db *gorm.DB }

func NewConfiguracionRepository(db *gorm.DB) ConfiguracionRepository {
	return &configuracionRepo{db: db}
}

func (r *configuracionRepo) DB() *gorm.DB { return r.db }

func (r *configuracionRepo) Get(ctx context.Context, tx *gorm.DB, clave string) (string, bool, error) {
	var c model.Configuracion
	err := conn(ctx, r.db, tx).Where("clave = ?", clave).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return c.Valor, true, nil
}

func (r *configuracionRepo) Set(ctx context.Context, tx *gorm.DB, clave, valor string) error {
	c := model.Configuracion{Clave: clave, Valor: valor, UpdatedAt: time.Now()}
	return conn(ctx, r.db, tx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "clave"}},
		DoUpdates: clause.AssignmentColumns([]string{"valor", "updated_at"}),
	}).Create(&c).Error
}

func (r *configuracionRepo) List(ctx context.Context) ([]model.Configuracion, error) {
	var cs []model.Configuracion
	err := r.db.WithContext(ctx).Order("clave ASC").Find(&cs).Error
	return cs, err
}

func (r *configuracionRepo) SiguienteSecuencia(ctx context.Context, tx *gorm.DB, clave string, inicial int64) (int64, error) {
	db := conn(ctx, r.db, tx)
	semilla := model.Configuracion{Clave: clave, Valor: strconv.FormatInt(inicial, 10), UpdatedAt: time.Now()}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&semilla).Error; err != nil {
		return 0, err
	}

	var c model.Configuracion
	if err := forUpdate(db).Where("clave = ?", clave).First(&c).Error; err != nil {
		return 0, err
	}
	actual, err := strconv.ParseInt(c.Valor, 10, 64)
	if err != nil {
		return 0, err
	}
	err = db.Model(&model.Configuracion{}).Where("clave = ?", clave).
		Updates(map[string]interface{}{"valor": strconv.FormatInt(actual+1, 10), "updated_at": time.Now()}).Error
	return actual, err
}
