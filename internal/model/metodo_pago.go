package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MetodoPago is a catalog entry (efectivo, tarjeta, transferencia, ...).
// Only EsEfectivo methods produce cash movements in the register.
type MetodoPago struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	Codigo             string    `gorm:"type:varchar(30);uniqueIndex;not null"`
	Nombre             string    `gorm:"not null"`
	RequiereReferencia bool      `gorm:"not null;default:false"`
	EsEfectivo         bool      `gorm:"not null;default:false"`
	Activo             bool      `gorm:"not null;default:true"`
}

func (MetodoPago) TableName() string { return "metodos_pago" }

func (m *MetodoPago) BeforeCreate(*gorm.DB) error {
	asignarID(&m.ID)
	return nil
}
