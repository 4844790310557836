package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ComprobantePendiente = "pendiente"
	ComprobanteGenerado  = "generado"
	ComprobanteError     = "error"
)

// Comprobante tracks the printable receipt of a paid invoice. It is produced
// asynchronously by the worker pool after the invoice transaction commits.
type Comprobante struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FacturaID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null"`
	Estado    string    `gorm:"type:varchar(20);not null;default:'pendiente'"`
	// PDFPath is relative to PDF_STORAGE_PATH
	PDFPath   *string `gorm:"column:pdf_path"`
	EnviadoA  *string
	Intentos  int `gorm:"not null;default:0"`
	LastError *string
	// NextRetryAt is set while a failed receipt waits for the retry cron
	NextRetryAt *time.Time `gorm:"index"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Comprobante) TableName() string { return "comprobantes" }

func (c *Comprobante) BeforeCreate(*gorm.DB) error {
	asignarID(&c.ID)
	return nil
}
