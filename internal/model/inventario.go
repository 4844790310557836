package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TipoMovimiento enumerates inventory ledger movement kinds.
type TipoMovimiento string

const (
	MovCompra         TipoMovimiento = "compra"
	MovVenta          TipoMovimiento = "venta"
	MovAjustePositivo TipoMovimiento = "ajuste_positivo"
	MovAjusteNegativo TipoMovimiento = "ajuste_negativo"
	MovTraslado       TipoMovimiento = "traslado"
	MovUsoInterno     TipoMovimiento = "uso_interno"
	MovDevolucion     TipoMovimiento = "devolucion"
	MovMerma          TipoMovimiento = "merma"
	MovMuestra        TipoMovimiento = "muestra"
	MovDonacion       TipoMovimiento = "donacion"
)

// StockSede is the on-hand quantity of one product at one sede.
// Cantidad never goes below zero: decrements are conditional updates and the
// column carries a check constraint as a backstop.
type StockSede struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductoID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_producto_sede"`
	SedeID     int       `gorm:"not null;uniqueIndex:idx_stock_producto_sede"`
	Cantidad   int       `gorm:"not null;default:0;check:chk_stock_no_negativo,cantidad >= 0"`
	UpdatedAt  time.Time
}

func (StockSede) TableName() string { return "stock_sedes" }

func (s *StockSede) BeforeCreate(*gorm.DB) error {
	asignarID(&s.ID)
	return nil
}

// MovimientoInventario is an append-only ledger entry. Corrections are new
// movements linked through RevierteMovimientoID.
type MovimientoInventario struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ProductoID           uuid.UUID        `gorm:"type:uuid;not null;index"`
	Tipo                 TipoMovimiento   `gorm:"type:varchar(20);not null"`
	Cantidad             int              `gorm:"not null"`
	SedeOrigenID         *int             `gorm:"index"`
	SedeDestinoID        *int             `gorm:"index"`
	CostoUnitario        *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CostoTotal           *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Motivo               string
	Referencia           string
	FacturaID            *uuid.UUID `gorm:"type:uuid;index"`
	RevierteMovimientoID *uuid.UUID `gorm:"type:uuid;index"`
	RealizadoPor         uuid.UUID  `gorm:"type:uuid;not null"`
	CreatedAt            time.Time
}

func (MovimientoInventario) TableName() string { return "movimientos_inventario" }

func (m *MovimientoInventario) BeforeCreate(*gorm.DB) error {
	asignarID(&m.ID)
	return nil
}

// EsEntrada reports whether the movement added stock at SedeDestinoID only.
func (m MovimientoInventario) EsEntrada() bool {
	switch m.Tipo {
	case MovCompra, MovAjustePositivo, MovDevolucion:
		return true
	}
	return false
}

// EsSalida reports whether the movement removed stock at SedeOrigenID only.
func (m MovimientoInventario) EsSalida() bool {
	switch m.Tipo {
	case MovVenta, MovAjusteNegativo, MovUsoInterno, MovMerma, MovMuestra, MovDonacion:
		return true
	}
	return false
}
