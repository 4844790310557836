package infra

import (
	"fmt"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/config"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the Postgres pool. TranslateError maps unique violations
// to gorm.ErrDuplicatedKey, which services rely on to detect races.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Use(otelgorm.NewPlugin()); err != nil {
		log.Warn().Err(err).Msg("otelgorm plugin not installed")
	}

	if cfg.AutoMigrate {
		if err := RunMigrations(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Models lists every persisted type, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.Sede{},
		&model.Servicio{},
		&model.Producto{},
		&model.ComisionEspecialista{},
		&model.Cita{},
		&model.MetodoPago{},
		&model.Configuracion{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.StockSede{},
		&model.MovimientoInventario{},
		&model.Factura{},
		&model.FacturaLinea{},
		&model.Pago{},
		&model.FacturaEvento{},
		&model.Abono{},
		&model.RedencionAbono{},
		&model.FacturaPendiente{},
		&model.Comprobante{},
	}
}

// RunMigrations creates or updates all tables, then applies the DDL that
// struct tags cannot express. Safe to re-run; works on Postgres and SQLite.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// handle on its own. Each statement uses IF NOT EXISTS so re-running is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		// at most one open cash session per sede
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sesiones_caja_sede_abierta
		    ON sesiones_caja (sede_id) WHERE estado = 'abierta'`,
		// a movement is reversed at most once
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_movimientos_caja_revierte
		    ON movimientos_caja (revierte_movimiento_id) WHERE revierte_movimiento_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_movimientos_inventario_revierte
		    ON movimientos_inventario (revierte_movimiento_id)
		    WHERE revierte_movimiento_id IS NOT NULL AND factura_id IS NULL`,
		// retry cron scan
		`CREATE INDEX IF NOT EXISTS idx_comprobantes_pending_retry
		    ON comprobantes (next_retry_at) WHERE estado = 'error'`,
	}
	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
