package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "repo.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, infra.RunMigrations(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestRunMigrations_Idempotente(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, infra.RunMigrations(db))
}

// ── Inventario ────────────────────────────────────────────────────────────────

func TestInventarioRepo_DecrementarEsCondicional(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewInventarioRepository(db)
	ctx := context.Background()
	productoID := uuid.New()

	require.NoError(t, repo.IncrementarStock(ctx, nil, productoID, 1, 3))
	require.NoError(t, repo.IncrementarStock(ctx, nil, productoID, 1, 2))
	n, err := repo.GetStock(ctx, nil, productoID, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	ok, err := repo.DecrementarStock(ctx, nil, productoID, 1, 6)
	require.NoError(t, err)
	assert.False(t, ok, "nunca deja stock negativo")

	ok, err = repo.DecrementarStock(ctx, nil, productoID, 1, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err = repo.GetStock(ctx, nil, productoID, 2)
	require.NoError(t, err)
	assert.Zero(t, n, "sin fila el stock es cero")
}

func TestInventarioRepo_LockStockOrdenaPorSede(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewInventarioRepository(db)
	ctx := context.Background()
	productoID := uuid.New()

	for _, sede := range []int{3, 1, 2} {
		require.NoError(t, repo.IncrementarStock(ctx, nil, productoID, sede, sede))
	}
	filas, err := repo.LockStock(ctx, nil, productoID)
	require.NoError(t, err)
	require.Len(t, filas, 3)
	for i, f := range filas {
		assert.Equal(t, i+1, f.SedeID)
	}
}

// ── Caja ──────────────────────────────────────────────────────────────────────

func TestCajaRepo_UnaSesionAbiertaPorSede(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewCajaRepository(db)
	ctx := context.Background()

	nueva := func() *model.SesionCaja {
		return &model.SesionCaja{SedeID: 1, AbiertaPor: uuid.New(), MontoInicial: decimal.Zero, Estado: model.CajaAbierta, OpenedAt: time.Now()}
	}
	primera := nueva()
	require.NoError(t, repo.CreateSesion(ctx, nil, primera))

	err := repo.CreateSesion(ctx, nil, nueva())
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	ahora := time.Now()
	primera.ClosedAt = &ahora
	ok, err := repo.CerrarSesion(ctx, nil, primera)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.CerrarSesion(ctx, nil, primera)
	require.NoError(t, err)
	assert.False(t, ok, "una sesión se cierra una sola vez")

	assert.NoError(t, repo.CreateSesion(ctx, nil, nueva()))
}

// ── Configuración ─────────────────────────────────────────────────────────────

func TestConfiguracionRepo_Secuencia(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewConfiguracionRepository(db)
	ctx := context.Background()

	for want := int64(100); want < 103; want++ {
		got, err := repo.SiguienteSecuencia(ctx, nil, "seq.prueba", 100)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	v, ok, err := repo.Get(ctx, nil, "seq.prueba")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "103", v)

	_, ok, err = repo.Get(ctx, nil, "no.existe")
	require.NoError(t, err)
	assert.False(t, ok)
}
