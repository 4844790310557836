package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
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

func TestComputeRetryBackoff(t *testing.T) {
	tests := []struct {
		intentos int
		want     time.Duration
	}{
		{0, time.Minute},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{6, 32 * time.Minute},
		{7, time.Hour},
		{10, time.Hour},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, computeRetryBackoff(tt.intentos), "intentos=%d", tt.intentos)
	}
}

func TestWithRetry_SegundoIntento(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 3, func(attempt int) error {
		calls++
		if attempt == 0 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetry_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := withRetry(ctx, 3, func(int) error {
		calls++
		return errors.New("boom")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

// ── Email ─────────────────────────────────────────────────────────────────────

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) SendComprobante(to, _, _, _ string) error {
	f.sent = append(f.sent, to)
	return f.err
}

func emailPayload(t *testing.T, to string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(EmailJobPayload{ToEmail: to, Subject: "Factura", Body: "hola", PDFPath: "/tmp/x.pdf"})
	require.NoError(t, err)
	return raw
}

func TestEmailWorker_Process(t *testing.T) {
	sender := &fakeSender{}
	w := NewEmailWorker(sender, nil)

	w.Process(context.Background(), emailPayload(t, "ana@example.com"))
	assert.Equal(t, []string{"ana@example.com"}, sender.sent)

	w.Process(context.Background(), emailPayload(t, ""))
	assert.Len(t, sender.sent, 1, "sin destinatario no se envía")

	w.Process(context.Background(), json.RawMessage(`{no-json`))
	assert.Len(t, sender.sent, 1)
}

func TestEmailWorker_FalloSinRedis(t *testing.T) {
	sender := &fakeSender{err: errors.New("smtp down")}
	w := NewEmailWorker(sender, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NotPanics(t, func() { w.Process(ctx, emailPayload(t, "ana@example.com")) })
	assert.Len(t, sender.sent, 1)
}

// ── Comprobante ───────────────────────────────────────────────────────────────

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "worker.db") + "?_journal_mode=WAL&_busy_timeout=5000"
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

func seedFactura(t *testing.T, db *gorm.DB) *model.Factura {
	t.Helper()
	servicio := &model.Servicio{Nombre: "Corte clásico", Precio: decimal.NewFromInt(25000)}
	require.NoError(t, db.Create(servicio).Error)

	cajero := uuid.New()
	f := &model.Factura{
		Numero:     "FV-000042",
		SedeID:     1,
		EmitidaAt:  time.Now(),
		Subtotal:   decimal.NewFromInt(25000),
		Total:      decimal.NewFromInt(25000),
		Estado:     model.FacturaEstadoPagada,
		EmitidaPor: cajero,
		Lineas: []model.FacturaLinea{{
			Tipo: model.LineaServicio, ItemID: servicio.ID, Cantidad: 1,
			PrecioUnitario: decimal.NewFromInt(25000), Subtotal: decimal.NewFromInt(25000),
		}},
		Pagos: []model.Pago{{
			MetodoPagoID: uuid.New(), Monto: decimal.NewFromInt(25000), PagadoPor: cajero, PagadoAt: time.Now(),
		}},
	}
	require.NoError(t, db.Create(f).Error)
	return f
}

func comprobantePayload(t *testing.T, id uuid.UUID) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(ComprobanteJobPayload{FacturaID: id.String()})
	require.NoError(t, err)
	return raw
}

func TestComprobanteWorker_GeneraPDF(t *testing.T) {
	db := newTestDB(t)
	f := seedFactura(t, db)
	storage := t.TempDir()
	comprobantes := repository.NewComprobanteRepository(db)
	w := NewComprobanteWorker(
		repository.NewFacturaRepository(db),
		repository.NewCatalogoRepository(db),
		comprobantes, nil, nil, storage, "Salón Prueba",
	)
	ctx := context.Background()

	w.Process(ctx, comprobantePayload(t, f.ID))

	comp, err := comprobantes.FindByFacturaID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ComprobanteGenerado, comp.Estado)
	assert.Equal(t, 1, comp.Intentos)
	require.NotNil(t, comp.PDFPath)
	assert.Equal(t, filepath.Join(storage, "factura_FV-000042.pdf"), *comp.PDFPath)
	info, err := os.Stat(*comp.PDFPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	// already generated: a replayed job leaves the row untouched
	w.Process(ctx, comprobantePayload(t, f.ID))
	comp, err = comprobantes.FindByFacturaID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, comp.Intentos)
}

func TestComprobanteWorker_FacturaInexistente(t *testing.T) {
	db := newTestDB(t)
	comprobantes := repository.NewComprobanteRepository(db)
	w := NewComprobanteWorker(repository.NewFacturaRepository(db), nil, comprobantes, nil, nil, t.TempDir(), "Salón")
	ctx := context.Background()
	id := uuid.New()

	w.Process(ctx, comprobantePayload(t, id))
	w.Process(ctx, json.RawMessage(`{"factura_id":"no-es-uuid"}`))

	_, err := comprobantes.FindByFacturaID(ctx, id)
	assert.Error(t, err, "sin factura no se crea comprobante")
}

func TestReintentos_AgotadosSalenDeLaCola(t *testing.T) {
	db := newTestDB(t)
	f := seedFactura(t, db)
	comprobantes := repository.NewComprobanteRepository(db)
	ctx := context.Background()

	comp, err := comprobantes.Upsert(ctx, f.ID)
	require.NoError(t, err)
	pasado := time.Now().Add(-time.Minute)
	msg := "disk full"
	comp.Estado = model.ComprobanteError
	comp.Intentos = MaxComprobanteRetries
	comp.LastError = &msg
	comp.NextRetryAt = &pasado
	require.NoError(t, comprobantes.Update(ctx, comp))

	assert.Zero(t, Reintentos{Comprobantes: comprobantes}.pasada(ctx))

	pendientes, err := comprobantes.ListPendingRetries(ctx, time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, pendientes)
	comp, err = comprobantes.FindByFacturaID(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, comp.NextRetryAt)
	assert.Equal(t, model.ComprobanteError, comp.Estado)
}

func TestReintentos_FueraDeLaAgendaSinDispatcher(t *testing.T) {
	db := newTestDB(t)
	f := seedFactura(t, db)
	comprobantes := repository.NewComprobanteRepository(db)
	ctx := context.Background()

	comp, err := comprobantes.Upsert(ctx, f.ID)
	require.NoError(t, err)
	pasado := time.Now().Add(-time.Minute)
	futuro := time.Now().Add(time.Hour)
	comp.Estado = model.ComprobanteError
	comp.Intentos = 1
	comp.NextRetryAt = &futuro
	require.NoError(t, comprobantes.Update(ctx, comp))

	r := Reintentos{Comprobantes: comprobantes}
	assert.Zero(t, r.pasada(ctx))
	comp, err = comprobantes.FindByFacturaID(ctx, f.ID)
	require.NoError(t, err)
	assert.NotNil(t, comp.NextRetryAt, "todavía no vence")

	comp.NextRetryAt = &pasado
	require.NoError(t, comprobantes.Update(ctx, comp))
	assert.Zero(t, r.pasada(ctx))
	comp, err = comprobantes.FindByFacturaID(ctx, f.ID)
	require.NoError(t, err)
	assert.Nil(t, comp.NextRetryAt)
	assert.Equal(t, 1, comp.Intentos)
}
