package worker

// comprobante_worker.go
// Renders the PDF receipt of a paid invoice and, when the client left an
// address, queues it for email. Failures are retried in-process with backoff
// and then handed to the retry cron through comprobantes.next_retry_at.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/infra"
	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MaxComprobanteRetries bounds the cron retries before a receipt goes to the DLQ.
const MaxComprobanteRetries = 5

const comprobanteLockTTL = 30 * time.Second

// ComprobanteJobPayload is the job envelope sent to QueueComprobante.
type ComprobanteJobPayload struct {
	FacturaID    string `json:"factura_id"`
	ClienteEmail string `json:"cliente_email,omitempty"`
}

type ComprobanteWorker struct {
	facturas       repository.FacturaRepository
	catalogo       repository.CatalogoRepository
	comprobantes   repository.ComprobanteRepository
	locker         *redislock.Client
	dispatcher     *Dispatcher
	pdfStoragePath string
	negocio        string
}

func NewComprobanteWorker(
	facturas repository.FacturaRepository,
	catalogo repository.CatalogoRepository,
	comprobantes repository.ComprobanteRepository,
	locker *redislock.Client,
	dispatcher *Dispatcher,
	pdfStoragePath string,
	negocio string,
) *ComprobanteWorker {
	return &ComprobanteWorker{
		facturas:       facturas,
		catalogo:       catalogo,
		comprobantes:   comprobantes,
		locker:         locker,
		dispatcher:     dispatcher,
		pdfStoragePath: pdfStoragePath,
		negocio:        negocio,
	}
}

// Process handles a single receipt job:
//  1. Lock the invoice so two workers never render the same receipt
//  2. Load the invoice with lines and payments
//  3. Render the PDF (3 attempts with backoff)
//  4. Record the outcome on the comprobante row
//  5. Queue the email when an address was given
func (w *ComprobanteWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload ComprobanteJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("comprobante_worker: invalid payload")
		return
	}
	facturaID, err := uuid.Parse(payload.FacturaID)
	if err != nil {
		log.Error().Str("factura_id", payload.FacturaID).Msg("comprobante_worker: invalid factura_id")
		return
	}

	if w.locker != nil {
		lock, err := w.locker.Obtain(ctx, "lock:comprobante:"+payload.FacturaID, comprobanteLockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			log.Debug().Str("factura_id", payload.FacturaID).Msg("comprobante_worker: already in progress")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("comprobante_worker: lock failed")
			return
		}
		defer func() { _ = lock.Release(context.Background()) }()
	}

	factura, err := w.facturas.FindByID(ctx, nil, facturaID)
	if err != nil {
		log.Error().Err(err).Str("factura_id", payload.FacturaID).Msg("comprobante_worker: factura not found")
		return
	}
	comp, err := w.comprobantes.Upsert(ctx, facturaID)
	if err != nil {
		log.Error().Err(err).Str("factura_id", payload.FacturaID).Msg("comprobante_worker: upsert failed")
		return
	}
	if comp.Estado == model.ComprobanteGenerado && comp.PDFPath != nil {
		log.Debug().Str("factura", factura.Numero).Msg("comprobante_worker: already generated")
		return
	}

	nombres := w.nombres(ctx, factura)
	var pdfPath string
	pdfErr := withRetry(ctx, 3, func(attempt int) error {
		path, err := infra.GenerateFacturaPDF(factura, nombres, w.negocio, w.pdfStoragePath)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Str("factura", factura.Numero).
				Msg("comprobante_worker: PDF attempt failed")
			return err
		}
		pdfPath = path
		return nil
	})

	comp.Intentos++
	if pdfErr != nil {
		msg := pdfErr.Error()
		next := time.Now().Add(computeRetryBackoff(comp.Intentos))
		comp.Estado = model.ComprobanteError
		comp.LastError = &msg
		comp.NextRetryAt = &next
		if payload.ClienteEmail != "" {
			comp.EnviadoA = &payload.ClienteEmail
		}
		_ = w.comprobantes.Update(ctx, comp)
		log.Error().Err(pdfErr).Str("factura", factura.Numero).Msg("comprobante_worker: PDF failed after retries")
		return
	}

	comp.Estado = model.ComprobanteGenerado
	comp.PDFPath = &pdfPath
	comp.LastError = nil
	comp.NextRetryAt = nil
	if err := w.comprobantes.Update(ctx, comp); err != nil {
		log.Error().Err(err).Str("factura", factura.Numero).Msg("comprobante_worker: update failed")
	}
	log.Info().Str("pdf", pdfPath).Str("factura", factura.Numero).Msg("comprobante_worker: PDF generated")

	email := payload.ClienteEmail
	if email == "" && comp.EnviadoA != nil {
		email = *comp.EnviadoA
	}
	if email == "" || w.dispatcher == nil {
		return
	}
	job := EmailJobPayload{
		ToEmail: email,
		Subject: fmt.Sprintf("%s - Factura %s", w.negocio, factura.Numero),
		Body:    fmt.Sprintf("Adjuntamos su factura %s.\nTotal: $%s", factura.Numero, factura.Total.StringFixed(2)),
		PDFPath: pdfPath,
	}
	if err := w.dispatcher.EnqueueEmail(ctx, job); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("comprobante_worker: failed to enqueue email")
		return
	}
	comp.EnviadoA = &email
	_ = w.comprobantes.Update(ctx, comp)
}

// nombres resolves the printable name of every line item; missing items
// print as their kind.
func (w *ComprobanteWorker) nombres(ctx context.Context, f *model.Factura) map[uuid.UUID]string {
	out := make(map[uuid.UUID]string, len(f.Lineas))
	if w.catalogo == nil {
		return out
	}
	for _, l := range f.Lineas {
		switch l.Tipo {
		case model.LineaServicio:
			if s, err := w.catalogo.FindServicio(ctx, l.ItemID); err == nil {
				out[l.ItemID] = s.Nombre
			}
		case model.LineaProducto:
			if p, err := w.catalogo.FindProducto(ctx, l.ItemID); err == nil {
				out[l.ItemID] = p.Nombre
			}
		}
	}
	return out
}

// withRetry calls fn up to maxAttempts times with exponential backoff.
// Backoff schedule: attempt 1 = immediate, 2 = 1s, 3 = 2s.
func withRetry(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			wait := time.Duration(1<<uint(i-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// computeRetryBackoff: 1m, 2m, 4m ... capped at 1h.
func computeRetryBackoff(intentos int) time.Duration {
	if intentos < 1 {
		intentos = 1
	}
	if intentos > 7 {
		return time.Hour
	}
	d := time.Duration(1<<uint(intentos-1)) * time.Minute
	if d > time.Hour {
		return time.Hour
	}
	return d
}
