package worker

// Receipts left in estado='error' carry a next_retry_at computed with
// ComputeRetryBackoff. Reintentos polls for the due ones and puts them back on
// the comprobante queue. Once a receipt has used MaxComprobanteRetries
// attempts it is taken off the schedule and parked in the DLQ.

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alejo0789/agenda-ia-sub000/internal/model"
	"github.com/alejo0789/agenda-ia-sub000/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Reintentos struct {
	Comprobantes repository.ComprobanteRepository
	Dispatcher   *Dispatcher
	RDB          *redis.Client

	// Intervalo between polls, 30s when zero.
	Intervalo time.Duration
	// Lote caps receipts handled per poll, 10 when zero.
	Lote int
}

// Start polls in the background until ctx is cancelled.
func (r Reintentos) Start(ctx context.Context) {
	if r.Intervalo <= 0 {
		r.Intervalo = 30 * time.Second
	}
	go func() {
		t := time.NewTicker(r.Intervalo)
		defer t.Stop()
		log.Info().Dur("intervalo", r.Intervalo).Msg("reintentos: polling receipts")
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				r.pasada(ctx)
			}
		}
	}()
}

// pasada handles one batch of due receipts and returns how many went back on
// the queue.
func (r Reintentos) pasada(ctx context.Context) int {
	lote := r.Lote
	if lote <= 0 {
		lote = 10
	}
	vencidos, err := r.Comprobantes.ListPendingRetries(ctx, time.Now(), lote)
	if err != nil {
		log.Error().Err(err).Msg("reintentos: listing due receipts")
		return 0
	}

	encolados := 0
	for i := range vencidos {
		comp := &vencidos[i]
		// off the schedule before anything else, so a slow queue cannot
		// make the next poll pick it up twice
		comp.NextRetryAt = nil
		if err := r.Comprobantes.Update(ctx, comp); err != nil {
			log.Error().Err(err).Str("factura_id", comp.FacturaID.String()).Msg("reintentos: update failed")
			continue
		}

		job := jobDe(comp)
		if comp.Intentos >= MaxComprobanteRetries {
			r.aparcar(ctx, comp, job)
			continue
		}
		if r.Dispatcher == nil {
			continue
		}
		if err := r.Dispatcher.EnqueueComprobante(ctx, job); err != nil {
			log.Warn().Err(err).Str("factura_id", job.FacturaID).Msg("reintentos: enqueue failed")
			continue
		}
		encolados++
	}
	if encolados > 0 {
		log.Info().Int("encolados", encolados).Msg("reintentos: receipts requeued")
	}
	return encolados
}

func (r Reintentos) aparcar(ctx context.Context, comp *model.Comprobante, job ComprobanteJobPayload) {
	motivo := fmt.Sprintf("%d intentos agotados", comp.Intentos)
	if comp.LastError != nil {
		motivo += ": " + *comp.LastError
	}
	if r.RDB == nil {
		log.Warn().Str("factura_id", job.FacturaID).Str("motivo", motivo).Msg("reintentos: no dlq, receipt abandoned")
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		return
	}
	SendToDLQ(ctx, r.RDB, QueueComprobante, JobComprobante, data, motivo, comp.Intentos)
}

func jobDe(comp *model.Comprobante) ComprobanteJobPayload {
	job := ComprobanteJobPayload{FacturaID: comp.FacturaID.String()}
	if comp.EnviadoA != nil {
		job.ClienteEmail = *comp.EnviadoA
	}
	return job
}
