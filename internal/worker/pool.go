package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueComprobante = "jobs:comprobante"
	QueueEmail       = "jobs:email"
)

const (
	JobComprobante = "comprobante"
	JobEmail       = "email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueComprobante pushes a receipt job for a paid invoice.
func (d *Dispatcher) EnqueueComprobante(ctx context.Context, payload ComprobanteJobPayload) error {
	return d.enqueue(ctx, QueueComprobante, JobComprobante, payload)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Colas lists the job queues served by the pool.
var Colas = []string{QueueComprobante, QueueEmail}

// Atascados reports, per queue, how many jobs are parked in its DLQ.
func (d *Dispatcher) Atascados(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, len(Colas))
	for _, q := range Colas {
		n, err := DLQLength(ctx, d.rdb, q)
		if err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, nil
}

// Muestra returns up to n parked jobs of queue, oldest first.
func (d *Dispatcher) Muestra(ctx context.Context, queue string, n int64) ([]DLQEntry, error) {
	return PeekDLQ(ctx, d.rdb, queue, n)
}

// Reencolar moves up to n parked jobs of queue back for processing.
func (d *Dispatcher) Reencolar(ctx context.Context, queue string, n int) (int, error) {
	return RequeueDLQ(ctx, d.rdb, queue, n)
}

// WorkerHandlers routes each job type to its processor. A nil handler drops
// jobs of that type to the DLQ.
type WorkerHandlers struct {
	Comprobante *ComprobanteWorker
	Email       *EmailWorker
}

// StartWorkerPool launches numWorkers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, handlers, i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, Colas...).Result()
			if err != nil || len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *WorkerHandlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, rdb, queue, "unknown", json.RawMessage(raw), "invalid envelope: "+err.Error(), 0)
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("processing job")

	switch {
	case job.Type == JobComprobante && handlers.Comprobante != nil:
		handlers.Comprobante.Process(ctx, job.Payload)
	case job.Type == JobEmail && handlers.Email != nil:
		handlers.Email.Process(ctx, job.Payload)
	default:
		SendToDLQ(ctx, rdb, queue, job.Type, job.Payload, "no handler for job type", 0)
	}
}
