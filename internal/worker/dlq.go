package worker

// dlq.go
// Jobs that cannot be completed are parked in dlq:<queue> with the reason and
// attempt count. An administrator can inspect them and push them back onto
// their source queue once the cause is fixed.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry is a parked job plus why it was parked.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

// SendToDLQ parks a job. Errors are logged only: the caller has already given
// up on the job.
func SendToDLQ(ctx context.Context, rdb *redis.Client, queue, jobType string, payload json.RawMessage, reason string, attempts int) {
	data, err := json.Marshal(DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC(),
		Attempts:      attempts,
	})
	if err == nil {
		err = rdb.LPush(ctx, DLQPrefix+queue, data).Err()
	}
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Str("job_type", jobType).Msg("dlq: job lost")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job parked")
}

func DLQLength(ctx context.Context, rdb *redis.Client, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// PeekDLQ returns up to n parked jobs, oldest first, without removing them.
// Entries that do not decode are skipped.
func PeekDLQ(ctx context.Context, rdb *redis.Client, queue string, n int64) ([]DLQEntry, error) {
	raws, err := rdb.LRange(ctx, DLQPrefix+queue, -n, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		var e DLQEntry
		if json.Unmarshal([]byte(raws[i]), &e) == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// RequeueDLQ moves up to n parked jobs, oldest first, back onto queue and
// returns how many were moved.
func RequeueDLQ(ctx context.Context, rdb *redis.Client, queue string, n int) (int, error) {
	movidos := 0
	for movidos < n {
		raw, err := rdb.RPop(ctx, DLQPrefix+queue).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return movidos, err
		}
		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.JobType == "unknown" {
			log.Warn().Str("queue", queue).Msg("dlq: dropping undecodable entry")
			continue
		}
		job, err := json.Marshal(Job{Type: e.JobType, Payload: e.Payload})
		if err != nil {
			return movidos, err
		}
		if err := rdb.LPush(ctx, queue, job).Err(); err != nil {
			// put it back so nothing is lost
			_ = rdb.RPush(ctx, DLQPrefix+queue, raw).Err()
			return movidos, err
		}
		movidos++
	}
	if movidos > 0 {
		log.Info().Str("queue", queue).Int("movidos", movidos).Msg("dlq: jobs requeued")
	}
	return movidos, nil
}
