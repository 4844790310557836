package worker

// email_worker.go
// Processes email jobs from QueueEmail. Sends the receipt PDF through the
// circuit-breaker guarded mailer; undeliverable jobs land in the DLQ.

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path"`
}

// Sender delivers one message with an optional attachment.
type Sender interface {
	SendComprobante(to, subject, body, pdfPath string) error
}

type EmailWorker struct {
	mailer Sender
	rdb    *redis.Client
}

// NewEmailWorker creates an EmailWorker. rdb may be nil, failed jobs are then
// only logged.
func NewEmailWorker(mailer Sender, rdb *redis.Client) *EmailWorker {
	return &EmailWorker{mailer: mailer, rdb: rdb}
}

// Process sends an email with the PDF receipt as attachment.
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return
	}

	err := withRetry(ctx, 3, func(int) error {
		return w.mailer.SendComprobante(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
	})
	if err != nil {
		log.Error().Err(err).Str("to", payload.ToEmail).Msg("email_worker: failed to send email")
		if w.rdb != nil {
			SendToDLQ(ctx, w.rdb, QueueEmail, JobEmail, raw, err.Error(), 3)
		}
		return
	}
	log.Info().Str("to", payload.ToEmail).Msg("email_worker: comprobante sent")
}
