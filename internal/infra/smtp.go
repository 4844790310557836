package infra

import (
	"fmt"
	"net/smtp"

	"github.com/alejo0789/agenda-ia-sub000/internal/config"

	"github.com/jordan-wright/email"
)

// Mailer wraps SMTP configuration for sending emails with PDF attachments.
// Sends go through a circuit breaker so a dead SMTP relay fails fast.
type Mailer struct {
	host     string
	user     string
	password string
	addr     string
	cb       *CircuitBreaker
}

func NewMailer(cfg *config.Config) *Mailer {
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		cb:       NewCircuitBreaker(DefaultCBConfig()),
	}
}

// Estado reports the breaker state, for the health endpoint.
func (m *Mailer) Estado() CBState { return m.cb.State() }

// SendComprobante sends a PDF receipt to the customer email.
func (m *Mailer) SendComprobante(to, subject, body, pdfPath string) error {
	if m.host == "" {
		return fmt.Errorf("mailer: SMTP_HOST not configured")
	}
	e := email.NewEmail()
	e.From = m.user
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}

	auth := smtp.PlainAuth("", m.user, m.password, m.host)
	return m.cb.Execute(func() error {
		return e.Send(m.addr, auth)
	})
}
