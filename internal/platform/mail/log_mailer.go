// Package mail contains the delivery-channel implementations for reminder
// notifications. The real channel (SMTP, push) is an external collaborator;
// LogMailer stands in for it by writing the message to the structured log.
package mail

import (
	"context"
	"log/slog"

	"github.com/quicktask/quicktask-api/internal/reminder"
)

// LogMailer implements reminder.Deliverer by logging the email content.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(log *slog.Logger) *LogMailer {
	if log == nil {
		log = slog.Default()
	}
	return &LogMailer{
		logger: log.With("component", "log_mailer"),
	}
}

var _ reminder.Deliverer = (*LogMailer)(nil)

// Deliver implements reminder.Deliverer.
func (m *LogMailer) Deliver(ctx context.Context, payload reminder.Payload) error {
	m.logger.Info("reminder email",
		"to", payload.Recipient,
		"subject", payload.Subject,
		"body", payload.Body)
	return nil
}
