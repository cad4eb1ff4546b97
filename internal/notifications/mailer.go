package notifications

import (
	"context"
	"fmt"

	"github.com/spotixhq/spotix-backend/pkg/logger"
)

// Email is one outbound message. Delivery is fire-and-forget; the settlement
// paths never wait on it.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers notification emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// LogMailer writes emails to the structured log instead of sending them.
// This is the only transport wired in this repo.
type LogMailer struct {
	logg *logger.Logger
}

// NewLogMailer builds the log-only transport.
func NewLogMailer(logg *logger.Logger) (*LogMailer, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &LogMailer{logg: logg}, nil
}

func (m *LogMailer) Send(ctx context.Context, email Email) error {
	logCtx := m.logg.WithFields(ctx, map[string]any{
		"to":      email.To,
		"subject": email.Subject,
	})
	m.logg.Info(logCtx, "email dispatched (log transport)")
	return nil
}
