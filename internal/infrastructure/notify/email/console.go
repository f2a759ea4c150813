package email

import (
	"context"

	"go.uber.org/zap"
)

// ConsoleMailer writes messages to the log instead of sending them
type ConsoleMailer struct {
	from   string
	logger *zap.Logger
}

// NewConsoleMailer creates a mailer for local development
func NewConsoleMailer(from string, logger *zap.Logger) *ConsoleMailer {
	return &ConsoleMailer{from: from, logger: logger}
}

func (m *ConsoleMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.Info("Email (console)",
		zap.String("from", m.from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body))
	return nil
}
