// Package email delivers notification mail through SMTP, SendGrid or the application log.
package email

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
)

// Supported providers
const (
	ProviderNone     = "none"
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
	ProviderConsole  = "console"
)

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
}

// Config selects and configures the mail provider
type Config struct {
	Provider       string
	FromName       string
	FromAddress    string
	SMTP           SMTPConfig
	SendGridAPIKey string
}

// New builds the mailer for cfg.Provider. It returns nil for ProviderNone so
// callers skip the email channel entirely.
func New(cfg Config, logger *zap.Logger) (port.Mailer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderSMTP:
		return NewSMTPMailer(cfg.SMTP, cfg.FromName, cfg.FromAddress, logger)
	case ProviderSendGrid:
		return NewSendGridMailer(cfg.SendGridAPIKey, cfg.FromName, cfg.FromAddress, logger)
	case ProviderConsole:
		return NewConsoleMailer(cfg.FromAddress, logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}
