package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

// SendGridMailer sends plain-text mail through the SendGrid v3 API
type SendGridMailer struct {
	key    string
	host   string
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendGridMailer creates a SendGrid mailer sending as fromName <fromAddress>
func NewSendGridMailer(apiKey, fromName, fromAddress string, logger *zap.Logger) (*SendGridMailer, error) {
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if fromAddress == "" {
		return nil, errors.New("from address is required")
	}
	return &SendGridMailer{
		key:    apiKey,
		host:   sendGridHost,
		from:   sgmail.NewEmail(fromName, fromAddress),
		logger: logger,
	}, nil
}

// Send delivers one message to a single recipient
func (m *SendGridMailer) Send(ctx context.Context, to, subject, body string) error {
	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail("", to))

	msg := sgmail.NewV3Mail()
	msg.SetFrom(m.from)
	msg.AddPersonalizations(p)
	msg.AddContent(sgmail.NewContent("text/plain", body))

	req := sendgrid.GetRequest(m.key, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(msg)

	res, err := sendgrid.API(req)
	if err != nil {
		m.logger.Error("SendGrid request failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.logger.Error("SendGrid rejected message",
			zap.String("to", to),
			zap.Int("status", res.StatusCode),
			zap.String("body", res.Body))
		return fmt.Errorf("sendgrid returned status %d", res.StatusCode)
	}

	m.logger.Debug("Email sent", zap.String("to", to), zap.Int("status", res.StatusCode))
	return nil
}
