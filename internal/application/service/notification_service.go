package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

// Notification channels reported to metrics
const (
	ChannelInApp = "in_app"
	ChannelEmail = "email"
	ChannelLark  = "lark"
)

const subjectPreviewLength = 60

// NotificationService stores in-app notifications and fans them out to email and chat
type NotificationService interface {
	// Notify stores the notification and then delivers it on every enabled channel.
	// Channel failures are logged; only the stored notification can fail the call.
	Notify(ctx context.Context, recipientID int64, senderID *int64, message, link string) (*entity.Notification, error)
	ListForUser(ctx context.Context, userID int64, limit int) ([]*entity.Notification, error)
	// MarkRead marks one of the user's notifications read
	MarkRead(ctx context.Context, userID, id int64) error
}

// NotificationConfig holds delivery settings
type NotificationConfig struct {
	// SiteBaseURL prefixes relative links in emails
	SiteBaseURL string
}

type notificationServiceImpl struct {
	repo      port.NotificationRepository
	users     port.UserRepository
	mailer    port.Mailer
	messenger port.InstantMessenger
	metrics   port.EvaluationMetrics
	clock     port.Clock
	config    NotificationConfig
	logger    Logger
}

// NewNotificationService creates a new NotificationService. mailer, messenger
// and metrics may be nil to disable that channel.
func NewNotificationService(
	repo port.NotificationRepository,
	users port.UserRepository,
	mailer port.Mailer,
	messenger port.InstantMessenger,
	metrics port.EvaluationMetrics,
	clock port.Clock,
	config NotificationConfig,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		repo:      repo,
		users:     users,
		mailer:    mailer,
		messenger: messenger,
		metrics:   metrics,
		clock:     clock,
		config:    config,
		logger:    logger,
	}
}

func (s *notificationServiceImpl) Notify(ctx context.Context, recipientID int64, senderID *int64, message, link string) (*entity.Notification, error) {
	recipient, err := s.users.GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient: %w", err)
	}
	if recipient == nil {
		return nil, entity.ErrUserNotFound
	}

	n := &entity.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Message:     message,
		Link:        link,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.observe(ChannelInApp, err)
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}
	s.observe(ChannelInApp, nil)

	s.sendEmail(ctx, recipient, n)
	s.sendLark(ctx, recipient, n)

	return n, nil
}

func (s *notificationServiceImpl) ListForUser(ctx context.Context, userID int64, limit int) ([]*entity.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListByRecipient(ctx, userID, limit)
}

func (s *notificationServiceImpl) MarkRead(ctx context.Context, userID, id int64) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *notificationServiceImpl) sendEmail(ctx context.Context, recipient *entity.User, n *entity.Notification) {
	if s.mailer == nil || recipient.Email == "" {
		return
	}

	err := s.mailer.Send(ctx, recipient.Email, EmailSubject(n.Message), s.emailBody(n))
	s.observe(ChannelEmail, err)
	if err != nil {
		s.logger.Error("Failed to send notification email",
			"notification_id", n.ID,
			"recipient_id", recipient.ID,
			"error", err,
		)
		return
	}
	s.logger.Info("Notification email sent", "notification_id", n.ID, "recipient_id", recipient.ID)
}

func (s *notificationServiceImpl) sendLark(ctx context.Context, recipient *entity.User, n *entity.Notification) {
	if s.messenger == nil || recipient.LarkOpenID == "" {
		return
	}

	text := strings.TrimSpace(n.Message)
	if n.Link != "" {
		text += "\n" + s.absoluteLink(n.Link)
	}

	err := s.messenger.SendText(ctx, recipient.LarkOpenID, text)
	s.observe(ChannelLark, err)
	if err != nil {
		s.logger.Error("Failed to send Lark notification",
			"notification_id", n.ID,
			"recipient_id", recipient.ID,
			"error", err,
		)
	}
}

func (s *notificationServiceImpl) emailBody(n *entity.Notification) string {
	lines := []string{
		"You have a new notification:",
		"",
		strings.TrimSpace(n.Message),
	}
	if n.Link != "" {
		lines = append(lines, "", "Link: "+s.absoluteLink(n.Link))
	}
	return strings.Join(lines, "\n")
}

func (s *notificationServiceImpl) absoluteLink(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return strings.TrimRight(s.config.SiteBaseURL, "/") + link
}

func (s *notificationServiceImpl) observe(channel string, err error) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(channel, err)
	}
}

// EmailSubject builds "New notification: <preview>" with the preview cut to 60 characters
func EmailSubject(message string) string {
	preview := strings.ReplaceAll(strings.TrimSpace(message), "\n", " ")
	if preview == "" {
		return "New notification"
	}
	if r := []rune(preview); len(r) > subjectPreviewLength {
		preview = string(r[:subjectPreviewLength])
	}
	return "New notification: " + preview
}
