package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/application/service"
)

// ReminderSender sends every reminder that is due today
type ReminderSender interface {
	SendDue(ctx context.Context) (service.ReminderSummary, error)
}

// ReminderWorkerConfig holds configuration for the reminder worker.
// PollInterval only controls how quickly a new business day is noticed.
type ReminderWorkerConfig struct {
	PollInterval time.Duration
}

// DefaultReminderWorkerConfig returns default configuration
func DefaultReminderWorkerConfig() ReminderWorkerConfig {
	return ReminderWorkerConfig{
		PollInterval: 15 * time.Minute,
	}
}

// ReminderWorker sends reminders at most once per business day. A failed run
// is retried on the next tick of the same day.
type ReminderWorker struct {
	loop   *tickLoop
	sender ReminderSender
	clock  port.Clock
	logger *zap.Logger

	mu         sync.RWMutex
	lastRunDay time.Time
	sentCount  int
	lastError  error
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(config ReminderWorkerConfig, sender ReminderSender, clock port.Clock, logger *zap.Logger) *ReminderWorker {
	w := &ReminderWorker{
		sender: sender,
		clock:  clock,
		logger: logger,
	}
	w.loop = &tickLoop{
		name:       w.Name(),
		interval:   config.PollInterval,
		runOnStart: true,
		tick:       func(ctx context.Context) { w.runIfDue(ctx) },
		logger:     logger,
	}
	return w
}

// Start begins the polling loop
func (w *ReminderWorker) Start(ctx context.Context) error {
	return w.loop.start(ctx)
}

// Stop terminates the polling loop
func (w *ReminderWorker) Stop() error {
	w.loop.stop()

	w.mu.RLock()
	sent := w.sentCount
	w.mu.RUnlock()
	w.logger.Info("ReminderWorker stopped", zap.Int("sent_count", sent))
	return nil
}

// Name returns the worker name for identification
func (w *ReminderWorker) Name() string {
	return "ReminderWorker"
}

// LastRunDay returns the business day of the last successful run, zero if none
func (w *ReminderWorker) LastRunDay() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastRunDay
}

// LastError returns the error of the most recent run
func (w *ReminderWorker) LastError() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastError
}

// runIfDue sends reminders unless they were already sent for today.
// It reports whether SendDue was called.
func (w *ReminderWorker) runIfDue(ctx context.Context) bool {
	today := w.clock.Today()

	w.mu.RLock()
	last := w.lastRunDay
	w.mu.RUnlock()
	if !last.IsZero() && !today.After(last) {
		return false
	}

	summary, err := w.sender.SendDue(ctx)

	w.mu.Lock()
	w.lastError = err
	if err == nil {
		w.lastRunDay = today
		w.sentCount += summary.Total()
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Failed to send reminders",
			zap.Time("business_day", today),
			zap.Error(err))
		return true
	}

	w.logger.Info("Reminders sent",
		zap.Time("business_day", today),
		zap.Int("due_soon", summary.DueSoon),
		zap.Int("awaiting_evaluation", summary.AwaitingEvaluation),
		zap.Int("scheduled", summary.Scheduled))
	return true
}
