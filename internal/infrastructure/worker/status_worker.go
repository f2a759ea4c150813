package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/service"
)

// StatusUpdater recomputes stored task statuses
type StatusUpdater interface {
	UpdateAll(ctx context.Context) (service.StatusSummary, error)
}

// StatusWorkerConfig holds configuration for the status worker
type StatusWorkerConfig struct {
	PollInterval time.Duration
	RunOnStart   bool
}

// DefaultStatusWorkerConfig returns default configuration
func DefaultStatusWorkerConfig() StatusWorkerConfig {
	return StatusWorkerConfig{
		PollInterval: time.Hour,
		RunOnStart:   true,
	}
}

// StatusWorkerStats is a snapshot of the status worker's counters
type StatusWorkerStats struct {
	Runs        int
	Failures    int
	LastRun     time.Time
	LastSummary service.StatusSummary
	LastError   error
}

// StatusWorker periodically moves tasks between open, due and closed
type StatusWorker struct {
	loop    *tickLoop
	updater StatusUpdater
	logger  *zap.Logger

	mu    sync.RWMutex
	stats StatusWorkerStats
}

// NewStatusWorker creates a new status worker
func NewStatusWorker(config StatusWorkerConfig, updater StatusUpdater, logger *zap.Logger) *StatusWorker {
	w := &StatusWorker{
		updater: updater,
		logger:  logger,
	}
	w.loop = &tickLoop{
		name:       w.Name(),
		interval:   config.PollInterval,
		runOnStart: config.RunOnStart,
		tick:       w.update,
		logger:     logger,
	}
	return w
}

// Start begins the polling loop
func (w *StatusWorker) Start(ctx context.Context) error {
	return w.loop.start(ctx)
}

// Stop terminates the polling loop and waits for a running update to finish
func (w *StatusWorker) Stop() error {
	w.loop.stop()

	stats := w.Stats()
	w.logger.Info("StatusWorker stopped",
		zap.Int("runs", stats.Runs),
		zap.Int("failures", stats.Failures))
	return nil
}

// Name returns the worker name for identification
func (w *StatusWorker) Name() string {
	return "StatusWorker"
}

// IsRunning reports whether the polling loop is active
func (w *StatusWorker) IsRunning() bool {
	return w.loop.running()
}

// Stats returns a copy of the worker counters
func (w *StatusWorker) Stats() StatusWorkerStats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

func (w *StatusWorker) update(ctx context.Context) {
	summary, err := w.updater.UpdateAll(ctx)

	w.mu.Lock()
	w.stats.Runs++
	w.stats.LastRun = time.Now()
	w.stats.LastError = err
	if err != nil {
		w.stats.Failures++
	} else {
		w.stats.LastSummary = summary
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Failed to update task statuses", zap.Error(err))
		return
	}
	if summary.TotalUpdated > 0 {
		w.logger.Info("Task statuses updated",
			zap.Int("closed", summary.Closed),
			zap.Int("due", summary.Due),
			zap.Int("open", summary.Open),
			zap.Int("total_updated", summary.TotalUpdated))
	}
}
