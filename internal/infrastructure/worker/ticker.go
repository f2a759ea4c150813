package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// tickLoop is the lifecycle shared by the polling workers: one goroutine that
// calls tick every interval until the context is cancelled or Stop is called.
type tickLoop struct {
	name       string
	interval   time.Duration
	runOnStart bool
	tick       func(ctx context.Context)
	logger     *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func (l *tickLoop) start(ctx context.Context) error {
	if l.interval <= 0 {
		return fmt.Errorf("%s: poll interval must be positive, got %s", l.name, l.interval)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isRunning {
		return fmt.Errorf("%s already running", l.name)
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.isRunning = true

	l.logger.Info("Worker loop started",
		zap.String("worker_name", l.name),
		zap.Duration("poll_interval", l.interval),
		zap.Bool("run_on_start", l.runOnStart))

	go l.pollLoop(runCtx, l.done)
	return nil
}

// stop cancels the loop and waits for an in-flight tick to return
func (l *tickLoop) stop() {
	l.mu.Lock()
	if !l.isRunning {
		l.mu.Unlock()
		return
	}
	l.isRunning = false
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	cancel()
	<-done
}

func (l *tickLoop) running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isRunning
}

func (l *tickLoop) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if l.runOnStart {
		l.tick(ctx)
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("Poll loop context cancelled", zap.String("worker_name", l.name))
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}
