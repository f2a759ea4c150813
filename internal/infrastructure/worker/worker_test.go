package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/service"
)

type fakeWorker struct {
	name     string
	startErr error
	started  atomic.Bool
	stopped  atomic.Bool
	stopLog  *[]string
}

func (f *fakeWorker) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started.Store(true)
	return nil
}

func (f *fakeWorker) Stop() error {
	f.stopped.Store(true)
	if f.stopLog != nil {
		*f.stopLog = append(*f.stopLog, f.name)
	}
	return nil
}

func (f *fakeWorker) Name() string { return f.name }

type fakeClock struct {
	mu    sync.Mutex
	today time.Time
}

func (c *fakeClock) Now() time.Time { return c.Today() }

func (c *fakeClock) Today() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

func (c *fakeClock) Location() *time.Location { return time.UTC }

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = t
}

type fakeSender struct {
	calls atomic.Int32
	err   error
}

func (s *fakeSender) SendDue(ctx context.Context) (service.ReminderSummary, error) {
	s.calls.Add(1)
	if s.err != nil {
		return service.ReminderSummary{}, s.err
	}
	return service.ReminderSummary{DueSoon: 2, Scheduled: 1}, nil
}

type updaterFunc func(ctx context.Context) (service.StatusSummary, error)

func (f updaterFunc) UpdateAll(ctx context.Context) (service.StatusSummary, error) { return f(ctx) }

func TestWorkerManager_Lifecycle(t *testing.T) {
	m := NewWorkerManager(zap.NewNop())
	ok := &fakeWorker{name: "ok"}
	broken := &fakeWorker{name: "broken", startErr: errors.New("boom")}
	m.Register(ok)
	m.Register(broken)
	assert.Equal(t, 2, m.GetWorkerCount())

	err := m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.True(t, ok.started.Load())
	assert.True(t, m.IsRunning())

	assert.Error(t, m.StartAll(context.Background()), "second start is rejected")

	require.NoError(t, m.StopAll())
	assert.True(t, ok.stopped.Load())
	assert.False(t, m.IsRunning())
	assert.NoError(t, m.StopAll(), "stopping twice is a no-op")
}

func TestWorkerManager_StopsInReverseOrder(t *testing.T) {
	var stopped []string
	m := NewWorkerManager(zap.NewNop())
	m.Register(&fakeWorker{name: "status", stopLog: &stopped})
	m.Register(&fakeWorker{name: "reminder", stopLog: &stopped})
	assert.Equal(t, []string{"status", "reminder"}, m.Names())

	require.NoError(t, m.StartAll(context.Background()))
	require.NoError(t, m.StopAll())
	assert.Equal(t, []string{"reminder", "status"}, stopped)
}

func TestStatusWorker_RunsOnStart(t *testing.T) {
	ran := make(chan struct{}, 1)
	updater := updaterFunc(func(ctx context.Context) (service.StatusSummary, error) {
		select {
		case ran <- struct{}{}:
		default:
		}
		return service.StatusSummary{Due: 1, TotalUpdated: 1}, nil
	})

	w := NewStatusWorker(StatusWorkerConfig{PollInterval: time.Hour, RunOnStart: true}, updater, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("status update did not run on start")
	}

	require.NoError(t, w.Stop())
	assert.False(t, w.IsRunning())

	stats := w.Stats()
	assert.Equal(t, 1, stats.Runs)
	assert.Equal(t, 1, stats.LastSummary.Due)
	assert.NoError(t, stats.LastError)
}

func TestStatusWorker_TicksAndRecordsFailures(t *testing.T) {
	var calls atomic.Int32
	updater := updaterFunc(func(ctx context.Context) (service.StatusSummary, error) {
		calls.Add(1)
		return service.StatusSummary{}, errors.New("database locked")
	})

	w := NewStatusWorker(StatusWorkerConfig{PollInterval: 10 * time.Millisecond}, updater, zap.NewNop())
	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, w.Stop())

	stats := w.Stats()
	assert.Equal(t, stats.Runs, stats.Failures)
	assert.EqualError(t, stats.LastError, "database locked")
}

func TestStatusWorker_RejectsZeroInterval(t *testing.T) {
	w := NewStatusWorker(StatusWorkerConfig{}, updaterFunc(nil), zap.NewNop())
	assert.Error(t, w.Start(context.Background()))
	assert.False(t, w.IsRunning())
}

func TestReminderWorker_OncePerBusinessDay(t *testing.T) {
	clock := &fakeClock{today: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}
	sender := &fakeSender{}
	w := NewReminderWorker(DefaultReminderWorkerConfig(), sender, clock, zap.NewNop())
	ctx := context.Background()

	assert.True(t, w.runIfDue(ctx))
	assert.False(t, w.runIfDue(ctx), "same day is skipped")
	assert.Equal(t, int32(1), sender.calls.Load())
	assert.True(t, w.LastRunDay().Equal(clock.Today()))

	clock.set(time.Date(2024, 6, 11, 0, 0, 0, 0, time.UTC))
	assert.True(t, w.runIfDue(ctx))
	assert.Equal(t, int32(2), sender.calls.Load())
}

func TestReminderWorker_RetriesAfterFailure(t *testing.T) {
	clock := &fakeClock{today: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}
	sender := &fakeSender{err: errors.New("smtp unavailable")}
	w := NewReminderWorker(DefaultReminderWorkerConfig(), sender, clock, zap.NewNop())
	ctx := context.Background()

	assert.True(t, w.runIfDue(ctx))
	assert.Error(t, w.LastError())
	assert.True(t, w.LastRunDay().IsZero())

	sender.err = nil
	assert.True(t, w.runIfDue(ctx), "a failed day is retried")
	assert.NoError(t, w.LastError())
	assert.False(t, w.runIfDue(ctx))
}

func TestReminderWorker_StartStop(t *testing.T) {
	clock := &fakeClock{today: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)}
	sender := &fakeSender{}
	w := NewReminderWorker(ReminderWorkerConfig{PollInterval: 5 * time.Millisecond}, sender, clock, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Eventually(t, func() bool { return sender.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, w.Stop())
	assert.Equal(t, int32(1), sender.calls.Load())
}
