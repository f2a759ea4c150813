package container

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/domain/event"
	"github.com/opticorai/taskeval/internal/infrastructure/notify/email"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "taskeval.db")
	cfg.Storage.UploadDir = filepath.Join(dir, "media")
	cfg.Email.Provider = email.ProviderNone
	cfg.Worker.Enabled = false
	return cfg
}

func startContainer(t *testing.T, cfg *Config) *Container {
	t.Helper()
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.Start(context.Background()))
	t.Cleanup(func() {
		if !c.closed.Load() {
			_ = c.Close()
		}
	})
	return c
}

func TestNewContainer_Validation(t *testing.T) {
	_, err := NewContainer(nil, zap.NewNop())
	assert.Error(t, err)

	_, err = NewContainer(DefaultConfig(), nil)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Business.Timezone = ""
	_, err = NewContainer(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "business.timezone")
}

func TestContainer_StartWiresEverything(t *testing.T) {
	c := startContainer(t, testConfig(t))

	assert.True(t, c.Ready())
	require.NotNil(t, c.Repositories())
	require.NotNil(t, c.Services())
	assert.NotNil(t, c.Services().Evaluation)
	assert.NotNil(t, c.Services().Setup)
	assert.NotNil(t, c.Clock())
	assert.NotNil(t, c.Metrics())
	assert.Nil(t, c.Workers(), "workers are disabled")
	assert.NotEmpty(t, c.Dispatcher().ListHandlers(event.TypeTaskEvaluated))

	health := c.Health(context.Background())
	assert.True(t, health.Overall)
	assert.True(t, health.Components["database"].Healthy)
	assert.Equal(t, "disabled", health.Components["email"].Message)
	assert.Equal(t, "disabled", health.Components["lark"].Message)
}

func TestContainer_SeedThroughServices(t *testing.T) {
	c := startContainer(t, testConfig(t))

	summary, err := c.Services().Setup.Seed(context.Background())
	require.NoError(t, err)
	require.NotNil(t, summary)

	_, err = c.Services().Settings.Get(context.Background())
	require.NoError(t, err)
}

func TestContainer_HTTPServer(t *testing.T) {
	c := startContainer(t, testConfig(t))

	server, err := c.NewHTTPServer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskeval_")
}

func TestContainer_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	c := startContainer(t, cfg)

	assert.Nil(t, c.Metrics())

	server, err := c.NewHTTPServer()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestContainer_WorkersLifecycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.Worker.Enabled = true
	c := startContainer(t, cfg)

	workers := c.Workers()
	require.NotNil(t, workers)
	assert.True(t, workers.IsRunning())
	assert.Equal(t, 2, workers.GetWorkerCount())

	health := c.Health(context.Background())
	assert.True(t, health.Components["workers"].Healthy)

	require.NoError(t, c.Close())
	assert.False(t, workers.IsRunning())
	assert.Nil(t, c.Workers())
}

func TestContainer_StartAndCloseTwice(t *testing.T) {
	c := startContainer(t, testConfig(t))

	assert.Error(t, c.Start(context.Background()))
	require.NoError(t, c.Close())
	assert.Error(t, c.Close())
	assert.Error(t, c.Start(context.Background()))
}

func TestContainer_HealthJSON(t *testing.T) {
	c := startContainer(t, testConfig(t))

	raw, err := json.Marshal(c.Health(context.Background()))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"overall":true`)
}

func TestNewHTTPServer_BeforeStart(t *testing.T) {
	c, err := NewContainer(testConfig(t), zap.NewNop())
	require.NoError(t, err)

	_, err = c.NewHTTPServer()
	assert.Error(t, err)
}

func TestConvertToZapFields(t *testing.T) {
	fields := convertToZapFields("task_id", int64(7), 42, "ignored", "error", assert.AnError, "dangling")
	require.Len(t, fields, 2)
	assert.Equal(t, "task_id", fields[0].Key)
	assert.Equal(t, "error", fields[1].Key)
}

func TestContainer_FailedStartReleasesDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Business.Timezone = "Mars/Olympus_Mons"
	c, err := NewContainer(cfg, zap.NewNop())
	require.NoError(t, err)

	err = c.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "infrastructure")
	assert.False(t, c.Ready())
	assert.Nil(t, c.database)

	health := c.Health(context.Background())
	assert.False(t, health.Overall)
}
