package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "Asia/Kolkata", cfg.Business.Timezone)
	assert.Equal(t, 1.05, cfg.Evaluation.Priorities.Medium)
	assert.Equal(t, 90.0, cfg.Evaluation.Qualities.Exceed)
	assert.Equal(t, 5, cfg.Reminder.DaysBeforeDue)
	assert.Equal(t, time.Hour, cfg.Worker.StatusPollInterval)
	assert.Equal(t, "console", cfg.Email.Provider)
	assert.Contains(t, cfg.Storage.AllowedExtensions, ".pdf")
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
business:
  timezone: Europe/Berlin
  site_base_url: https://pm.example.com
email:
  provider: smtp
  smtp:
    host: smtp.example.com
worker:
  status_poll_interval: 30m
`)
	t.Setenv("PRIORITY_MULTIPLIER_HIGH", "1.5")
	t.Setenv("QUALITY_POOR_PERCENTAGE", "35")
	t.Setenv("EMAIL_PORT", "2525")
	t.Setenv("TASKEVAL_SERVER_PORT", "9191")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, "Europe/Berlin", cfg.Business.Timezone)
	assert.Equal(t, "https://pm.example.com", cfg.Business.SiteBaseURL)
	assert.Equal(t, 1.5, cfg.Evaluation.Priorities.High)
	assert.Equal(t, 35.0, cfg.Evaluation.Qualities.Poor)
	assert.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	assert.Equal(t, 2525, cfg.Email.SMTP.Port)
	assert.Equal(t, 30*time.Minute, cfg.Worker.StatusPollInterval)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"bad timezone", func(c *Config) { c.Business.Timezone = "Mars/Olympus" }, "business.timezone"},
		{"zero multiplier", func(c *Config) { c.Evaluation.Priorities.Low = 0 }, "evaluation.priorities.low"},
		{"quality above 100", func(c *Config) { c.Evaluation.Qualities.Exceptional = 120 }, "evaluation.qualities.exceptional"},
		{"smtp without host", func(c *Config) { c.Email.Provider = "smtp" }, "email.smtp.host"},
		{"sendgrid without key", func(c *Config) { c.Email.Provider = "sendgrid" }, "sendgrid_api_key"},
		{"unknown provider", func(c *Config) { c.Email.Provider = "pigeon" }, "email.provider"},
		{"lark without credentials", func(c *Config) { c.Lark.Enabled = true }, "lark.app_id"},
		{"negative reminder window", func(c *Config) { c.Reminder.DaysBeforeDue = -1 }, "reminder"},
		{"zero poll interval", func(c *Config) { c.Worker.ReminderPollInterval = 0 }, "poll intervals"},
		{"relative metrics path", func(c *Config) { c.Metrics.Path = "metrics" }, "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestToContainerConfig(t *testing.T) {
	path := writeConfig(t, `
evaluation:
  priorities:
    high: 1.3
  qualities:
    good: 75
storage:
  max_upload_size_mb: 2
  allowed_extensions: [PDF, docx]
worker:
  status_update_on_startup: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	cc := cfg.ToContainerConfig()
	require.NoError(t, cc.Validate())

	assert.Equal(t, int64(2<<20), cc.Storage.MaxUploadBytes)
	assert.Equal(t, int64(2<<20), cc.Server.MaxUploadBytes)
	assert.Equal(t, []string{".pdf", ".docx"}, cc.Storage.AllowedExtensions)
	assert.False(t, cc.Worker.Status.RunOnStart)
	assert.Equal(t, cfg.Metrics.Path, cc.Server.MetricsPath)

	multipliers := map[string]float64{}
	for _, p := range cc.Seed.Priorities {
		multipliers[p.Name] = p.Multiplier
	}
	assert.Equal(t, 1.3, multipliers["High"])
	assert.Equal(t, 1.05, multipliers["Medium"])

	for _, q := range cc.Seed.Qualities {
		if q.Name == "Good" {
			assert.Equal(t, 75.0, q.Percentage)
			assert.NotEmpty(t, q.Description)
		}
	}
}
