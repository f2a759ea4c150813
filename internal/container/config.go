// Package container provides dependency injection and lifecycle management
// for the task evaluation service.
package container

import (
	"fmt"
	"time"

	"github.com/opticorai/taskeval/internal/application/service"
	"github.com/opticorai/taskeval/internal/infrastructure/notify/email"
	"github.com/opticorai/taskeval/internal/infrastructure/worker"
	httpapi "github.com/opticorai/taskeval/internal/interfaces/http"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database DatabaseConfig
	Server   httpapi.ServerConfig
	Business BusinessConfig

	// Seed lists the priorities and qualities written by setup-evaluation
	Seed service.SeedConfig

	Email    email.Config
	Lark     LarkConfig
	Storage  StorageConfig
	Reminder service.ReminderPolicy
	Worker   WorkerConfig
	Metrics  MetricsConfig
	Export   ExportConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate applies embedded migrations on start
	AutoMigrate bool
}

// BusinessConfig holds the business calendar and public URL.
type BusinessConfig struct {
	// Timezone is an IANA name; "today" and date boundaries are computed in it
	Timezone string

	// SiteBaseURL prefixes links in outgoing notifications
	SiteBaseURL string
}

// LarkConfig holds Lark IM settings.
type LarkConfig struct {
	Enabled   bool
	AppID     string
	AppSecret string
}

// StorageConfig holds upload storage settings.
type StorageConfig struct {
	UploadDir         string
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	Enabled bool
	Status  worker.StatusWorkerConfig
	Remind  worker.ReminderWorkerConfig
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// ExportConfig holds progress report settings.
type ExportConfig struct {
	IncludeTaskSheet bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	server := httpapi.DefaultServerConfig()
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/taskeval.db",
			MaxOpenConns: 4,
			MaxIdleConns: 2,
			AutoMigrate:  true,
		},
		Server: server,
		Business: BusinessConfig{
			Timezone:    "Asia/Kolkata",
			SiteBaseURL: "http://localhost:8080",
		},
		Seed: service.DefaultSeedConfig(),
		Email: email.Config{
			Provider:    email.ProviderConsole,
			FromName:    "OpticorAI",
			FromAddress: "no-reply@opticorai.local",
		},
		Storage: StorageConfig{
			UploadDir:      "media",
			MaxUploadBytes: server.MaxUploadBytes,
		},
		Reminder: service.DefaultReminderPolicy(),
		Worker: WorkerConfig{
			Enabled: true,
			Status:  worker.DefaultStatusWorkerConfig(),
			Remind:  worker.DefaultReminderWorkerConfig(),
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    server.MetricsPath,
		},
		Export: ExportConfig{
			IncludeTaskSheet: true,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Business.Timezone == "" {
		return fmt.Errorf("business.timezone is required")
	}
	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}
	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
	}
	if len(c.Seed.Priorities) == 0 || len(c.Seed.Qualities) == 0 {
		return fmt.Errorf("seed priorities and qualities are required")
	}
	return nil
}
