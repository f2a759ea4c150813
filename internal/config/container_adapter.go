package config

import (
	"github.com/opticorai/taskeval/internal/application/service"
	"github.com/opticorai/taskeval/internal/container"
	"github.com/opticorai/taskeval/internal/infrastructure/notify/email"
	"github.com/opticorai/taskeval/internal/infrastructure/worker"
	httpapi "github.com/opticorai/taskeval/internal/interfaces/http"
	"github.com/opticorai/taskeval/pkg/utils"
)

const bytesPerMB = 1 << 20

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	maxUploadBytes := c.Storage.MaxUploadSizeMB * bytesPerMB

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			AutoMigrate:     c.Database.AutoMigrate,
		},
		Server: httpapi.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			MaxUploadBytes:  maxUploadBytes,
			MetricsPath:     c.Metrics.Path,
		},
		Business: container.BusinessConfig{
			Timezone:    c.Business.Timezone,
			SiteBaseURL: c.Business.SiteBaseURL,
		},
		Seed: c.seedConfig(),
		Email: email.Config{
			Provider:    c.Email.Provider,
			FromName:    c.Email.FromName,
			FromAddress: c.Email.FromAddress,
			SMTP: email.SMTPConfig{
				Host:     c.Email.SMTP.Host,
				Port:     c.Email.SMTP.Port,
				Username: c.Email.SMTP.Username,
				Password: c.Email.SMTP.Password,
				UseTLS:   c.Email.SMTP.UseTLS,
			},
			SendGridAPIKey: c.Email.SendGridAPIKey,
		},
		Lark: container.LarkConfig{
			Enabled:   c.Lark.Enabled,
			AppID:     c.Lark.AppID,
			AppSecret: c.Lark.AppSecret,
		},
		Storage: container.StorageConfig{
			UploadDir:         c.Storage.UploadDir,
			MaxUploadBytes:    maxUploadBytes,
			AllowedExtensions: utils.NormalizeExtensions(c.Storage.AllowedExtensions),
		},
		Reminder: service.ReminderPolicy{
			DaysBeforeDue:       c.Reminder.DaysBeforeDue,
			DaysAfterSubmission: c.Reminder.DaysAfterSubmission,
		},
		Worker: container.WorkerConfig{
			Enabled: c.Worker.Enabled,
			Status: worker.StatusWorkerConfig{
				PollInterval: c.Worker.StatusPollInterval,
				RunOnStart:   c.Worker.StatusUpdateOnStartup,
			},
			Remind: worker.ReminderWorkerConfig{
				PollInterval: c.Worker.ReminderPollInterval,
			},
		},
		Metrics: container.MetricsConfig{
			Enabled: c.Metrics.Enabled,
			Path:    c.Metrics.Path,
		},
		Export: container.ExportConfig{
			IncludeTaskSheet: c.Export.IncludeTaskSheet,
		},
	}
}

// seedConfig overrides the default tier values by name, keeping descriptions
func (c *Config) seedConfig() service.SeedConfig {
	seed := service.DefaultSeedConfig()

	priorities := map[string]float64{
		"Low":    c.Evaluation.Priorities.Low,
		"Medium": c.Evaluation.Priorities.Medium,
		"High":   c.Evaluation.Priorities.High,
	}
	for i := range seed.Priorities {
		if v, ok := priorities[seed.Priorities[i].Name]; ok && v > 0 {
			seed.Priorities[i].Multiplier = v
		}
	}

	qualities := map[string]float64{
		"Poor":        c.Evaluation.Qualities.Poor,
		"Average":     c.Evaluation.Qualities.Average,
		"Good":        c.Evaluation.Qualities.Good,
		"Exceed":      c.Evaluation.Qualities.Exceed,
		"Exceptional": c.Evaluation.Qualities.Exceptional,
	}
	for i := range seed.Qualities {
		if v, ok := qualities[seed.Qualities[i].Name]; ok {
			seed.Qualities[i].Percentage = v
		}
	}

	return seed
}
