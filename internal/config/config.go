package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/opticorai/taskeval/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Business   BusinessConfig   `mapstructure:"business"`
	Evaluation EvaluationConfig `mapstructure:"evaluation"`
	Email      EmailConfig      `mapstructure:"email"`
	Lark       LarkConfig       `mapstructure:"lark"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Reminder   ReminderConfig   `mapstructure:"reminder"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Export     ExportConfig     `mapstructure:"export"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// BusinessConfig holds the organisation's calendar and public URL
type BusinessConfig struct {
	Timezone    string `mapstructure:"timezone"`
	SiteBaseURL string `mapstructure:"site_base_url"`
}

// EvaluationConfig holds the values written by the seeding command
type EvaluationConfig struct {
	Priorities PriorityConfig `mapstructure:"priorities"`
	Qualities  QualityConfig  `mapstructure:"qualities"`
}

// PriorityConfig holds the default priority multipliers
type PriorityConfig struct {
	Low    float64 `mapstructure:"low"`
	Medium float64 `mapstructure:"medium"`
	High   float64 `mapstructure:"high"`
}

// QualityConfig holds the default quality percentages
type QualityConfig struct {
	Poor        float64 `mapstructure:"poor"`
	Average     float64 `mapstructure:"average"`
	Good        float64 `mapstructure:"good"`
	Exceed      float64 `mapstructure:"exceed"`
	Exceptional float64 `mapstructure:"exceptional"`
}

// EmailConfig holds outgoing mail configuration
type EmailConfig struct {
	Provider       string     `mapstructure:"provider"`
	FromName       string     `mapstructure:"from_name"`
	FromAddress    string     `mapstructure:"from_address"`
	SMTP           SMTPConfig `mapstructure:"smtp"`
	SendGridAPIKey string     `mapstructure:"sendgrid_api_key"`
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	AppID     string `mapstructure:"app_id"`
	AppSecret string `mapstructure:"app_secret"`
}

// StorageConfig holds upload storage configuration
type StorageConfig struct {
	UploadDir         string   `mapstructure:"upload_dir"`
	MaxUploadSizeMB   int64    `mapstructure:"max_upload_size_mb"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
}

// ReminderConfig holds the reminder windows in days
type ReminderConfig struct {
	DaysBeforeDue       int `mapstructure:"days_before_due"`
	DaysAfterSubmission int `mapstructure:"days_after_submission"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Enabled               bool          `mapstructure:"enabled"`
	StatusPollInterval    time.Duration `mapstructure:"status_poll_interval"`
	ReminderPollInterval  time.Duration `mapstructure:"reminder_poll_interval"`
	StatusUpdateOnStartup bool          `mapstructure:"status_update_on_startup"`
}

// ExportConfig holds progress report options
type ExportConfig struct {
	IncludeTaskSheet bool `mapstructure:"include_task_sheet"`
}

// MetricsConfig holds Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads .env (if present), the YAML file at configPath (optional when
// empty) and environment variables, in increasing order of precedence.
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("TASKEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/taskeval.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.auto_migrate", true)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("business.timezone", "Asia/Kolkata")
	v.SetDefault("business.site_base_url", "http://localhost:8080")

	// Seed values for setup-evaluation
	v.SetDefault("evaluation.priorities.low", 1.0)
	v.SetDefault("evaluation.priorities.medium", 1.05)
	v.SetDefault("evaluation.priorities.high", 1.2)
	v.SetDefault("evaluation.qualities.poor", 40.0)
	v.SetDefault("evaluation.qualities.average", 60.0)
	v.SetDefault("evaluation.qualities.good", 80.0)
	v.SetDefault("evaluation.qualities.exceed", 90.0)
	v.SetDefault("evaluation.qualities.exceptional", 100.0)

	// Email defaults
	v.SetDefault("email.provider", "console")
	v.SetDefault("email.from_name", "OpticorAI")
	v.SetDefault("email.from_address", "no-reply@opticorai.local")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)

	v.SetDefault("lark.enabled", false)

	// Storage defaults
	v.SetDefault("storage.upload_dir", "media")
	v.SetDefault("storage.max_upload_size_mb", 10)
	v.SetDefault("storage.allowed_extensions", []string{
		".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt", ".jpg", ".jpeg", ".png", ".gif", ".zip",
	})

	v.SetDefault("reminder.days_before_due", 5)
	v.SetDefault("reminder.days_after_submission", 5)

	// Worker defaults
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.status_poll_interval", time.Hour)
	v.SetDefault("worker.reminder_poll_interval", 15*time.Minute)
	v.SetDefault("worker.status_update_on_startup", true)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("export.include_task_sheet", true)
}

// bindEnvVars binds the deployment environment variable names
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.path":                    "DATABASE_PATH",
		"business.timezone":                "BUSINESS_TIMEZONE",
		"business.site_base_url":           "SITE_BASE_URL",
		"evaluation.priorities.low":        "PRIORITY_MULTIPLIER_LOW",
		"evaluation.priorities.medium":     "PRIORITY_MULTIPLIER_MEDIUM",
		"evaluation.priorities.high":       "PRIORITY_MULTIPLIER_HIGH",
		"evaluation.qualities.poor":        "QUALITY_POOR_PERCENTAGE",
		"evaluation.qualities.average":     "QUALITY_AVERAGE_PERCENTAGE",
		"evaluation.qualities.good":        "QUALITY_GOOD_PERCENTAGE",
		"evaluation.qualities.exceed":      "QUALITY_EXCEED_PERCENTAGE",
		"evaluation.qualities.exceptional": "QUALITY_EXCEPTIONAL_PERCENTAGE",
		"email.provider":                   "EMAIL_PROVIDER",
		"email.from_address":               "DEFAULT_FROM_EMAIL",
		"email.smtp.host":                  "EMAIL_HOST",
		"email.smtp.port":                  "EMAIL_PORT",
		"email.smtp.username":              "EMAIL_HOST_USER",
		"email.smtp.password":              "EMAIL_HOST_PASSWORD",
		"email.smtp.use_tls":               "EMAIL_USE_TLS",
		"email.sendgrid_api_key":           "SENDGRID_API_KEY",
		"lark.app_id":                      "LARK_APP_ID",
		"lark.app_secret":                  "LARK_APP_SECRET",
		"storage.upload_dir":               "MEDIA_ROOT",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "TASKEVAL_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("bind %s: %w", key, err)
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := time.LoadLocation(c.Business.Timezone); err != nil {
		return fmt.Errorf("business.timezone %q is invalid: %w", c.Business.Timezone, err)
	}
	if _, err := url.ParseRequestURI(c.Business.SiteBaseURL); err != nil {
		return fmt.Errorf("business.site_base_url %q is invalid: %w", c.Business.SiteBaseURL, err)
	}

	p := c.Evaluation.Priorities
	for name, m := range map[string]float64{"low": p.Low, "medium": p.Medium, "high": p.High} {
		if m <= 0 {
			return fmt.Errorf("evaluation.priorities.%s must be positive, got %.2f", name, m)
		}
	}
	q := c.Evaluation.Qualities
	for name, pct := range map[string]float64{
		"poor": q.Poor, "average": q.Average, "good": q.Good, "exceed": q.Exceed, "exceptional": q.Exceptional,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("evaluation.qualities.%s must be within 0-100, got %.2f", name, pct)
		}
	}

	switch c.Email.Provider {
	case "none", "console":
	case "smtp":
		if c.Email.SMTP.Host == "" {
			return fmt.Errorf("email.smtp.host is required for the smtp provider")
		}
	case "sendgrid":
		if c.Email.SendGridAPIKey == "" {
			return fmt.Errorf("email.sendgrid_api_key is required for the sendgrid provider")
		}
	default:
		return fmt.Errorf("email.provider %q is not one of none, console, smtp, sendgrid", c.Email.Provider)
	}
	if c.Email.Provider != "none" {
		if err := utils.ValidateEmail(c.Email.FromAddress); err != nil {
			return fmt.Errorf("email.from_address: %w", err)
		}
	}

	if c.Lark.Enabled && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret are required when lark is enabled")
	}

	if c.Storage.UploadDir == "" {
		return fmt.Errorf("storage.upload_dir is required")
	}
	if c.Storage.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("storage.max_upload_size_mb must be positive")
	}

	if c.Reminder.DaysBeforeDue < 0 || c.Reminder.DaysAfterSubmission < 0 {
		return fmt.Errorf("reminder windows must not be negative")
	}

	if c.Worker.Enabled && (c.Worker.StatusPollInterval <= 0 || c.Worker.ReminderPollInterval <= 0) {
		return fmt.Errorf("worker poll intervals must be positive")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with /")
	}

	return nil
}
