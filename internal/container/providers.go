package container

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/dispatcher"
	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/application/service"
	"github.com/opticorai/taskeval/internal/infrastructure/clock"
	"github.com/opticorai/taskeval/internal/infrastructure/export"
	"github.com/opticorai/taskeval/internal/infrastructure/inspect"
	"github.com/opticorai/taskeval/internal/infrastructure/notify/email"
	infraLark "github.com/opticorai/taskeval/internal/infrastructure/notify/lark"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/repository"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
	"github.com/opticorai/taskeval/internal/infrastructure/storage"
	"github.com/opticorai/taskeval/internal/infrastructure/worker"
	"github.com/opticorai/taskeval/migrations"
	"github.com/opticorai/taskeval/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// NotifierBundle holds the optional delivery channels. A nil field disables that channel.
type NotifierBundle struct {
	Mailer    port.Mailer
	Messenger port.InstantMessenger
}

// ProvideDatabase opens the database and wraps it in a transaction manager.
// Pending migrations run automatically when cfg.AutoMigrate is set.
func ProvideDatabase(ctx context.Context, cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if _, err := RunMigrations(ctx, db, logger); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &DatabaseBundle{
		DB:             db,
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// RunMigrations applies the embedded migrations and returns how many ran
func RunMigrations(ctx context.Context, db *database.DB, logger *zap.Logger) (int, error) {
	applied, err := database.NewMigrator(db, logger).Run(ctx, migrations.FS)
	if err != nil {
		return 0, fmt.Errorf("failed to run migrations: %w", err)
	}
	return applied, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Task:         repository.NewTaskRepository(sqlDB, logger),
		User:         repository.NewUserRepository(sqlDB, logger),
		Quality:      repository.NewQualityRepository(sqlDB, logger),
		Priority:     repository.NewPriorityRepository(sqlDB, logger),
		KPI:          repository.NewKPIRepository(sqlDB, logger),
		Settings:     repository.NewSettingsRepository(sqlDB, logger),
		Progress:     repository.NewProgressRepository(sqlDB, logger),
		Notification: repository.NewNotificationRepository(sqlDB, logger),
		Reminder:     repository.NewReminderRepository(sqlDB, logger),
	}, nil
}

// ProvideClock creates the business-timezone clock
func ProvideClock(cfg *BusinessConfig) (*clock.BusinessClock, error) {
	c, err := clock.New(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load business timezone: %w", err)
	}
	return c, nil
}

// ProvideNotifiers creates the email and Lark channels that are enabled
func ProvideNotifiers(emailCfg *email.Config, larkCfg *LarkConfig, logger *zap.Logger) (*NotifierBundle, error) {
	bundle := &NotifierBundle{}

	mailer, err := email.New(*emailCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create mailer: %w", err)
	}
	if mailer != nil {
		bundle.Mailer = mailer
	}

	if larkCfg.Enabled {
		client := infraLark.NewSDKClient(infraLark.Config{
			AppID:     larkCfg.AppID,
			AppSecret: larkCfg.AppSecret,
		})
		bundle.Messenger = infraLark.NewMessenger(client, logger)
	}

	logger.Info("Notification channels configured",
		zap.String("email_provider", emailCfg.Provider),
		zap.Bool("email_enabled", bundle.Mailer != nil),
		zap.Bool("lark_enabled", bundle.Messenger != nil))
	return bundle, nil
}

// ProvideStorage creates the upload directory and the file storage rooted at it
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg.UploadDir == "" {
		return nil, fmt.Errorf("upload directory is required")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return storage.NewLocalFileStorage(cfg.UploadDir, logger), nil
}

// ProvideReportWriters returns the xlsx and pdf progress report renderers
func ProvideReportWriters(cfg *ExportConfig, logger *zap.Logger) []port.ReportWriter {
	return []port.ReportWriter{
		export.NewXLSXWriter(cfg.IncludeTaskSheet, logger),
		export.NewPDFWriter(),
	}
}

// ProvideDispatcher creates the event dispatcher
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger.Named("dispatcher")}),
	), nil
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Clock      port.Clock
	Dispatcher dispatcher.Dispatcher
	Notifiers  *NotifierBundle
	Storage    port.FileStorage
	Metrics    port.EvaluationMetrics
	Writers    []port.ReportWriter
	Config     *Config
	Logger     *zap.Logger
}

// ProvideServices creates all application services and subscribes the
// notification and metrics handlers to the dispatcher.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Config == nil {
		return nil, fmt.Errorf("repositories and config are required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	repos := deps.Repos
	logger := &zapLoggerAdapter{logger: deps.Logger}
	notifiers := deps.Notifiers
	if notifiers == nil {
		notifiers = &NotifierBundle{}
	}

	notification := service.NewNotificationService(
		repos.Notification,
		repos.User,
		notifiers.Mailer,
		notifiers.Messenger,
		deps.Metrics,
		deps.Clock,
		service.NotificationConfig{SiteBaseURL: deps.Config.Business.SiteBaseURL},
		logger,
	)
	settings := service.NewSettingsService(repos.Settings, deps.Clock, logger)
	progress := service.NewProgressService(
		repos.Task,
		repos.User,
		repos.KPI,
		repos.Progress,
		deps.Clock,
		deps.Dispatcher,
		logger,
	)

	bundle := &ServiceBundle{
		Notification: notification,
		Settings:     settings,
		Progress:     progress,
		Evaluation: service.NewEvaluationService(service.EvaluationServiceDeps{
			Tasks:      repos.Task,
			Users:      repos.User,
			Qualities:  repos.Quality,
			Priorities: repos.Priority,
			Settings:   settings,
			TxManager:  deps.TxManager,
			Clock:      deps.Clock,
			Publisher:  deps.Dispatcher,
			Logger:     logger,
			Audit:      &zapLoggerAdapter{logger: deps.Logger.Named("audit")},
		}),
		Status:   service.NewTaskStatusService(repos.Task, notification, deps.Metrics, deps.Clock, logger),
		Reminder: service.NewReminderService(repos.Task, repos.User, repos.Reminder, notification, deps.Clock, deps.Config.Reminder, logger),
		KPI:      service.NewKPIService(repos.KPI, repos.User, deps.TxManager, deps.Clock, logger),
		Report:   service.NewReportService(progress, repos.User, deps.Clock, logger, deps.Writers...),
		Attachment: service.NewAttachmentService(
			repos.Task,
			repos.User,
			deps.TxManager,
			deps.Storage,
			inspect.NewPDFInspector(deps.Logger),
			service.AttachmentConfig{
				MaxSizeBytes:      deps.Config.Storage.MaxUploadBytes,
				AllowedExtensions: deps.Config.Storage.AllowedExtensions,
			},
			logger,
		),
		Setup: service.NewSetupService(repos.Priority, repos.Quality, settings, deps.TxManager, deps.Config.Seed, logger),
	}

	bundle.Handlers = service.NewEventHandlers(notification, repos.User, deps.Metrics, logger)
	bundle.Handlers.Register(deps.Dispatcher)

	return bundle, nil
}

// WorkerDeps holds dependencies for creating workers.
type WorkerDeps struct {
	Services  *ServiceBundle
	Clock     port.Clock
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the status and reminder workers behind a WorkerManager
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil || deps.Services == nil || deps.WorkerCfg == nil {
		return nil, fmt.Errorf("services and worker config are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)
	manager.Register(worker.NewStatusWorker(deps.WorkerCfg.Status, deps.Services.Status, deps.Logger.Named("status_worker")))
	manager.Register(worker.NewReminderWorker(deps.WorkerCfg.Remind, deps.Services.Reminder, deps.Clock, deps.Logger.Named("reminder_worker")))
	return manager, nil
}
