package container

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/application/dispatcher"
	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/application/service"
	"github.com/opticorai/taskeval/internal/infrastructure/clock"
	"github.com/opticorai/taskeval/internal/infrastructure/metrics"
	"github.com/opticorai/taskeval/internal/infrastructure/persistence/sqlite"
	"github.com/opticorai/taskeval/internal/infrastructure/worker"
	httpapi "github.com/opticorai/taskeval/internal/interfaces/http"
	"github.com/opticorai/taskeval/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components start in dependency order and close in reverse order.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	database     *database.DB
	sqlDB        *sql.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Support
	clock     *clock.BusinessClock
	metrics   *metrics.Recorder
	notifiers *NotifierBundle
	storage   port.FileStorage
	writers   []port.ReportWriter

	// Application
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Task         port.TaskRepository
	User         port.UserRepository
	Quality      port.QualityRepository
	Priority     port.PriorityRepository
	KPI          port.KPIRepository
	Settings     port.SettingsRepository
	Progress     port.ProgressRepository
	Notification port.NotificationRepository
	Reminder     port.ReminderRepository
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Evaluation   service.EvaluationService
	Settings     service.SettingsService
	Progress     service.ProgressService
	KPI          service.KPIService
	Report       service.ReportService
	Attachment   service.AttachmentService
	Reminder     service.ReminderService
	Status       service.TaskStatusService
	Notification service.NotificationService
	Setup        service.SetupService
	Handlers     *service.EventHandlers
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// startStage is one step of Start. Stages run in order; a failing stage
// tears down whatever the earlier stages created.
type startStage struct {
	name string
	run  func(ctx context.Context) error
}

// Start initializes all components in dependency order: database and
// repositories, support infrastructure, services, then workers when enabled.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	stages := []startStage{
		{name: "database", run: c.initDatabase},
		{name: "infrastructure", run: c.initInfrastructure},
		{name: "services", run: c.initServices},
	}
	if c.config.Worker.Enabled {
		stages = append(stages, startStage{name: "workers", run: c.initWorkers})
	}

	for _, stage := range stages {
		if err := stage.run(c.ctx); err != nil {
			if errs := c.teardown(); len(errs) > 0 {
				c.logger.Error("Cleanup after failed start reported errors", zap.Errors("errors", errs))
			}
			return fmt.Errorf("failed to initialize %s: %w", stage.name, err)
		}
		c.logger.Info("Container stage ready", zap.String("stage", stage.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started",
		zap.Bool("workers", c.config.Worker.Enabled),
		zap.Bool("metrics", c.metrics != nil))
	return nil
}

// Close stops workers, drains the dispatcher and closes the database.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	errs := c.teardown()
	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Errors("errors", errs))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errors.Join(errs...))
	}
	c.logger.Info("Container closed")
	return nil
}

// teardown releases every component created so far, newest first
func (c *Container) teardown() []error {
	var errs []error
	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
		c.workers = nil
	}
	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		c.dispatcher = nil
	}
	if c.database != nil {
		if err := c.database.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.database = nil
		c.sqlDB = nil
	}
	return errs
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health reports each component. Overall is false when any component is unhealthy.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	if c.database == nil {
		set("database", false, "not initialized")
	} else if err := c.database.HealthCheck(ctx); err != nil {
		set("database", false, err.Error())
	} else {
		set("database", true, "")
	}

	switch {
	case !c.config.Worker.Enabled:
		set("workers", true, "disabled")
	case c.workers == nil:
		set("workers", false, "not initialized")
	default:
		set("workers", c.workers.IsRunning(), strings.Join(c.workers.Names(), ", "))
	}

	if c.dispatcher == nil {
		set("dispatcher", false, "not initialized")
	} else {
		stats := c.dispatcher.Stats()
		set("dispatcher", true, fmt.Sprintf("dispatched: %d, handler errors: %d", stats.Dispatched, stats.HandlerErrors))
	}

	if c.notifiers != nil {
		set("email", true, enabledMessage(c.notifiers.Mailer != nil))
		set("lark", true, enabledMessage(c.notifiers.Messenger != nil))
	}
	return status
}

func enabledMessage(enabled bool) string {
	if enabled {
		return "enabled"
	}
	return "disabled"
}

func (c *Container) initDatabase(ctx context.Context) error {
	dbBundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger.Named("database"))
	if err != nil {
		return err
	}
	c.database = dbBundle.DB
	c.sqlDB = dbBundle.SqlDB
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.sqlDB, c.logger.Named("repository"))
	if err != nil {
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initInfrastructure(_ context.Context) error {
	businessClock, err := ProvideClock(&c.config.Business)
	if err != nil {
		return err
	}
	c.clock = businessClock

	if c.config.Metrics.Enabled {
		c.metrics = metrics.NewRecorder()
	}

	notifiers, err := ProvideNotifiers(&c.config.Email, &c.config.Lark, c.logger.Named("notify"))
	if err != nil {
		return err
	}
	c.notifiers = notifiers

	fileStorage, err := ProvideStorage(&c.config.Storage, c.logger.Named("storage"))
	if err != nil {
		return err
	}
	c.storage = fileStorage

	c.writers = ProvideReportWriters(&c.config.Export, c.logger.Named("export"))
	return nil
}

func (c *Container) initServices(_ context.Context) error {
	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Clock:      c.clock,
		Dispatcher: c.dispatcher,
		Notifiers:  c.notifiers,
		Storage:    c.storage,
		Metrics:    c.evaluationMetrics(),
		Writers:    c.writers,
		Config:     c.config,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

func (c *Container) initWorkers(ctx context.Context) error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Services:  c.services,
		Clock:     c.clock,
		WorkerCfg: &c.config.Worker,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers

	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	return nil
}

// evaluationMetrics returns a nil interface when metrics are disabled.
func (c *Container) evaluationMetrics() port.EvaluationMetrics {
	if c.metrics == nil {
		return nil
	}
	return c.metrics
}

// NewHTTPServer builds the HTTP server on top of the started services.
func (c *Container) NewHTTPServer() (*httpapi.Server, error) {
	if !c.ready.Load() {
		return nil, fmt.Errorf("container not started")
	}

	serverCfg := c.config.Server
	serverCfg.MetricsPath = ""

	var (
		observer httpapi.RequestObserver
		handler  http.Handler
	)
	if c.metrics != nil {
		observer = c.metrics
		handler = c.metrics.Handler()
		serverCfg.MetricsPath = c.config.Metrics.Path
	}

	logger := &zapLoggerAdapter{logger: c.logger.Named("http")}
	return httpapi.NewServer(serverCfg, c.HTTPServices(), observer, handler, logger), nil
}

// HTTPServices exposes the services the HTTP handlers depend on.
func (c *Container) HTTPServices() httpapi.Services {
	if c.services == nil {
		return httpapi.Services{}
	}
	return httpapi.Services{
		Evaluation:    c.services.Evaluation,
		Settings:      c.services.Settings,
		Progress:      c.services.Progress,
		KPIs:          c.services.KPI,
		Reports:       c.services.Report,
		Attachments:   c.services.Attachment,
		Reminders:     c.services.Reminder,
		Statuses:      c.services.Status,
		Notifications: c.services.Notification,
	}
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Clock returns the business clock.
func (c *Container) Clock() *clock.BusinessClock {
	return c.clock
}

// Metrics returns the Prometheus recorder, or nil when metrics are disabled.
func (c *Container) Metrics() *metrics.Recorder {
	return c.metrics
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service, dispatcher and http Logger interfaces.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Info(msg, fields...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	fields := convertToZapFields(keysAndValues...)
	a.logger.Error(msg, fields...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
