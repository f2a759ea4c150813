package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/config"
	"github.com/opticorai/taskeval/internal/container"
	httpapi "github.com/opticorai/taskeval/internal/interfaces/http"
	"github.com/opticorai/taskeval/pkg/utils"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "taskeval",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	httpapi.Version = version
	logger.Info("Starting task evaluation service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("timezone", cfg.Business.Timezone))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return fmt.Errorf("create container: %w", err)
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	settings, err := c.Services().Settings.EnsureDefaults(ctx)
	if err != nil {
		return fmt.Errorf("ensure evaluation settings: %w", err)
	}
	logger.Info("Evaluation settings loaded",
		zap.String("formula", settings.FormulaName),
		zap.Float64("early_bonus_per_day", settings.EarlyCompletionBonusPerDay),
		zap.Float64("late_penalty_per_day", settings.LateCompletionPenaltyPerDay))

	server, err := c.NewHTTPServer()
	if err != nil {
		return err
	}

	// Start blocks until the signal context is cancelled
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("Shutting down")
	return nil
}
