// Package main provides taskevalctl, the operator CLI for the task evaluation
// service. Its commands replace the scheduled management jobs: seeding lookup
// data, the status sweep, reminder delivery and progress recalculation.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opticorai/taskeval/internal/config"
	"github.com/opticorai/taskeval/internal/container"
	"github.com/opticorai/taskeval/pkg/utils"
)

const (
	appName    = "taskevalctl"
	dateLayout = "2006-01-02"
)

var version = "dev"

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	configPath string
	verbose    bool
}

func main() {
	if err := rootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd(out io.Writer) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operate the task evaluation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "configs/config.yaml", "Config file path (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(
		migrateCmd(opts),
		setupEvaluationCmd(opts),
		updateStatusesCmd(opts),
		sendRemindersCmd(opts),
		recalcProgressCmd(opts),
		evaluatePreviewCmd(opts),
		exportProgressCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, version)
			},
		},
	)

	return cmd
}

// loadConfig reads the config file and builds a stderr logger
func loadConfig(opts *globalOptions) (*container.Config, *zap.Logger, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := utils.NewCLILogger(opts.verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	cc := cfg.ToContainerConfig()
	// One-shot commands never run the background loops
	cc.Worker.Enabled = false
	return cc, logger, nil
}

// withContainer starts a container for the duration of fn. The context is
// cancelled on SIGINT or SIGTERM.
func withContainer(opts *globalOptions, fn func(ctx context.Context, c *container.Container) error) error {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("Container closed with errors", zap.Error(err))
		}
	}()

	return fn(ctx, c)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDateFlag returns nil for an empty value and midnight UTC otherwise
func parseDateFlag(name, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", name, raw)
	}
	return &t, nil
}
