package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/application/service"
	"github.com/opticorai/taskeval/internal/container"
)

func migrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer logger.Sync()

			dbCfg := cfg.Database
			dbCfg.AutoMigrate = false
			bundle, err := container.ProvideDatabase(cmd.Context(), &dbCfg, logger)
			if err != nil {
				return err
			}
			defer bundle.DB.Close()

			applied, err := container.RunMigrations(cmd.Context(), bundle.DB, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s) to %s\n", applied, dbCfg.Path)
			return nil
		},
	}
}

func setupEvaluationCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-evaluation",
		Short: "Create the default priorities, qualities and evaluation settings",
		Long: `Creates the priority multipliers and quality percentages from the
evaluation section of the config, and stores the default evaluation settings
when none exist. Existing rows are updated in place, so the command is safe
to run repeatedly.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(opts, func(ctx context.Context, c *container.Container) error {
				summary, err := c.Services().Setup.Seed(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}

func updateStatusesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update-statuses",
		Short: "Recompute the status of every open task from its dates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(opts, func(ctx context.Context, c *container.Container) error {
				summary, err := c.Services().Status.UpdateAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), summary)
			})
		},
	}
}

func sendRemindersCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send-reminders",
		Short: "Send due-date, evaluation and scheduled reminders for today",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(opts, func(ctx context.Context, c *container.Container) error {
				summary, err := c.Services().Reminder.SendDue(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), struct {
					service.ReminderSummary
					Total int `json:"total"`
				}{summary, summary.Total()})
			})
		},
	}
}

func recalcProgressCmd(opts *globalOptions) *cobra.Command {
	var (
		managerID int64
		start     string
		end       string
	)

	cmd := &cobra.Command{
		Use:   "recalc-progress",
		Short: "Force-recalculate KPI progress for a manager's team",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDateFlag("start", start)
			if err != nil {
				return err
			}
			endDate, err := parseDateFlag("end", end)
			if err != nil {
				return err
			}

			return withContainer(opts, func(ctx context.Context, c *container.Container) error {
				rows, err := c.Services().Progress.RecalculateAll(ctx, managerID, startDate, endDate)
				if err != nil {
					return err
				}
				return printProgressTable(cmd, rows)
			})
		},
	}

	cmd.Flags().Int64Var(&managerID, "manager", 0, "Manager user id (required)")
	cmd.Flags().StringVar(&start, "start", "", "Period start (YYYY-MM-DD), defaults to the first of the month")
	cmd.Flags().StringVar(&end, "end", "", "Period end (YYYY-MM-DD), defaults to today")
	_ = cmd.MarkFlagRequired("manager")
	return cmd
}

func printProgressTable(cmd *cobra.Command, rows []port.ProgressRow) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "EMPLOYEE\tNAME\tPROGRESS\tKPIS")
	for _, row := range rows {
		score := "-"
		kpis := 0
		if row.Progress != nil {
			kpis = len(row.Progress.Breakdown)
			if row.Progress.TotalProgressScore != nil {
				score = fmt.Sprintf("%.2f", *row.Progress.TotalProgressScore)
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", row.Employee.ID, row.Employee.FullName(), score, kpis)
	}
	return tw.Flush()
}

func evaluatePreviewCmd(opts *globalOptions) *cobra.Command {
	var (
		quality        float64
		multiplier     float64
		target         string
		completed      string
		completion     float64
		managerClosure bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate-preview",
		Short: "Score ad-hoc inputs with the stored evaluation settings",
		Example: `  taskevalctl evaluate-preview --quality 80 --multiplier 1.2 \
    --target 2024-03-10 --completed 2024-03-07`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := service.PreviewRequest{
				PercentageCompletion: completion,
				ManagerClosure:       managerClosure,
			}
			if cmd.Flags().Changed("quality") {
				req.QualityPercentage = &quality
			}
			if cmd.Flags().Changed("multiplier") {
				req.PriorityMultiplier = &multiplier
			}

			var err error
			if req.TargetDate, err = parseDateFlag("target", target); err != nil {
				return err
			}
			if req.CompletionDate, err = parseDateFlag("completed", completed); err != nil {
				return err
			}

			return withContainer(opts, func(ctx context.Context, c *container.Container) error {
				result, err := c.Services().Evaluation.Preview(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().Float64Var(&quality, "quality", 0, "Quality percentage (0-100)")
	cmd.Flags().Float64Var(&multiplier, "multiplier", 1, "Priority multiplier")
	cmd.Flags().StringVar(&target, "target", "", "Target date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&completed, "completed", "", "Completion date (YYYY-MM-DD)")
	cmd.Flags().Float64Var(&completion, "completion", 100, "Percentage completion, used with --manager-closure")
	cmd.Flags().BoolVar(&managerClosure, "manager-closure", false, "Score as a manager closing an incomplete task")
	return cmd
}

func exportProgressCmd(opts *globalOptions) *cobra.Command {
	var (
		managerID int64
		format    string
		outPath   string
		start     string
		end       string
	)

	cmd := &cobra.Command{
		Use:   "export-progress",
		Short: "Write a team progress report as xlsx or pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			startDate, err := parseDateFlag("start", start)
			if err != nil {
				return err
			}
			endDate, err := parseDateFlag("end", end)
			if err != nil {
				return err
			}

			return withContainer(opts, func(ctx context.Context, c *container.Container) error {
				tmp, err := os.CreateTemp(filepath.Dir(outPathOrDefault(outPath)), ".taskeval-export-*")
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer os.Remove(tmp.Name())

				result, err := c.Services().Report.ExportProgress(ctx, managerID, startDate, endDate, format, tmp)
				if closeErr := tmp.Close(); err == nil {
					err = closeErr
				}
				if err != nil {
					return err
				}

				dest := outPath
				if dest == "" {
					dest = result.Filename
				}
				if err := os.Rename(tmp.Name(), dest); err != nil {
					return fmt.Errorf("write %s: %w", dest, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d row(s) to %s\n", result.Rows, dest)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&managerID, "manager", 0, "Manager user id (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "xlsx", "Report format (xlsx or pdf)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path, defaults to the generated file name")
	cmd.Flags().StringVar(&start, "start", "", "Period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Period end (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("manager")
	return cmd
}

func outPathOrDefault(path string) string {
	if path == "" {
		return "report"
	}
	return path
}
