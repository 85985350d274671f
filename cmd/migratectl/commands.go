package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"migratectl/internal/config"
	"migratectl/internal/controller"
	"migratectl/internal/db"
	"migratectl/internal/history"
	"migratectl/internal/models"
	"migratectl/internal/observability"
	"migratectl/internal/registry"

	"github.com/spf13/cobra"
)

// app is the state shared by all subcommands.
type app struct {
	cfg  config.Config
	log  *slog.Logger
	opts controller.Options
	out  io.Writer
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migratectl",
		Short: "Migrate models and install audit log tables and triggers",
		Long: `migratectl applies pending schema changes for the registered models,
writes migrate_controller_<timestamp>.sql with a log_<table> table and
insert, update and delete triggers for every model, and executes it.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				sum, err := c.Run(ctx, a.opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s: %d executed, %d skipped\n", sum.Path, sum.Result.Executed, sum.Result.Skipped)
				return nil
			})
		},
	}

	addGenerateFlags(cmd, a)
	cmd.AddCommand(newPlanCmd(a), newGenerateCmd(a), newApplyCmd(a), newSeedCmd(a), newRunsCmd(a))
	return cmd
}

// addGenerateFlags registers the flags of the commands that write a script.
func addGenerateFlags(cmd *cobra.Command, a *app) {
	flags := cmd.Flags()
	flags.StringVarP(&a.opts.OutputDir, "output-dir", "o", "", "directory for generated files (default $OUTPUT_DIR or .)")
	flags.BoolVar(&a.opts.SkipMigrate, "skip-migrate", false, "do not apply schema changes before generating")
	flags.BoolVar(&a.opts.Report, "report", false, "also write PDF and CSV summaries of the generated script")
}

func newPlanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "List pending schema changes without applying them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				changes, err := c.Plan(ctx)
				if err != nil {
					return err
				}
				if len(changes) == 0 {
					fmt.Fprintln(a.out, "no pending schema changes")
					return nil
				}
				for _, ch := range changes {
					fmt.Fprintln(a.out, ch.String())
				}
				return nil
			})
		},
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Migrate and write the audit script without executing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				if !a.opts.SkipMigrate {
					if _, err := c.Migrate(ctx); err != nil {
						return err
					}
				}
				gen, err := c.Generate(ctx, a.opts)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, gen.Path)
				for _, r := range gen.Reports {
					fmt.Fprintln(a.out, r)
				}
				return nil
			})
		},
	}
	addGenerateFlags(cmd, a)
	return cmd
}

func newApplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <file>",
		Short: "Execute a previously generated audit script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				res, err := c.Apply(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%s: %d executed, %d skipped\n", args[0], res.Executed, res.Skipped)
				return nil
			})
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var createdBy string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Migrate and insert the default roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				if _, err := c.Migrate(ctx); err != nil {
					return err
				}
				n, err := models.SeedDefaultRoles(ctx, c.DB(), createdBy)
				if err != nil {
					return fmt.Errorf("seed default roles: %w", err)
				}
				a.log.Info("seed default roles completed", "inserted", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&createdBy, "created-by", "system", "value stored in created_by and updated_by")
	return cmd
}

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the most recent script executions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withController(cmd.Context(), func(ctx context.Context, c *controller.Controller) error {
				store := history.NewStore(c.DB())
				if err := store.Migrate(ctx); err != nil {
					return err
				}
				runs, err := store.Latest(ctx, limit)
				if err != nil {
					return err
				}
				return printRuns(a.out, runs)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}

func printRuns(w io.Writer, runs []history.Run) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tEXECUTED\tSKIPPED\tFILE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Format(time.RFC3339), r.Status, r.Executed, r.Skipped, r.ScriptFile)
	}
	return tw.Flush()
}

// load reads the environment and applies flag overrides.
func (a *app) load() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if a.opts.OutputDir == "" {
		a.opts.OutputDir = cfg.OutputDir
	}
	a.cfg = cfg
	a.log = observability.NewLogger(cfg.LogLevel, os.Stderr)
	return nil
}

// withController opens the database for the duration of fn.
func (a *app) withController(ctx context.Context, fn func(context.Context, *controller.Controller) error) error {
	dbx, err := db.Open(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dbx.Close(); cerr != nil {
			a.log.Error("database close error", "err", cerr)
		}
	}()

	c, err := controller.New(dbx.Gorm, registry.Default(), a.cfg, a.log)
	if err != nil {
		return err
	}
	if err := fn(ctx, c); err != nil {
		return err
	}
	observability.LogCounters(a.log)
	return nil
}
