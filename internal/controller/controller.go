// Package controller runs the three stages of an audit run: migrate the
// registered models, generate the log table script, and execute it.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"migratectl/internal/auditlog"
	"migratectl/internal/config"
	"migratectl/internal/executor"
	"migratectl/internal/history"
	"migratectl/internal/migrate"
	"migratectl/internal/observability"
	"migratectl/internal/registry"

	"gorm.io/gorm"
)

// Options are the per-invocation switches of the command.
type Options struct {
	OutputDir   string
	SkipMigrate bool
	Report      bool
}

// Generated describes the files written by Generate.
type Generated struct {
	Path    string
	Script  auditlog.Script
	Reports []string
}

// Summary is the outcome of a full run.
type Summary struct {
	Changes []migrate.Change
	Generated
	Result executor.Result
}

type Controller struct {
	db      *gorm.DB
	reg     *registry.Registry
	dialect auditlog.Dialect
	opts    auditlog.Options
	driver  *migrate.Driver
	exec    *executor.Executor
	history *history.Store
	log     *slog.Logger
	now     func() time.Time
}

// New wires the stages for one connection. cfg supplies the dialect and the
// trigger options.
func New(db *gorm.DB, reg *registry.Registry, cfg config.Config, log *slog.Logger) (*Controller, error) {
	dialect, err := auditlog.DialectFor(cfg.Dialect)
	if err != nil {
		return nil, err
	}
	image, err := auditlog.ParseRowImage(cfg.UpdateImage)
	if err != nil {
		return nil, err
	}
	return &Controller{
		db:      db,
		reg:     reg,
		dialect: dialect,
		opts:    auditlog.Options{ActorID: cfg.ActorID, UpdateImage: image},
		driver:  migrate.NewDriver(db, reg, log),
		exec:    executor.New(db, dialect, log),
		history: history.NewStore(db),
		log:     log,
		now:     time.Now,
	}, nil
}

// DB returns the connection the controller runs on.
func (c *Controller) DB() *gorm.DB { return c.db }

// Plan lists pending schema changes without applying them.
func (c *Controller) Plan(ctx context.Context) ([]migrate.Change, error) {
	return c.driver.Plan(ctx)
}

// Migrate applies pending schema changes.
func (c *Controller) Migrate(ctx context.Context) ([]migrate.Change, error) {
	return c.driver.Run(ctx)
}

// Generate describes the registered models and writes the audit script into
// opts.OutputDir. Nothing is written if any model cannot be described.
func (c *Controller) Generate(ctx context.Context, opts Options) (Generated, error) {
	tables, err := c.reg.Describe(c.db.WithContext(ctx))
	if err != nil {
		return Generated{}, fmt.Errorf("describe models: %w", err)
	}

	script, err := auditlog.NewGenerator(c.dialect, c.opts).Generate(tables)
	if err != nil {
		return Generated{}, fmt.Errorf("generate audit sql: %w", err)
	}

	now := c.now()
	path, err := auditlog.WriteScript(outputDir(opts), now, script)
	if err != nil {
		return Generated{}, err
	}
	observability.LogTablesGenerated.Add(int64(script.Count(auditlog.KindTable)))
	observability.TriggersGenerated.Add(int64(script.Count(auditlog.KindTrigger)))
	c.log.Info("audit script written", "file", path, "tables", len(tables), "statements", len(script.Statements))

	gen := Generated{Path: path, Script: script}
	if opts.Report {
		gen.Reports, err = writeReports(auditlog.BuildReport(tables, script, path, now), path)
		if err != nil {
			return gen, err
		}
	}
	return gen, nil
}

// Apply executes a script file and records the run in the history table,
// whether it succeeded or not.
func (c *Controller) Apply(ctx context.Context, path string) (executor.Result, error) {
	if err := c.history.Migrate(ctx); err != nil {
		return executor.Result{}, fmt.Errorf("migrate history: %w", err)
	}

	started := c.now()
	res, execErr := c.exec.ExecuteFile(ctx, path)

	run := &history.Run{
		ScriptFile: path,
		Dialect:    c.dialect.Name(),
		Executed:   res.Executed,
		Skipped:    res.Skipped,
		Status:     history.StatusSucceeded,
		StartedAt:  started,
		FinishedAt: c.now(),
	}
	if execErr != nil {
		run.Status = history.StatusFailed
		run.Error = execErr.Error()
	}
	// A cancelled context must not hide the execution error.
	if err := c.history.Record(context.WithoutCancel(ctx), run); err != nil {
		if execErr != nil {
			c.log.Error("record failed run", "err", err)
			return res, execErr
		}
		return res, err
	}
	return res, execErr
}

// Run performs migrate, generate and execute in order. A failed stage stops
// the run.
func (c *Controller) Run(ctx context.Context, opts Options) (Summary, error) {
	var sum Summary
	if !opts.SkipMigrate {
		changes, err := c.Migrate(ctx)
		if err != nil {
			return sum, err
		}
		sum.Changes = changes
	}

	gen, err := c.Generate(ctx, opts)
	if err != nil {
		return sum, err
	}
	sum.Generated = gen

	res, err := c.Apply(ctx, gen.Path)
	sum.Result = res
	if err != nil {
		return sum, err
	}
	return sum, nil
}

func outputDir(opts Options) string {
	if opts.OutputDir == "" {
		return "."
	}
	return opts.OutputDir
}

// writeReports stores the PDF and CSV summaries next to the script.
func writeReports(r auditlog.Report, scriptPath string) ([]string, error) {
	base := strings.TrimSuffix(scriptPath, ".sql")

	pdf, err := auditlog.ExportPDF(r)
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	csvData, err := auditlog.ExportCSV(r)
	if err != nil {
		return nil, fmt.Errorf("export csv: %w", err)
	}

	paths := []string{base + ".pdf", base + ".csv"}
	for i, data := range [][]byte{pdf, csvData} {
		if err := os.WriteFile(paths[i], data, 0o644); err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
	}
	return paths, nil
}
