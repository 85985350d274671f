// Package migrate detects and applies schema changes for the registered
// models through gorm's migrator.
package migrate

import (
	"context"
	"fmt"
	"log/slog"

	"migratectl/internal/observability"
	"migratectl/internal/registry"

	"gorm.io/gorm"
)

// ChangeKind names a pending schema change.
type ChangeKind string

const (
	CreateTable ChangeKind = "create table"
	AddColumn   ChangeKind = "add column"
)

// Change is one difference between a model and the live schema.
type Change struct {
	Kind   ChangeKind
	Table  string
	Column string
}

func (c Change) String() string {
	if c.Column == "" {
		return fmt.Sprintf("%s %s", c.Kind, c.Table)
	}
	return fmt.Sprintf("%s %s.%s", c.Kind, c.Table, c.Column)
}

// Driver runs migrations for a registry against one database.
type Driver struct {
	db  *gorm.DB
	reg *registry.Registry
	log *slog.Logger
}

func NewDriver(db *gorm.DB, reg *registry.Registry, log *slog.Logger) *Driver {
	return &Driver{db: db, reg: reg, log: log}
}

// Plan reports missing tables and missing columns. It does not detect type
// changes; AutoMigrate alters those on its own.
func (d *Driver) Plan(ctx context.Context) ([]Change, error) {
	m := d.db.WithContext(ctx).Migrator()

	var changes []Change
	for _, model := range d.reg.Models() {
		stmt := &gorm.Statement{DB: d.db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !m.HasTable(model) {
			changes = append(changes, Change{Kind: CreateTable, Table: table})
			continue
		}
		for _, f := range stmt.Schema.Fields {
			if f.DBName == "" || f.IgnoreMigration {
				continue
			}
			if !m.HasColumn(model, f.DBName) {
				changes = append(changes, Change{Kind: AddColumn, Table: table, Column: f.DBName})
			}
		}
	}
	return changes, nil
}

// Apply migrates every model in registration order and stops at the first
// failure.
func (d *Driver) Apply(ctx context.Context) error {
	db := d.db.WithContext(ctx)
	for _, model := range d.reg.Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("auto migrate %T: %w", model, err)
		}
	}
	return nil
}

// Run detects pending changes, logs them and applies them.
func (d *Driver) Run(ctx context.Context) ([]Change, error) {
	changes, err := d.Plan(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect schema changes: %w", err)
	}
	observability.SchemaChangesPlanned.Add(int64(len(changes)))
	if len(changes) == 0 {
		d.log.Info("schema up to date", "models", len(d.reg.Models()))
	}
	for _, c := range changes {
		d.log.Info("schema change", "change", c.String())
	}

	if err := d.Apply(ctx); err != nil {
		return changes, fmt.Errorf("apply schema changes: %w", err)
	}
	return changes, nil
}
