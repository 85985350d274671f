// Package registry turns the application's gorm models into table
// descriptions for the audit log generator.
package registry

import (
	"fmt"

	"migratectl/internal/auditlog"
	"migratectl/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Registry is the list of models the command migrates and audits.
type Registry struct {
	models []any
}

// New returns a registry holding models in migration order.
func New(models ...any) *Registry {
	return &Registry{models: models}
}

// Default returns the application's own models.
func Default() *Registry {
	return New(models.All()...)
}

// Models returns the registered models.
func (r *Registry) Models() []any {
	return r.models
}

// Describe resolves every model once against db's naming strategy and
// dialect. The first failure aborts the whole description.
func (r *Registry) Describe(db *gorm.DB) ([]auditlog.TableSchema, error) {
	out := make([]auditlog.TableSchema, 0, len(r.models))
	for _, m := range r.models {
		t, err := Describe(db, m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Describe parses one model and resolves the native type of each column.
func Describe(db *gorm.DB, model any) (auditlog.TableSchema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return auditlog.TableSchema{}, fmt.Errorf("parse model %T: %w", model, err)
	}
	s := stmt.Schema

	t := auditlog.TableSchema{Name: s.Table}
	for _, f := range s.Fields {
		if f.DBName == "" || f.IgnoreMigration {
			continue
		}
		typ := columnType(db.Dialector, f)
		if typ == "" {
			return auditlog.TableSchema{}, fmt.Errorf("model %s: no database type for field %s", s.Name, f.Name)
		}
		t.Columns = append(t.Columns, auditlog.Column{Name: f.DBName, Type: typ})
	}
	return t, nil
}

// columnType asks the dialect for the field's type with auto-increment
// cleared: log tables receive many rows per source id.
func columnType(d gorm.Dialector, f *schema.Field) string {
	plain := *f
	plain.AutoIncrement = false
	return d.DataTypeOf(&plain)
}
