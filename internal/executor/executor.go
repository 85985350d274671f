// Package executor runs a generated audit script against the database.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"migratectl/internal/auditlog"
	"migratectl/internal/db"
	"migratectl/internal/observability"

	"gorm.io/gorm"
)

// Result counts what one execution did.
type Result struct {
	Executed int
	Skipped  int
}

// Executor applies scripts through one gorm connection.
type Executor struct {
	db      *gorm.DB
	dialect auditlog.Dialect
	log     *slog.Logger
}

func New(db *gorm.DB, dialect auditlog.Dialect, log *slog.Logger) *Executor {
	return &Executor{db: db, dialect: dialect, log: log}
}

// ExecuteFile reads a generated file and executes it.
func (e *Executor) ExecuteFile(ctx context.Context, path string) (Result, error) {
	script, err := auditlog.ReadScript(path)
	if err != nil {
		return Result{}, err
	}
	res, err := e.Execute(ctx, script)
	if err != nil {
		return res, fmt.Errorf("execute %s: %w", path, err)
	}
	e.log.Info("script executed", "file", path, "executed", res.Executed, "skipped", res.Skipped)
	return res, nil
}

// Execute runs every statement in order inside one transaction. Tables and
// triggers that already exist are skipped, so a second run over the same
// script succeeds without changes. MySQL commits each DDL statement
// implicitly, so there a failure leaves earlier statements in place.
func (e *Executor) Execute(ctx context.Context, script auditlog.Script) (Result, error) {
	if script.Empty() {
		e.log.Info("script is empty, nothing to execute")
		return Result{}, nil
	}
	if script.Dialect != "" && script.Dialect != e.dialect.Name() {
		return Result{}, fmt.Errorf("script targets %s, connection is %s", script.Dialect, e.dialect.Name())
	}

	var res Result
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res = Result{}
		for _, st := range script.Statements {
			exists, err := e.exists(tx, st)
			if err != nil {
				return fmt.Errorf("check %s %s: %w", st.Kind, st.Name, err)
			}
			if exists {
				e.log.Debug("statement skipped, object exists", "kind", st.Kind, "name", st.Name)
				res.Skipped++
				continue
			}
			if err := tx.Exec(st.SQL).Error; err != nil {
				if db.IsAlreadyExists(err) {
					err = errors.Join(db.ErrAlreadyExists, err)
				}
				return fmt.Errorf("%s %s: %w", st.Kind, st.Name, err)
			}
			res.Executed++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	observability.StatementsExecuted.Add(int64(res.Executed))
	observability.StatementsSkipped.Add(int64(res.Skipped))
	return res, nil
}

// exists asks the catalog whether the object a statement creates is
// already there. Functions are CREATE OR REPLACE and always run.
func (e *Executor) exists(tx *gorm.DB, st auditlog.Statement) (bool, error) {
	switch st.Kind {
	case auditlog.KindTable:
		return tx.Migrator().HasTable(st.Name), nil
	case auditlog.KindTrigger:
		var n int64
		if err := tx.Raw(e.dialect.TriggerExistsQuery(), st.Name, st.Table).Scan(&n).Error; err != nil {
			return false, err
		}
		return n > 0, nil
	default:
		return false, nil
	}
}
