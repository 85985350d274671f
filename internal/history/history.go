// Package history records every audit run in audit_migration_runs.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one execution of a generated script.
type Run struct {
	ID         string    `gorm:"column:id;type:varchar(36);primaryKey"`
	ScriptFile string    `gorm:"column:script_file;type:varchar(512);not null"`
	Dialect    string    `gorm:"column:dialect;type:varchar(16);not null"`
	Executed   int       `gorm:"column:executed;not null;default:0"`
	Skipped    int       `gorm:"column:skipped;not null;default:0"`
	Status     string    `gorm:"column:status;type:varchar(16);not null"`
	Error      string    `gorm:"column:error;type:text"`
	StartedAt  time.Time `gorm:"column:started_at;not null"`
	FinishedAt time.Time `gorm:"column:finished_at;not null"`
}

func (Run) TableName() string { return "audit_migration_runs" }

// BeforeCreate hook to ensure UUID primary key is set.
func (r *Run) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Store reads and writes run records.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate ensures the history table exists. It is kept out of the model
// registry so that runs are never audited themselves.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Run{})
}

// Record inserts r and fills its ID.
func (s *Store) Record(ctx context.Context, r *Run) error {
	if r.ScriptFile == "" || r.Dialect == "" {
		return fmt.Errorf("run record needs a script file and a dialect")
	}
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Latest returns up to limit runs, newest first.
func (s *Store) Latest(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	var runs []Run
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}
