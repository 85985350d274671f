package auditlog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidIdentifier is returned when a table or column name cannot be
// used safely in generated DDL.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Column is one column of a source table: its name and the database-native
// type string.
type Column struct {
	Name string
	Type string
}

// TableSchema describes a table whose writes are audited.
type TableSchema struct {
	Name    string
	Columns []Column
}

// Validate checks the table and column names and rejects tables without
// columns or with a column that collides with an audit column.
func (t TableSchema) Validate() error {
	if err := validateIdentifier(t.Name, "table"); err != nil {
		return err
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if err := validateIdentifier(c.Name, "column of "+t.Name); err != nil {
			return err
		}
		if strings.TrimSpace(c.Type) == "" {
			return fmt.Errorf("column %s.%s has no type", t.Name, c.Name)
		}
		key := strings.ToLower(c.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("column %s.%s is declared twice", t.Name, c.Name)
		}
		seen[key] = struct{}{}
		if isAuditColumn(key) {
			return fmt.Errorf("column %s.%s collides with an audit column", t.Name, c.Name)
		}
	}
	return nil
}

func validateIdentifier(name, what string) error {
	if name == "" {
		return fmt.Errorf("%w: %s name is empty", ErrInvalidIdentifier, what)
	}
	if !identifierRE.MatchString(name) {
		return fmt.Errorf("%w: %s %q must start with a letter or underscore and contain only letters, digits and underscores", ErrInvalidIdentifier, what, name)
	}
	return nil
}

// Action is the row-level event a trigger fires on.
type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Actions lists the audited events in generation order.
var Actions = []Action{ActionInsert, ActionUpdate, ActionDelete}

// RowImage is the trigger keyword naming the row copied into the log.
type RowImage string

const (
	ImageNew RowImage = "NEW"
	ImageOld RowImage = "OLD"
)

// ParseRowImage accepts "new" or "old" in any case.
func ParseRowImage(s string) (RowImage, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ImageNew):
		return ImageNew, nil
	case string(ImageOld):
		return ImageOld, nil
	default:
		return "", fmt.Errorf("unknown row image %q", s)
	}
}

// Options tune the generated triggers.
type Options struct {
	// ActorID is written to done_by by every trigger.
	ActorID int64

	// UpdateImage selects the row logged by UPDATE triggers. INSERT always
	// logs NEW and DELETE always logs OLD. Zero value means NEW.
	UpdateImage RowImage
}

// DefaultOptions logs the post-update row and attributes changes to actor 1.
func DefaultOptions() Options {
	return Options{ActorID: 1, UpdateImage: ImageNew}
}

// ImageFor returns the row image logged for the action.
func (o Options) ImageFor(a Action) RowImage {
	switch a {
	case ActionInsert:
		return ImageNew
	case ActionDelete:
		return ImageOld
	default:
		if o.UpdateImage == "" {
			return ImageNew
		}
		return o.UpdateImage
	}
}
