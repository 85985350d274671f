package auditlog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrUnsupportedDialect is returned by DialectFor for unknown names.
var ErrUnsupportedDialect = errors.New("unsupported dialect")

// Dialect renders log tables and triggers for one database.
type Dialect interface {
	// Name is the dialect name used in configuration and script headers.
	Name() string

	// Quote quotes an identifier.
	Quote(ident string) string

	// AuditColumns returns log_id, log_time and done_by with native types.
	AuditColumns() []Column

	// Now is the SQL expression for the current timestamp.
	Now() string

	// CreateLogTable renders the CREATE TABLE of a log table.
	CreateLogTable(lt LogTable) Statement

	// CreateTrigger renders every statement needed to install t.
	CreateTrigger(t Trigger) []Statement

	// TriggerExistsQuery counts triggers by name and table. It takes the
	// trigger name and the table name as its two arguments.
	TriggerExistsQuery() string

	// MaxIdentifierLength is the longest name the server accepts unchanged,
	// in bytes. Zero means no limit.
	MaxIdentifierLength() int
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mysql", "mariadb":
		return MySQL{}, nil
	case "postgres", "postgresql":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
}

// MySQL targets MySQL 5.7+ and MariaDB. Triggers are a single INSERT so no
// DELIMITER handling is needed.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Quote(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (MySQL) AuditColumns() []Column {
	return []Column{
		{Name: ColumnLogID, Type: "INT PRIMARY KEY AUTO_INCREMENT"},
		{Name: ColumnLogTime, Type: "DATETIME NOT NULL"},
		{Name: ColumnDoneBy, Type: "INT"},
	}
}

func (MySQL) Now() string { return "NOW()" }

func (MySQL) MaxIdentifierLength() int { return 64 }

func (d MySQL) CreateLogTable(lt LogTable) Statement {
	return Statement{Kind: KindTable, Name: lt.Name, SQL: renderCreateLogTable(d, lt)}
}

func (d MySQL) CreateTrigger(t Trigger) []Statement {
	cols, vals := insertColumns(d, t)
	sql := fmt.Sprintf("CREATE TRIGGER %s AFTER %s ON %s\nFOR EACH ROW\nINSERT INTO %s (%s)\nVALUES (%s);",
		d.Quote(t.Name), t.Action, d.Quote(t.Table), d.Quote(t.LogTable), cols, vals)
	return []Statement{{Kind: KindTrigger, Name: t.Name, Table: t.Table, SQL: sql}}
}

func (MySQL) TriggerExistsQuery() string {
	return "SELECT COUNT(*) FROM information_schema.triggers WHERE trigger_schema = DATABASE() AND trigger_name = ? AND event_object_table = ?"
}

// Postgres installs each trigger as a plpgsql function plus a CREATE TRIGGER.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Quote(ident string) string { return pq.QuoteIdentifier(ident) }

func (Postgres) AuditColumns() []Column {
	return []Column{
		{Name: ColumnLogID, Type: "SERIAL PRIMARY KEY"},
		{Name: ColumnLogTime, Type: "TIMESTAMP NOT NULL"},
		{Name: ColumnDoneBy, Type: "INTEGER"},
	}
}

func (Postgres) Now() string { return "NOW()" }

// MaxIdentifierLength is NAMEDATALEN-1. Longer names are truncated silently,
// which would break the trigger lookup on rerun.
func (Postgres) MaxIdentifierLength() int { return 63 }

func (d Postgres) CreateLogTable(lt LogTable) Statement {
	return Statement{Kind: KindTable, Name: lt.Name, SQL: renderCreateLogTable(d, lt)}
}

func (d Postgres) CreateTrigger(t Trigger) []Statement {
	cols, vals := insertColumns(d, t)
	fn := fmt.Sprintf("CREATE OR REPLACE FUNCTION %s() RETURNS trigger AS $$\nBEGIN\n  INSERT INTO %s (%s)\n  VALUES (%s);\n  RETURN NULL;\nEND;\n$$ LANGUAGE plpgsql;",
		d.Quote(t.FunctionName()), d.Quote(t.LogTable), cols, vals)
	trg := fmt.Sprintf("CREATE TRIGGER %s AFTER %s ON %s\nFOR EACH ROW EXECUTE FUNCTION %s();",
		d.Quote(t.Name), t.Action, d.Quote(t.Table), d.Quote(t.FunctionName()))
	return []Statement{
		{Kind: KindFunction, Name: t.FunctionName(), Table: t.Table, SQL: fn},
		{Kind: KindTrigger, Name: t.Name, Table: t.Table, SQL: trg},
	}
}

func (Postgres) TriggerExistsQuery() string {
	return "SELECT COUNT(*) FROM pg_trigger t JOIN pg_class c ON c.oid = t.tgrelid WHERE NOT t.tgisinternal AND t.tgname = ? AND c.relname = ? AND pg_table_is_visible(c.oid)"
}

// SQLite supports IF NOT EXISTS on triggers, so its scripts are idempotent
// on their own.
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func (SQLite) AuditColumns() []Column {
	return []Column{
		{Name: ColumnLogID, Type: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: ColumnLogTime, Type: "DATETIME NOT NULL"},
		{Name: ColumnDoneBy, Type: "INTEGER"},
	}
}

func (SQLite) Now() string { return "datetime('now')" }

func (SQLite) MaxIdentifierLength() int { return 0 }

func (d SQLite) CreateLogTable(lt LogTable) Statement {
	return Statement{Kind: KindTable, Name: lt.Name, SQL: renderCreateLogTable(d, lt)}
}

func (d SQLite) CreateTrigger(t Trigger) []Statement {
	cols, vals := insertColumns(d, t)
	sql := fmt.Sprintf("CREATE TRIGGER IF NOT EXISTS %s AFTER %s ON %s\nFOR EACH ROW\nBEGIN\n  INSERT INTO %s (%s)\n  VALUES (%s);\nEND;",
		d.Quote(t.Name), t.Action, d.Quote(t.Table), d.Quote(t.LogTable), cols, vals)
	return []Statement{{Kind: KindTrigger, Name: t.Name, Table: t.Table, SQL: sql}}
}

func (SQLite) TriggerExistsQuery() string {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'trigger' AND name = ? AND tbl_name = ?"
}
