package auditlog

import (
	"fmt"
	"strings"
)

// Audit column names appended to every log table, in this order.
const (
	ColumnLogID   = "log_id"
	ColumnLogTime = "log_time"
	ColumnDoneBy  = "done_by"

	auditColumnCount = 3
)

func isAuditColumn(lower string) bool {
	return lower == ColumnLogID || lower == ColumnLogTime || lower == ColumnDoneBy
}

// LogTableName returns the shadow table name for a source table.
func LogTableName(table string) string {
	return "log_" + table
}

// TriggerName returns the name of the trigger auditing action on table.
func TriggerName(a Action, table string) string {
	return strings.ToLower(string(a)) + "_" + table + "_trigger"
}

// StatementKind classifies a generated statement by the object it creates.
type StatementKind string

const (
	KindTable    StatementKind = "table"
	KindFunction StatementKind = "function"
	KindTrigger  StatementKind = "trigger"
)

func (k StatementKind) valid() bool {
	return k == KindTable || k == KindFunction || k == KindTrigger
}

// Statement is one DDL statement together with the object it creates.
// Table is the audited source table for triggers and functions.
type Statement struct {
	Kind  StatementKind
	Name  string
	Table string
	SQL   string
}

// LogTable is the CREATE TABLE for one shadow table.
type LogTable struct {
	Name    string
	Columns []Column
}

// NewLogTable derives the log table of a source table.
func NewLogTable(t TableSchema) LogTable {
	cols := make([]Column, len(t.Columns))
	copy(cols, t.Columns)
	return LogTable{Name: LogTableName(t.Name), Columns: cols}
}

// Trigger is the CREATE TRIGGER copying one row image into a log table.
type Trigger struct {
	Name     string
	Action   Action
	Table    string
	LogTable string
	Image    RowImage
	Columns  []string
	ActorID  int64
}

// NewTrigger derives the trigger auditing action on t.
func NewTrigger(t TableSchema, a Action, opts Options) Trigger {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}
	return Trigger{
		Name:     TriggerName(a, t.Name),
		Action:   a,
		Table:    t.Name,
		LogTable: LogTableName(t.Name),
		Image:    opts.ImageFor(a),
		Columns:  cols,
		ActorID:  opts.ActorID,
	}
}

// FunctionName is the name of the trigger function on dialects that need one.
func (t Trigger) FunctionName() string {
	return t.Name + "_fn"
}

// renderCreateLogTable is shared by all dialects; only quoting and the audit
// column types differ.
func renderCreateLogTable(d Dialect, lt LogTable) string {
	all := append(append([]Column{}, lt.Columns...), d.AuditColumns()...)
	defs := make([]string, len(all))
	for i, c := range all {
		defs[i] = d.Quote(c.Name) + " " + c.Type
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", d.Quote(lt.Name), strings.Join(defs, ", "))
}

// insertColumns returns the quoted target column list and the VALUES list of
// a trigger body.
func insertColumns(d Dialect, t Trigger) (string, string) {
	cols := make([]string, 0, len(t.Columns)+2)
	vals := make([]string, 0, len(t.Columns)+2)
	for _, c := range t.Columns {
		cols = append(cols, d.Quote(c))
		vals = append(vals, string(t.Image)+"."+d.Quote(c))
	}
	cols = append(cols, d.Quote(ColumnLogTime), d.Quote(ColumnDoneBy))
	vals = append(vals, d.Now(), fmt.Sprintf("%d", t.ActorID))
	return strings.Join(cols, ", "), strings.Join(vals, ", ")
}
