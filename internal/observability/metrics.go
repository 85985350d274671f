package observability

import (
	"expvar"
	"log/slog"
)

var (
	LogTablesGenerated   = expvar.NewInt("log_tables_generated")
	TriggersGenerated    = expvar.NewInt("triggers_generated")
	StatementsExecuted   = expvar.NewInt("statements_executed")
	StatementsSkipped    = expvar.NewInt("statements_skipped")
	SchemaChangesPlanned = expvar.NewInt("schema_changes_planned")
)

// LogCounters writes the current counter values as one log record.
func LogCounters(log *slog.Logger) {
	log.Info("run counters",
		"schema_changes", SchemaChangesPlanned.Value(),
		"log_tables", LogTablesGenerated.Value(),
		"triggers", TriggersGenerated.Value(),
		"executed", StatementsExecuted.Value(),
		"skipped", StatementsSkipped.Value(),
	)
}
