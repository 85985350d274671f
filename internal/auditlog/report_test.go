package auditlog

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(t *testing.T) Report {
	tables := []TableSchema{orderTable(), {Name: "customer", Columns: []Column{{"id", "INT"}}}}
	script, err := NewGenerator(MySQL{}, DefaultOptions()).Generate(tables)
	require.NoError(t, err)
	return BuildReport(tables, script, "/tmp/migrate_controller_20240309_070501.sql", time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC))
}

func TestBuildReport(t *testing.T) {
	r := sampleReport(t)

	assert.Equal(t, "mysql", r.Dialect)
	assert.Equal(t, "migrate_controller_20240309_070501.sql", r.File)
	assert.Equal(t, 8, r.Statements)
	require.Len(t, r.Rows, 2)

	assert.Equal(t, "customer", r.Rows[0].Table)
	assert.Equal(t, 4, r.Rows[0].LogColumns)
	assert.Equal(t, "order", r.Rows[1].Table)
	assert.Equal(t, "log_order", r.Rows[1].LogTable)
	assert.Equal(t, 5, r.Rows[1].LogColumns)
	assert.Equal(t, []string{"insert_order_trigger", "update_order_trigger", "delete_order_trigger"}, r.Rows[1].Triggers)
}

func TestExportCSV(t *testing.T) {
	out, err := ExportCSV(sampleReport(t))
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "dialect,mysql\n")
	assert.Contains(t, text, "table,log_table,log_columns,triggers\n")
	assert.Contains(t, text, "order,log_order,5,insert_order_trigger|update_order_trigger|delete_order_trigger\n")
	assert.Equal(t, 1, strings.Count(text, "customer,log_customer,4,"))
}

func TestExportPDF(t *testing.T) {
	out, err := ExportPDF(sampleReport(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}
