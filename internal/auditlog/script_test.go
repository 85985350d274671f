package auditlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScript_StringMarksEveryStatement(t *testing.T) {
	script, err := NewGenerator(MySQL{}, DefaultOptions()).Generate([]TableSchema{orderTable()})
	require.NoError(t, err)

	text := script.String()
	assert.True(t, strings.HasPrefix(text, "-- Audit log tables and triggers\n-- dialect: mysql\n"))
	assert.Contains(t, text, "\n-- statement: table log_order\nCREATE TABLE IF NOT EXISTS `log_order`")
	assert.Contains(t, text, "\n-- statement: trigger insert_order_trigger on order\nCREATE TRIGGER `insert_order_trigger`")
	assert.Equal(t, 4, strings.Count(text, "-- statement: "))
}

func TestParseScript_SplitsFunctionBodies(t *testing.T) {
	script, err := NewGenerator(Postgres{}, DefaultOptions()).Generate([]TableSchema{orderTable()})
	require.NoError(t, err)

	parsed, err := ParseScript(strings.NewReader(script.String()))
	require.NoError(t, err)

	assert.Equal(t, "postgres", parsed.Dialect)
	require.Len(t, parsed.Statements, 7)
	assert.Equal(t, script.Statements, parsed.Statements)
	assert.Contains(t, parsed.Statements[1].SQL, "RETURN NULL;\nEND;\n$$ LANGUAGE plpgsql;")
}

func TestParseScript_Empty(t *testing.T) {
	parsed, err := ParseScript(strings.NewReader(""))
	require.NoError(t, err)
	assert.True(t, parsed.Empty())
}

func TestParseScript_Errors(t *testing.T) {
	cases := map[string]string{
		"sql before marker": "CREATE TABLE x (id INT);\n",
		"unknown kind":      "-- statement: view v\nCREATE VIEW v AS SELECT 1;\n",
		"empty statement":   "-- statement: table log_x\n\n-- statement: table log_y\nCREATE TABLE y (id INT);\n",
	}
	for name, text := range cases {
		_, err := ParseScript(strings.NewReader(text))
		assert.Error(t, err, name)
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "migrate_controller_20240309_070501.sql", FileName(now))
}

func TestWriteAndReadScript(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)

	script, err := NewGenerator(SQLite{}, DefaultOptions()).Generate([]TableSchema{orderTable()})
	require.NoError(t, err)

	path, err := WriteScript(dir, now, script)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "migrate_controller_20240309_070501.sql"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, script.String(), string(raw))

	back, err := ReadScript(path)
	require.NoError(t, err)
	assert.Equal(t, script, back)
}

func TestWriteScript_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteScript(dir, time.Now(), Script{Dialect: "mysql"})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	back, err := ReadScript(path)
	require.NoError(t, err)
	assert.True(t, back.Empty())
}

func TestReadScript_Missing(t *testing.T) {
	_, err := ReadScript(filepath.Join(t.TempDir(), "nope.sql"))
	assert.Error(t, err)
}
