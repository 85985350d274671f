package auditlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectFor(t *testing.T) {
	for name, want := range map[string]string{
		"mysql":      "mysql",
		"MariaDB":    "mysql",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"sqlite3":    "sqlite",
		" sqlite ":   "sqlite",
	} {
		d, err := DialectFor(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, d.Name())
	}

	_, err := DialectFor("oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, "`a``b`", MySQL{}.Quote("a`b"))
	assert.Equal(t, `"a""b"`, Postgres{}.Quote(`a"b`))
	assert.Equal(t, `"a""b"`, SQLite{}.Quote(`a"b`))
}

func TestPostgres_TriggerUsesFunction(t *testing.T) {
	trg := NewTrigger(orderTable(), ActionInsert, DefaultOptions())
	stmts := Postgres{}.CreateTrigger(trg)
	require.Len(t, stmts, 2)

	fn := stmts[0]
	assert.Equal(t, KindFunction, fn.Kind)
	assert.Equal(t, "insert_order_trigger_fn", fn.Name)
	assert.Equal(t, "order", fn.Table)
	assert.Equal(t,
		"CREATE OR REPLACE FUNCTION \"insert_order_trigger_fn\"() RETURNS trigger AS $$\n"+
			"BEGIN\n"+
			"  INSERT INTO \"log_order\" (\"id\", \"total\", \"log_time\", \"done_by\")\n"+
			"  VALUES (NEW.\"id\", NEW.\"total\", NOW(), 1);\n"+
			"  RETURN NULL;\n"+
			"END;\n"+
			"$$ LANGUAGE plpgsql;",
		fn.SQL)

	tr := stmts[1]
	assert.Equal(t, KindTrigger, tr.Kind)
	assert.Equal(t, "insert_order_trigger", tr.Name)
	assert.Equal(t,
		"CREATE TRIGGER \"insert_order_trigger\" AFTER INSERT ON \"order\"\n"+
			"FOR EACH ROW EXECUTE FUNCTION \"insert_order_trigger_fn\"();",
		tr.SQL)
}

func TestPostgres_LogTable(t *testing.T) {
	st := Postgres{}.CreateLogTable(NewLogTable(orderTable()))
	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS \"log_order\" (\n"+
			"  \"id\" INT, \"total\" DECIMAL, \"log_id\" SERIAL PRIMARY KEY, \"log_time\" TIMESTAMP NOT NULL, \"done_by\" INTEGER\n"+
			");",
		st.SQL)
}

func TestSQLite_TriggerIsIdempotent(t *testing.T) {
	trg := NewTrigger(orderTable(), ActionDelete, DefaultOptions())
	stmts := SQLite{}.CreateTrigger(trg)
	require.Len(t, stmts, 1)
	assert.Equal(t,
		"CREATE TRIGGER IF NOT EXISTS \"delete_order_trigger\" AFTER DELETE ON \"order\"\n"+
			"FOR EACH ROW\n"+
			"BEGIN\n"+
			"  INSERT INTO \"log_order\" (\"id\", \"total\", \"log_time\", \"done_by\")\n"+
			"  VALUES (OLD.\"id\", OLD.\"total\", datetime('now'), 1);\n"+
			"END;",
		stmts[0].SQL)
}

func TestTriggerExistsQueries(t *testing.T) {
	for _, d := range []Dialect{MySQL{}, Postgres{}, SQLite{}} {
		q := d.TriggerExistsQuery()
		assert.Contains(t, q, "COUNT(*)", d.Name())
		assert.Equal(t, 2, countRune(q, '?'), d.Name())
	}
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}
