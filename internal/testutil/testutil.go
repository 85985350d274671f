// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"migratectl/internal/config"
	"migratectl/internal/db"

	"github.com/stretchr/testify/require"
)

// Logger returns a logger that only prints errors, like the handler suites
// used to.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// SQLiteConfig returns a config pointing at a fresh database file in a
// temporary directory. A file rather than :memory: keeps every pooled
// connection on the same schema.
func SQLiteConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		LogLevel:    "error",
		Env:         "test",
		DatabaseURL: filepath.Join(dir, "audit.db"),
		Dialect:     config.DialectSQLite,
		OutputDir:   dir,
		ActorID:     1,
		UpdateImage: "new",
	}
}

// OpenSQLite opens SQLiteConfig's database and closes it when the test ends.
func OpenSQLite(t *testing.T) (*db.DB, config.Config) {
	t.Helper()
	cfg := SQLiteConfig(t)
	dbx, err := db.Open(cfg, Logger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbx.Close() })
	return dbx, cfg
}

// PostgresURL returns TEST_DATABASE_URL or skips the test.
func PostgresURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	return url
}

// MySQLURL returns TEST_MYSQL_URL or skips the test.
func MySQLURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("TEST_MYSQL_URL")
	if url == "" {
		t.Skip("TEST_MYSQL_URL not set")
	}
	return url
}
