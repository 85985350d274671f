package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Supported database dialects.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

type Config struct {
	LogLevel string
	Env      string

	// Database
	DatabaseURL string
	Dialect     string

	// Audit log generation
	OutputDir   string
	ActorID     int64
	UpdateImage string
}

func FromEnv() (Config, error) {
	cfg := Config{
		LogLevel: getenv("LOG_LEVEL", "info"),
		Env:      getenv("APP_ENV", "development"),

		DatabaseURL: getenv("DATABASE_URL", ""),
		Dialect:     strings.ToLower(strings.TrimSpace(getenv("DB_DIALECT", ""))),

		OutputDir:   getenv("OUTPUT_DIR", "."),
		ActorID:     parseInt64(getenv("AUDIT_ACTOR_ID", "1"), 1),
		UpdateImage: strings.ToLower(strings.TrimSpace(getenv("AUDIT_UPDATE_IMAGE", "new"))),
	}

	if cfg.Dialect == "" {
		cfg.Dialect = InferDialect(cfg.DatabaseURL)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that cannot fall back to a default.
// DATABASE_URL is checked by the commands that open a connection.
func (c Config) Validate() error {
	switch c.Dialect {
	case DialectPostgres, DialectMySQL, DialectSQLite:
	default:
		return fmt.Errorf("unsupported DB_DIALECT %q (want postgres, mysql or sqlite)", c.Dialect)
	}
	switch c.UpdateImage {
	case "new", "old":
	default:
		return fmt.Errorf("unsupported AUDIT_UPDATE_IMAGE %q (want new or old)", c.UpdateImage)
	}
	return nil
}

// InferDialect guesses the dialect from the shape of a connection string.
// Anything that is neither a postgres URL nor a sqlite file is treated as a
// go-sql-driver/mysql DSN.
func InferDialect(dsn string) string {
	s := strings.ToLower(strings.TrimSpace(dsn))
	switch {
	case strings.HasPrefix(s, "postgres://"), strings.HasPrefix(s, "postgresql://"),
		strings.Contains(s, "host=") && strings.Contains(s, "dbname="):
		return DialectPostgres
	case strings.HasPrefix(s, "sqlite://"), strings.HasPrefix(s, "sqlite3://"),
		strings.HasPrefix(s, "file:"), s == ":memory:",
		strings.HasSuffix(s, ".db"), strings.HasSuffix(s, ".sqlite"), strings.HasSuffix(s, ".sqlite3"):
		return DialectSQLite
	default:
		return DialectMySQL
	}
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok {
		return v
	}
	return def
}

func parseInt64(s string, def int64) int64 {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return def
}
