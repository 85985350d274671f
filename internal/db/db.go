package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"migratectl/internal/config"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB wraps gorm.DB with an underlying *sql.DB for pooling controls and Close.
type DB struct {
	Gorm    *gorm.DB
	SQL     *sql.DB
	Dialect string
	log     *slog.Logger
}

// Open connects to the configured database. It does not migrate anything;
// schema changes belong to the migrate package.
func Open(cfg config.Config, log *slog.Logger) (*DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	dialector, err := Dialector(cfg.Dialect, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	level := gormlogger.Warn
	if strings.EqualFold(cfg.LogLevel, "debug") {
		level = gormlogger.Info
	}
	g, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := g.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}

	// The command runs one statement at a time, a small pool is enough.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(60 * time.Minute)

	log.Debug("database opened", "dialect", cfg.Dialect)
	return &DB{Gorm: g, SQL: sqlDB, Dialect: cfg.Dialect, log: log}, nil
}

// Dialector builds the gorm dialector for a dialect name and connection string.
func Dialector(dialect, dsn string) (gorm.Dialector, error) {
	switch dialect {
	case config.DialectPostgres:
		return postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), nil
	case config.DialectMySQL:
		dsnCfg, err := mysqlConfig(dsn)
		if err != nil {
			return nil, err
		}
		return mysql.New(mysql.Config{
			DSN:       dsnCfg.FormatDSN(),
			DSNConfig: dsnCfg,
		}), nil
	case config.DialectSQLite:
		return sqlite.Open(sqlitePath(dsn)), nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// mysqlConfig parses a go-sql-driver DSN, tolerating a mysql:// prefix, and
// turns on parseTime so DATETIME columns scan into time.Time.
func mysqlConfig(dsn string) (*mysqldrv.Config, error) {
	c, err := mysqldrv.ParseDSN(strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	c.ParseTime = true
	return c, nil
}

func sqlitePath(dsn string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(dsn, prefix) {
			return strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// Close closes the underlying sql.DB.
func (d *DB) Close() error {
	if d == nil || d.SQL == nil {
		return nil
	}
	return d.SQL.Close()
}
