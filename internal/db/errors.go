package db

import (
	"errors"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// ErrAlreadyExists marks a statement that failed because the table, trigger
// or function it creates is already present.
var ErrAlreadyExists = errors.New("object already exists")

// MySQL and PostgreSQL error codes for duplicate objects.
const (
	mysqlTableExists   = 1050
	mysqlTriggerExists = 1359

	pgDuplicateTable    = "42P07"
	pgDuplicateObject   = "42710"
	pgDuplicateFunction = "42723"
)

// IsAlreadyExists reports whether err is a driver error for a duplicate
// object.
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAlreadyExists) {
		return true
	}

	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlTableExists || myErr.Number == mysqlTriggerExists
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgDuplicateTable, pgDuplicateObject, pgDuplicateFunction:
			return true
		}
		return false
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return strings.Contains(liteErr.Error(), "already exists")
	}

	return false
}
