package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrSchemaNotReady marks storage that is missing tables or columns the
// service depends on. It is retryable once migrations have run.
var ErrSchemaNotReady = errors.New("schema_not_ready")

const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
)

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	// MySQL (error code 1062)
	if strings.Contains(err.Error(), "Error 1062") {
		return true
	}

	// SQLite (error code 2067)
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return true
	}

	return false
}

// IsSchemaError reports whether err comes from a missing table or column.
// Postgres is matched on SQLSTATE; mysql and sqlite only expose messages.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSchemaNotReady) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable || pgErr.Code == pgUndefinedColumn
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"),
		strings.Contains(msg, "no such column"),
		strings.Contains(msg, "error 1146"),
		strings.Contains(msg, "error 1054"):
		return true
	default:
		return false
	}
}
