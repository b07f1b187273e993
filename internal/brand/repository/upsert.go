package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// upsertSyntax hides the two conflict dialects: postgres and sqlite share
// ON CONFLICT with the excluded pseudo-table, mysql uses ON DUPLICATE KEY.
type upsertSyntax struct {
	mysql bool
	table string
}

func syntaxFor(db *gorm.DB, table string) upsertSyntax {
	return upsertSyntax{mysql: db.Dialector.Name() == "mysql", table: table}
}

// incoming references the value proposed by the INSERT.
func (u upsertSyntax) incoming(column string) string {
	if u.mysql {
		return fmt.Sprintf("VALUES(%s)", column)
	}
	return "excluded." + column
}

// stored references the row already present.
func (u upsertSyntax) stored(column string) string {
	if u.mysql {
		return column
	}
	return u.table + "." + column
}

func (u upsertSyntax) onConflict(key string, assignments []string) string {
	if u.mysql {
		return "ON DUPLICATE KEY UPDATE " + strings.Join(assignments, ", ")
	}
	return fmt.Sprintf("ON CONFLICT (%s) DO UPDATE SET %s", key, strings.Join(assignments, ", "))
}
