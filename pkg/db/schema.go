package db

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
)

// Requirement names a table and the columns a component reads or writes.
type Requirement struct {
	Table   string
	Columns []string
}

// SchemaError lists what CheckSchema could not find. It unwraps to
// ErrSchemaNotReady.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema not ready: missing %s", strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchemaNotReady }

// CheckSchema verifies every requirement once, typically at startup, so that
// "not migrated yet" surfaces as a typed condition instead of per-query
// failures.
func CheckSchema(conn *gorm.DB, reqs []Requirement) error {
	if conn == nil {
		return &SchemaError{Missing: []string{"database"}}
	}
	var missing []string
	for _, req := range reqs {
		missing = append(missing, missingFor(conn, req)...)
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}

func missingFor(conn *gorm.DB, req Requirement) []string {
	if conn == nil {
		return []string{req.Table}
	}
	migrator := conn.Migrator()
	if !migrator.HasTable(req.Table) {
		return []string{req.Table}
	}
	var missing []string
	for _, column := range req.Columns {
		if !migrator.HasColumn(req.Table, column) {
			missing = append(missing, req.Table+"."+column)
		}
	}
	return missing
}

// SchemaGate remembers the outcome of CheckSchema per table. A passing table
// is kept for the life of the process; a failing one is repeated at most once
// per interval so the service recovers after migrations run.
type SchemaGate struct {
	conn     *gorm.DB
	reqs     []Requirement
	interval time.Duration
	now      func() time.Time

	mu     sync.Mutex
	checks map[string]*tableCheck
}

type tableCheck struct {
	ready     bool
	missing   []string
	checkedAt time.Time
}

func NewSchemaGate(conn *gorm.DB, reqs []Requirement, interval time.Duration) *SchemaGate {
	return &SchemaGate{
		conn:     conn,
		reqs:     reqs,
		interval: interval,
		now:      time.Now,
		checks:   make(map[string]*tableCheck, len(reqs)),
	}
}

// Ready checks the requirements of the named tables, or of every table when
// none are named. Names without a requirement are ignored. A nil gate is
// always ready.
func (g *SchemaGate) Ready(tables ...string) error {
	if g == nil {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	var missing []string
	for _, req := range g.reqs {
		if len(tables) > 0 && !slices.Contains(tables, req.Table) {
			continue
		}
		check, ok := g.checks[req.Table]
		if !ok {
			check = &tableCheck{}
			g.checks[req.Table] = check
		}
		if check.ready {
			continue
		}
		if !ok || now.Sub(check.checkedAt) >= g.interval {
			check.missing = missingFor(g.conn, req)
			check.checkedAt = now
			check.ready = len(check.missing) == 0
		}
		missing = append(missing, check.missing...)
	}
	if len(missing) > 0 {
		return &SchemaError{Missing: missing}
	}
	return nil
}
