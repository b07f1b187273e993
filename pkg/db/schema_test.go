package db

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type schemaProbe struct {
	ID   int64
	Name string
}

func (schemaProbe) TableName() string { return "schema_probes" }

func TestCheckSchemaReportsMissing(t *testing.T) {
	conn, err := NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&schemaProbe{}))

	err = CheckSchema(conn, []Requirement{
		{Table: "schema_probes", Columns: []string{"id", "name", "status"}},
		{Table: "missing_table"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaNotReady)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, []string{"schema_probes.status", "missing_table"}, schemaErr.Missing)

	assert.NoError(t, CheckSchema(conn, []Requirement{{Table: "schema_probes", Columns: []string{"name"}}}))
}

func TestSchemaGateRechecksAfterInterval(t *testing.T) {
	conn, err := NewTest()
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gate := NewSchemaGate(conn, []Requirement{{Table: "schema_probes"}}, time.Minute)
	gate.now = func() time.Time { return now }

	require.ErrorIs(t, gate.Ready(), ErrSchemaNotReady)

	require.NoError(t, conn.AutoMigrate(&schemaProbe{}))
	assert.ErrorIs(t, gate.Ready(), ErrSchemaNotReady, "cached until the interval passes")

	now = now.Add(2 * time.Minute)
	assert.NoError(t, gate.Ready())

	require.NoError(t, conn.Migrator().DropTable(&schemaProbe{}))
	assert.NoError(t, gate.Ready(), "a passing check is kept")
}

func TestSchemaGateChecksOnlyNamedTables(t *testing.T) {
	conn, err := NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&schemaProbe{}))

	gate := NewSchemaGate(conn, []Requirement{
		{Table: "schema_probes", Columns: []string{"name"}},
		{Table: "pending_items"},
	}, time.Minute)

	assert.NoError(t, gate.Ready("schema_probes"))
	assert.NoError(t, gate.Ready("schema_probes", "not_required"))

	err = gate.Ready("schema_probes", "pending_items")
	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"pending_items"}, schemaErr.Missing)

	err = gate.Ready()
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, []string{"pending_items"}, schemaErr.Missing)
}

func TestNilSchemaGateIsReady(t *testing.T) {
	var gate *SchemaGate
	assert.NoError(t, gate.Ready())
}

func TestIsSchemaError(t *testing.T) {
	assert.True(t, IsSchemaError(&pgconn.PgError{Code: "42P01"}))
	assert.True(t, IsSchemaError(&pgconn.PgError{Code: "42703"}))
	assert.False(t, IsSchemaError(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsSchemaError(errors.New("SQL logic error: no such table: shop_submissions (1)")))
	assert.True(t, IsSchemaError(errors.New("Error 1146 (42S02): Table 'x.y' doesn't exist")))
	assert.True(t, IsSchemaError(&SchemaError{Missing: []string{"brands"}}))
	assert.False(t, IsSchemaError(errors.New("connection refused")))
	assert.False(t, IsSchemaError(nil))
}

func TestIsDuplicateKeyErr(t *testing.T) {
	assert.True(t, IsDuplicateKeyErr(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: shops.slug")))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))
}
