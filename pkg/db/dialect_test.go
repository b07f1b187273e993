package db

import (
	"testing"

	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectByType(t *testing.T) {
	server := config.Config{DBHost: "db.internal", DBName: "shopfinder", DBUser: "app", DBPassword: "secret"}

	for _, dbType := range []string{"postgres", "MySQL", "sqlite"} {
		cfg := server
		cfg.DBType = dbType
		dialect, err := Dialect(cfg)
		require.NoError(t, err, dbType)
		assert.NotNil(t, dialect)
	}

	_, err := Dialect(config.Config{DBType: "postgres", DBName: "shopfinder"})
	assert.ErrorContains(t, err, "DATABASE_HOST")

	_, err = Dialect(config.Config{DBType: "oracle", DBHost: "db", DBName: "x"})
	assert.ErrorContains(t, err, "unsupported oracle type")
}

func TestDSNDefaults(t *testing.T) {
	cfg := config.Config{DBHost: "db.internal", DBName: "shopfinder", DBUser: "app", DBPassword: "secret"}

	assert.Equal(t, "host=db.internal user=app password=secret dbname=shopfinder sslmode=disable TimeZone=UTC", postgresDSN(cfg))
	assert.Equal(t, "app:secret@tcp(db.internal:3306)/shopfinder?charset=utf8mb4&parseTime=True&loc=UTC", mysqlDSN(cfg))

	cfg.DBPort = "6543"
	cfg.DBSSLMode = "require"
	assert.Contains(t, postgresDSN(cfg), "sslmode=require")
	assert.Contains(t, postgresDSN(cfg), "port=6543")

	assert.Equal(t, defaultSQLiteFile, sqliteDSN(config.Config{}))
	assert.Equal(t, ":memory:", sqliteDSN(config.Config{DBName: ":memory:"}))
}
