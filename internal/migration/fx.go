package migration

import (
	"time"

	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/smallbiznis/shopfinder/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// schemaRecheckInterval bounds how often a failing schema check is repeated.
const schemaRecheckInterval = 30 * time.Second

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		return Apply(conn, cfg, log)
	}),
	fx.Provide(NewSchemaGate),
)

// Apply migrates the configured database. Postgres runs the embedded SQL
// files; other dialects fall back to gorm AutoMigrate.
func Apply(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
	if cfg.DBType != "postgres" {
		log.Info("auto migrating schema", zap.String("db_type", cfg.DBType))
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// NewSchemaGate checks the schema once at startup and logs what is missing.
// Each request path then waits only on the tables it uses.
func NewSchemaGate(conn *gorm.DB, log *zap.Logger) *db.SchemaGate {
	gate := db.NewSchemaGate(conn, Requirements(), schemaRecheckInterval)
	if err := gate.Ready(); err != nil {
		log.Warn("database schema incomplete", zap.Error(err))
	}
	return gate
}
