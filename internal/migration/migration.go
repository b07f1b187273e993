package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/shopfinder/internal/audit/domain"
	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	submissiondomain "github.com/smallbiznis/shopfinder/internal/submission/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists the tables owned by this service. Non-postgres databases
// (local sqlite, mysql) are created from these instead of the SQL files.
func Models() []any {
	return []any{
		&shopdomain.Location{},
		&shopdomain.Shop{},
		&shopdomain.ShopLocation{},
		&shopdomain.ShopCategory{},
		&branddomain.Brand{},
		&branddomain.BrandAction{},
		&submissiondomain.Submission{},
		&auditdomain.AuditLog{},
	}
}

// AutoMigrate creates the schema through gorm for dialects the SQL files do
// not target.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
