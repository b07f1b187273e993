package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/shopfinder/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSQLiteFile = "shopfinder.db"

// Dialect picks the gorm driver for cfg.DBType. Server databases need a host
// and a database name; sqlite falls back to a local file.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dbType := strings.ToLower(strings.TrimSpace(cfg.DBType))
	if dbType == "sqlite" {
		return sqlite.Open(sqliteDSN(cfg)), nil
	}

	if strings.TrimSpace(cfg.DBHost) == "" || strings.TrimSpace(cfg.DBName) == "" {
		return nil, fmt.Errorf("%s database requires DATABASE_HOST and DATABASE_NAME", dbType)
	}
	switch dbType {
	case "postgres":
		return postgres.Open(postgresDSN(cfg)), nil
	case "mysql":
		return mysql.Open(mysqlDSN(cfg)), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}

func postgresDSN(cfg config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts := []string{
		"host=" + cfg.DBHost,
		"user=" + cfg.DBUser,
		"password=" + cfg.DBPassword,
		"dbname=" + cfg.DBName,
		"sslmode=" + sslMode,
		"TimeZone=UTC",
	}
	if cfg.DBPort != "" {
		parts = append(parts, "port="+cfg.DBPort)
	}
	return strings.Join(parts, " ")
}

func mysqlDSN(cfg config.Config) string {
	port := cfg.DBPort
	if port == "" {
		port = "3306"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, port, cfg.DBName)
}

func sqliteDSN(cfg config.Config) string {
	if name := strings.TrimSpace(cfg.DBName); name != "" {
		return name
	}
	return defaultSQLiteFile
}
