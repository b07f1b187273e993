package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindByKey(ctx context.Context, db *gorm.DB, brandKey string) (*Brand, error)
	// UpsertTelemetry inserts or merges a scoring event. An existing status
	// is only replaced when record.Status is not unknown, and a nil known
	// location count keeps the stored one.
	UpsertTelemetry(ctx context.Context, db *gorm.DB, record *Brand) error
	UpsertStatus(ctx context.Context, db *gorm.DB, record *Brand) error
	// UpsertApproved sets allowed unless the stored status is blocked.
	UpsertApproved(ctx context.Context, db *gorm.DB, record *Brand) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Brand, error)
	InsertAction(ctx context.Context, db *gorm.DB, action *BrandAction) error
	ListActions(ctx context.Context, db *gorm.DB, brandKey string, limit int) ([]BrandAction, error)
}
