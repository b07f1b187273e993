package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertLocation(ctx context.Context, db *gorm.DB, location *Location) error
	InsertShop(ctx context.Context, db *gorm.DB, shop *Shop) error
	InsertShopLocation(ctx context.Context, db *gorm.DB, link *ShopLocation) error
	InsertShopCategories(ctx context.Context, db *gorm.DB, shopID snowflake.ID, categoryIDs []int64, at time.Time) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Shop, error)
	CountActiveByBrand(ctx context.Context, db *gorm.DB, brandKey string) (int64, error)
	CountCreatedSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error)
	HideByBrand(ctx context.Context, db *gorm.DB, brandKey, reason, actorID string, at time.Time) (int64, error)
	RestoreHiddenByBrand(ctx context.Context, db *gorm.DB, brandKey string, at time.Time) (int64, error)
	DeleteShopLinks(ctx context.Context, db *gorm.DB, shopID snowflake.ID) error
	DeleteShop(ctx context.Context, db *gorm.DB, shopID snowflake.ID) error
	DeleteLocation(ctx context.Context, db *gorm.DB, locationID snowflake.ID) error
}
