package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopfinder/internal/shop/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertLocation(ctx context.Context, db *gorm.DB, location *domain.Location) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO locations (
			id, street, city, state, postal_code, country, latitude, longitude, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		location.ID,
		location.Street,
		location.City,
		location.State,
		location.PostalCode,
		location.Country,
		location.Latitude,
		location.Longitude,
		location.CreatedAt,
	).Error
}

func (r *repo) InsertShop(ctx context.Context, db *gorm.DB, shop *domain.Shop) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO shops (
			id, name, slug, description, website_url, created_by_user_id, location_id, brand_key,
			content_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		shop.ID,
		shop.Name,
		shop.Slug,
		shop.Description,
		shop.WebsiteURL,
		shop.CreatedByUserID,
		shop.LocationID,
		shop.BrandKey,
		shop.ContentStatus,
		shop.CreatedAt,
		shop.UpdatedAt,
	).Error
}

func (r *repo) InsertShopLocation(ctx context.Context, db *gorm.DB, link *domain.ShopLocation) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO shop_locations (shop_id, location_id, created_at) VALUES (?, ?, ?)`,
		link.ShopID,
		link.LocationID,
		link.CreatedAt,
	).Error
}

func (r *repo) InsertShopCategories(ctx context.Context, db *gorm.DB, shopID snowflake.ID, categoryIDs []int64, at time.Time) error {
	if len(categoryIDs) == 0 {
		return nil
	}
	rows := make([]domain.ShopCategory, 0, len(categoryIDs))
	for _, categoryID := range categoryIDs {
		rows = append(rows, domain.ShopCategory{ShopID: shopID, CategoryID: categoryID, CreatedAt: at})
	}
	return db.WithContext(ctx).Create(&rows).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Shop, error) {
	var shop domain.Shop
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, description, website_url, created_by_user_id, location_id, brand_key,
			content_status, hidden_source, hidden_reason, hidden_at, hidden_by_user_id, created_at, updated_at
		 FROM shops WHERE id = ?`,
		id,
	).Scan(&shop).Error
	if err != nil {
		return nil, err
	}
	if shop.ID == 0 {
		return nil, nil
	}
	return &shop, nil
}

func (r *repo) CountActiveByBrand(ctx context.Context, db *gorm.DB, brandKey string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM shops WHERE brand_key = ? AND content_status = ?`,
		brandKey,
		domain.ContentStatusActive,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CountCreatedSince(ctx context.Context, db *gorm.DB, userID string, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM shops WHERE created_by_user_id = ? AND created_at >= ?`,
		userID,
		since,
	).Scan(&count).Error
	return count, err
}

func (r *repo) HideByBrand(ctx context.Context, db *gorm.DB, brandKey, reason, actorID string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE shops
		 SET content_status = ?, hidden_source = ?, hidden_reason = ?, hidden_at = ?, hidden_by_user_id = ?, updated_at = ?
		 WHERE brand_key = ? AND content_status = ?`,
		domain.ContentStatusHidden,
		domain.HiddenSourceBrand,
		reason,
		at,
		actorID,
		at,
		brandKey,
		domain.ContentStatusActive,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) RestoreHiddenByBrand(ctx context.Context, db *gorm.DB, brandKey string, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE shops
		 SET content_status = ?, hidden_source = NULL, hidden_reason = NULL, hidden_at = NULL, hidden_by_user_id = NULL, updated_at = ?
		 WHERE brand_key = ? AND content_status = ? AND hidden_source = ?`,
		domain.ContentStatusActive,
		at,
		brandKey,
		domain.ContentStatusHidden,
		domain.HiddenSourceBrand,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) DeleteShopLinks(ctx context.Context, db *gorm.DB, shopID snowflake.ID) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM shop_categories WHERE shop_id = ?`, shopID).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Exec(`DELETE FROM shop_locations WHERE shop_id = ?`, shopID).Error
}

func (r *repo) DeleteShop(ctx context.Context, db *gorm.DB, shopID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM shops WHERE id = ?`, shopID).Error
}

func (r *repo) DeleteLocation(ctx context.Context, db *gorm.DB, locationID snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM locations WHERE id = ?`, locationID).Error
}
