package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ContentStatus string

const (
	ContentStatusActive ContentStatus = "active"
	ContentStatusHidden ContentStatus = "hidden"
)

// HiddenSource records why a shop was hidden. Brand restores only touch rows
// hidden with HiddenSourceBrand.
type HiddenSource string

const (
	HiddenSourceBrand  HiddenSource = "brand"
	HiddenSourceAdmin  HiddenSource = "admin"
	HiddenSourceReport HiddenSource = "report"
)

type Shop struct {
	ID              snowflake.ID  `gorm:"primaryKey;autoIncrement:false"`
	Name            string        `gorm:"type:text;not null"`
	Slug            string        `gorm:"type:text;not null;uniqueIndex:ux_shops_slug"`
	Description     *string       `gorm:"type:text"`
	WebsiteURL      *string       `gorm:"column:website_url;type:text"`
	CreatedByUserID string        `gorm:"column:created_by_user_id;type:text;not null;index:ix_shops_creator_created,priority:1"`
	LocationID      snowflake.ID  `gorm:"column:location_id;not null"`
	BrandKey        *string       `gorm:"column:brand_key;type:text;index:ix_shops_brand_status,priority:1"`
	ContentStatus   ContentStatus `gorm:"column:content_status;type:text;not null;default:active;index:ix_shops_brand_status,priority:2"`
	HiddenSource    *HiddenSource `gorm:"column:hidden_source;type:text"`
	HiddenReason    *string       `gorm:"column:hidden_reason;type:text"`
	HiddenAt        *time.Time    `gorm:"column:hidden_at"`
	HiddenByUserID  *string       `gorm:"column:hidden_by_user_id;type:text"`
	CreatedAt       time.Time     `gorm:"not null;index:ix_shops_creator_created,priority:2"`
	UpdatedAt       time.Time     `gorm:"not null"`
}

func (Shop) TableName() string { return "shops" }

type Location struct {
	ID         snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Street     string       `gorm:"type:text;not null"`
	City       string       `gorm:"type:text;not null"`
	State      *string      `gorm:"type:text"`
	PostalCode *string      `gorm:"column:postal_code;type:text"`
	Country    string       `gorm:"type:text;not null"`
	Latitude   *float64
	Longitude  *float64
	CreatedAt  time.Time `gorm:"not null"`
}

func (Location) TableName() string { return "locations" }

type ShopLocation struct {
	ShopID     snowflake.ID `gorm:"column:shop_id;primaryKey;autoIncrement:false"`
	LocationID snowflake.ID `gorm:"column:location_id;primaryKey;autoIncrement:false"`
	CreatedAt  time.Time    `gorm:"not null"`
}

func (ShopLocation) TableName() string { return "shop_locations" }

type ShopCategory struct {
	ShopID     snowflake.ID `gorm:"column:shop_id;primaryKey;autoIncrement:false"`
	CategoryID int64        `gorm:"column:category_id;primaryKey;autoIncrement:false"`
	CreatedAt  time.Time    `gorm:"not null"`
}

func (ShopCategory) TableName() string { return "shop_categories" }
