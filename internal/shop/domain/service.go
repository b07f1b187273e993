package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	MaxShopNameLength = 120
	MaxCategories     = 10
)

type Service interface {
	// WithTx returns a Service bound to tx. A bound Service leaves rollback
	// to the transaction and skips cleanup.
	WithTx(tx *gorm.DB) Service
	// Create persists location, shop, and links as independent writes and
	// removes whatever was written if a later step fails.
	Create(ctx context.Context, req CreateParams) (*Created, error)
	Get(ctx context.Context, id snowflake.ID) (*Shop, error)
	CountActiveForBrand(ctx context.Context, brandKey string) (int64, error)
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int64, error)
	HideForBrand(ctx context.Context, brandKey, reason, actorID string) (int64, error)
	RestoreHiddenByBrand(ctx context.Context, brandKey string) (int64, error)
}

// CreateRequest is the client-facing shop submission. It is also stored
// verbatim on queued submissions and replayed on approval.
type CreateRequest struct {
	ShopName               string   `json:"shop_name"`
	Description            string   `json:"description,omitempty"`
	WebsiteURL             string   `json:"website_url,omitempty"`
	Address                string   `json:"address"`
	City                   string   `json:"city"`
	State                  string   `json:"state,omitempty"`
	PostalCode             string   `json:"postal_code,omitempty"`
	Country                string   `json:"country,omitempty"`
	Latitude               *float64 `json:"latitude,omitempty"`
	Longitude              *float64 `json:"longitude,omitempty"`
	CategoryIDs            []int64  `json:"category_ids,omitempty"`
	ChainAttestation       string   `json:"chain_attestation,omitempty"`
	EstimatedLocationCount string   `json:"estimated_location_count,omitempty"`
	EligibilityConfirmed   bool     `json:"eligibility_confirmed"`
}

// Validate checks the fields every creation path needs. It does not look at
// brand or eligibility data.
func (r CreateRequest) Validate() error {
	name := strings.TrimSpace(r.ShopName)
	if name == "" || len([]rune(name)) > MaxShopNameLength {
		return ErrInvalidShopName
	}
	if len(r.CategoryIDs) > MaxCategories {
		return ErrInvalidCategories
	}
	seen := make(map[int64]struct{}, len(r.CategoryIDs))
	for _, id := range r.CategoryIDs {
		if id <= 0 {
			return ErrInvalidCategories
		}
		if _, ok := seen[id]; ok {
			return ErrInvalidCategories
		}
		seen[id] = struct{}{}
	}
	if r.Latitude != nil && (*r.Latitude < -90 || *r.Latitude > 90) {
		return ErrInvalidCoordinates
	}
	if r.Longitude != nil && (*r.Longitude < -180 || *r.Longitude > 180) {
		return ErrInvalidCoordinates
	}
	return nil
}

// CreateParams is a validated request plus the attribution the orchestrator
// resolved for it.
type CreateParams struct {
	Request   CreateRequest
	CreatorID string
	// BrandKey is nil when enforcement is off.
	BrandKey *string
}

type Created struct {
	ShopID     snowflake.ID
	LocationID snowflake.ID
	Slug       string
}

var (
	ErrInvalidShopName    = errors.New("invalid_shop_name")
	ErrInvalidCategories  = errors.New("invalid_categories")
	ErrInvalidCoordinates = errors.New("invalid_coordinates")
	ErrInvalidBrandKey    = errors.New("invalid_brand_key")
	ErrInvalidCreator     = errors.New("invalid_creator")
	ErrNotFound           = errors.New("not_found")
)

// IsValidationError reports whether err is a request validation failure
// rather than a storage error.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidShopName) ||
		errors.Is(err, ErrInvalidCategories) ||
		errors.Is(err, ErrInvalidCoordinates) ||
		errors.Is(err, ErrInvalidCreator) ||
		errors.Is(err, ErrInvalidBrandKey)
}
