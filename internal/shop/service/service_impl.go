package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/shopfinder/internal/clock"
	"github.com/smallbiznis/shopfinder/internal/shop/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	inTx  bool
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("shop.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// progress tracks rows written by one creation attempt.
type progress struct {
	locationID snowflake.ID
	shopID     snowflake.ID
	linked     bool
}

func (s *Service) WithTx(tx *gorm.DB) domain.Service {
	bound := *s
	bound.db = tx
	bound.inTx = true
	return &bound
}

func (s *Service) Create(ctx context.Context, req domain.CreateParams) (*domain.Created, error) {
	var p progress
	created, err := s.persist(ctx, s.db, req, &p)
	if err != nil {
		if !s.inTx {
			s.cleanup(context.WithoutCancel(ctx), p)
		}
		return nil, err
	}
	return created, nil
}

func (s *Service) persist(ctx context.Context, db *gorm.DB, req domain.CreateParams, p *progress) (*domain.Created, error) {
	if err := req.Request.Validate(); err != nil {
		return nil, err
	}
	creatorID := strings.TrimSpace(req.CreatorID)
	if creatorID == "" {
		return nil, domain.ErrInvalidCreator
	}
	if req.BrandKey != nil && strings.TrimSpace(*req.BrandKey) == "" {
		return nil, domain.ErrInvalidBrandKey
	}

	now := s.clock.Now()
	in := req.Request

	location := &domain.Location{
		ID:         s.genID.Generate(),
		Street:     strings.TrimSpace(in.Address),
		City:       strings.TrimSpace(in.City),
		State:      optionalString(in.State),
		PostalCode: optionalString(in.PostalCode),
		Country:    defaultString(strings.ToUpper(strings.TrimSpace(in.Country)), "US"),
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		CreatedAt:  now,
	}
	if err := s.repo.InsertLocation(ctx, db, location); err != nil {
		return nil, fmt.Errorf("persist location: %w", err)
	}
	p.locationID = location.ID

	name := strings.TrimSpace(in.ShopName)
	shopID := s.genID.Generate()
	shop := &domain.Shop{
		ID:              shopID,
		Name:            name,
		Slug:            shopSlug(name, shopID),
		Description:     optionalString(in.Description),
		WebsiteURL:      optionalString(in.WebsiteURL),
		CreatedByUserID: creatorID,
		LocationID:      location.ID,
		BrandKey:        req.BrandKey,
		ContentStatus:   domain.ContentStatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertShop(ctx, db, shop); err != nil {
		return nil, fmt.Errorf("persist shop: %w", err)
	}
	p.shopID = shop.ID

	p.linked = true
	if err := s.repo.InsertShopLocation(ctx, db, &domain.ShopLocation{
		ShopID:     shop.ID,
		LocationID: location.ID,
		CreatedAt:  now,
	}); err != nil {
		return nil, fmt.Errorf("link shop location: %w", err)
	}
	if err := s.repo.InsertShopCategories(ctx, db, shop.ID, in.CategoryIDs, now); err != nil {
		return nil, fmt.Errorf("link shop categories: %w", err)
	}

	return &domain.Created{
		ShopID:     shop.ID,
		LocationID: location.ID,
		Slug:       shop.Slug,
	}, nil
}

// cleanup removes rows from a failed attempt, newest first. Failures are
// logged and never replace the original error.
func (s *Service) cleanup(ctx context.Context, p progress) {
	if p.linked && p.shopID != 0 {
		if err := s.repo.DeleteShopLinks(ctx, s.db, p.shopID); err != nil {
			s.log.Warn("cleanup shop links failed", zap.Int64("shop_id", p.shopID.Int64()), zap.Error(err))
		}
	}
	if p.shopID != 0 {
		if err := s.repo.DeleteShop(ctx, s.db, p.shopID); err != nil {
			s.log.Warn("cleanup shop failed", zap.Int64("shop_id", p.shopID.Int64()), zap.Error(err))
		}
	}
	if p.locationID != 0 {
		if err := s.repo.DeleteLocation(ctx, s.db, p.locationID); err != nil {
			s.log.Warn("cleanup location failed", zap.Int64("location_id", p.locationID.Int64()), zap.Error(err))
		}
	}
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Shop, error) {
	shop, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if shop == nil {
		return nil, domain.ErrNotFound
	}
	return shop, nil
}

func (s *Service) CountActiveForBrand(ctx context.Context, brandKey string) (int64, error) {
	if strings.TrimSpace(brandKey) == "" {
		return 0, domain.ErrInvalidBrandKey
	}
	return s.repo.CountActiveByBrand(ctx, s.db, brandKey)
}

func (s *Service) CountCreatedSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, domain.ErrInvalidCreator
	}
	return s.repo.CountCreatedSince(ctx, s.db, userID, since)
}

func (s *Service) HideForBrand(ctx context.Context, brandKey, reason, actorID string) (int64, error) {
	if strings.TrimSpace(brandKey) == "" {
		return 0, domain.ErrInvalidBrandKey
	}
	affected, err := s.repo.HideByBrand(ctx, s.db, brandKey, reason, actorID, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.log.Info("hid shops for brand", zap.String("brand_key", brandKey), zap.Int64("affected", affected))
	return affected, nil
}

func (s *Service) RestoreHiddenByBrand(ctx context.Context, brandKey string) (int64, error) {
	if strings.TrimSpace(brandKey) == "" {
		return 0, domain.ErrInvalidBrandKey
	}
	affected, err := s.repo.RestoreHiddenByBrand(ctx, s.db, brandKey, s.clock.Now())
	if err != nil {
		return 0, err
	}
	s.log.Info("restored shops for brand", zap.String("brand_key", brandKey), zap.Int64("affected", affected))
	return affected, nil
}

func shopSlug(name string, id snowflake.ID) string {
	base := slug.Make(name)
	if base == "" {
		base = "shop"
	}
	return base + "-" + id.Base36()
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
