package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopfinder/internal/brand/domain"
	"github.com/smallbiznis/shopfinder/internal/brandkey"
	"github.com/smallbiznis/shopfinder/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("brand.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) WithTx(tx *gorm.DB) domain.Service {
	bound := *s
	bound.db = tx
	return &bound
}

func (s *Service) Get(ctx context.Context, brandKey string) (*domain.Brand, error) {
	key, err := validateKey(brandKey)
	if err != nil {
		return nil, err
	}
	record, err := s.repo.FindByKey(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, domain.ErrNotFound
	}
	return record, nil
}

func (s *Service) RecordTelemetry(ctx context.Context, req domain.TelemetryRequest) error {
	key, err := validateKey(req.BrandKey)
	if err != nil {
		return err
	}

	status := domain.StatusUnknown
	if req.StatusHint != nil && *req.StatusHint != domain.StatusUnknown {
		if !req.StatusHint.Valid() {
			return domain.ErrInvalidStatus
		}
		status = *req.StatusHint
	}

	record := &domain.Brand{
		BrandKey:           key,
		DisplayName:        displayNameOr(req.DisplayName, key),
		Status:             status,
		KnownLocationCount: nonNegative(req.KnownLocationCount),
		LastChainScore:     req.Score,
		LastSignals:        datatypes.NewJSONType(req.Signals),
		UpdatedAt:          s.clock.Now(),
		UpdatedByUserID:    optionalString(req.ActorID),
	}
	return s.repo.UpsertTelemetry(ctx, s.db, record)
}

func (s *Service) SetStatus(ctx context.Context, req domain.SetStatusRequest) (*domain.Brand, error) {
	key, err := validateKey(req.BrandKey)
	if err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	actorID := strings.TrimSpace(req.ActorID)
	if actorID == "" {
		return nil, domain.ErrInvalidActor
	}

	record := &domain.Brand{
		BrandKey:        key,
		DisplayName:     displayNameOr(req.DisplayName, key),
		Status:          req.Status,
		LastSignals:     datatypes.NewJSONType(domain.Signals{}),
		UpdatedAt:       s.clock.Now(),
		UpdatedByUserID: &actorID,
	}
	if err := s.repo.UpsertStatus(ctx, s.db, record); err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

func (s *Service) ApproveBrand(ctx context.Context, brandKey, displayName, actorID string) (*domain.Brand, error) {
	key, err := validateKey(brandKey)
	if err != nil {
		return nil, err
	}
	actor := strings.TrimSpace(actorID)
	if actor == "" {
		return nil, domain.ErrInvalidActor
	}

	record := &domain.Brand{
		BrandKey:        key,
		DisplayName:     displayNameOr(displayName, key),
		Status:          domain.StatusAllowed,
		LastSignals:     datatypes.NewJSONType(domain.Signals{}),
		UpdatedAt:       s.clock.Now(),
		UpdatedByUserID: &actor,
	}
	if err := s.repo.UpsertApproved(ctx, s.db, record); err != nil {
		return nil, err
	}
	return s.Get(ctx, key)
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Brand, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.ErrInvalidStatus
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Limit = clampLimit(filter.Limit, domain.DefaultListLimit, domain.MaxListLimit)
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) RecordAction(ctx context.Context, req domain.ActionRequest) (*domain.BrandAction, error) {
	key, err := validateKey(req.BrandKey)
	if err != nil {
		return nil, err
	}
	switch req.Action {
	case domain.ActionBlock, domain.ActionSetAllowed, domain.ActionSetReview, domain.ActionUnblock:
	default:
		return nil, domain.ErrInvalidAction
	}
	actorID := strings.TrimSpace(req.ActorID)
	if actorID == "" {
		return nil, domain.ErrInvalidActor
	}

	action := &domain.BrandAction{
		ID:          s.genID.Generate(),
		BrandKey:    key,
		Action:      req.Action,
		Reason:      optionalString(req.Reason),
		Payload:     datatypes.NewJSONType(req.Payload),
		ActorUserID: actorID,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.InsertAction(ctx, s.db, action); err != nil {
		return nil, err
	}
	return action, nil
}

func (s *Service) ListActions(ctx context.Context, brandKey string, limit int) ([]domain.BrandAction, error) {
	key, err := validateKey(brandKey)
	if err != nil {
		return nil, err
	}
	return s.repo.ListActions(ctx, s.db, key, clampLimit(limit, 50, domain.MaxActionLimit))
}

// validateKey accepts keys that are already normalized. Callers holding a
// display name must run it through brandkey.Normalize first.
func validateKey(brandKey string) (string, error) {
	if brandKey == "" || brandKey != brandkey.Normalize(brandKey) {
		return "", domain.ErrInvalidBrandKey
	}
	return brandKey, nil
}

func displayNameOr(displayName, fallback string) string {
	if name := brandkey.DisplayName(displayName); name != "" {
		return name
	}
	return fallback
}

func clampLimit(limit, fallback, max int) int {
	switch {
	case limit <= 0:
		return fallback
	case limit > max:
		return max
	default:
		return limit
	}
}

func nonNegative(v *int) *int {
	if v == nil {
		return nil
	}
	if *v < 0 {
		zero := 0
		return &zero
	}
	return v
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
