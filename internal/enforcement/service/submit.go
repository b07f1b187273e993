package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	"github.com/smallbiznis/shopfinder/internal/brandkey"
	"github.com/smallbiznis/shopfinder/internal/chainscore"
	"github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	"github.com/smallbiznis/shopfinder/internal/migration"
	"github.com/smallbiznis/shopfinder/internal/providers/notify"
	"github.com/smallbiznis/shopfinder/internal/ratelimit"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	submissiondomain "github.com/smallbiznis/shopfinder/internal/submission/domain"
	"go.uber.org/zap"
)

const (
	limitReasonAttempts   = "attempts"
	limitReasonInProgress = "in_progress"
	limitReasonQuota      = "quota_"
)

// SubmitShop is the decision pipeline for new shops. Each stage must finish
// before the next starts: rate limit, validation, brand lookup, scoring,
// then create or queue.
func (s *Service) SubmitShop(ctx context.Context, req domain.SubmitRequest) (*domain.SubmitResult, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, invalidInput("submitter is required", nil)
	}
	in := req.Request

	if s.mode == domain.ModeOff {
		if err := s.schemaReady(migration.ShopTables...); err != nil {
			return nil, err
		}
		return s.create(ctx, userID, in, nil, &domain.SubmitResult{Mode: s.mode})
	}

	// The submissions table is left out: the quota check degrades without it.
	if err := s.schemaReady(migration.Tables(migration.ShopTables, migration.BrandTables)...); err != nil {
		return nil, err
	}
	release, err := s.admit(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := in.Validate(); err != nil {
		return nil, invalidInput(err.Error(), err)
	}
	// Eligibility is checked before the name is even normalized.
	if s.mode == domain.ModeEnforce && !in.EligibilityConfirmed {
		return nil, &domain.Error{
			Kind:    domain.KindEligibilityRequired,
			Message: "Please confirm this shop is independently owned with fewer than 10 locations.",
		}
	}

	key := brandkey.Normalize(in.ShopName)
	if key == "" {
		return nil, invalidInput("shop name does not produce a brand key", nil)
	}

	known, err := s.lookupBrand(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.mode == domain.ModeEnforce && known.Status == branddomain.StatusBlocked {
		score := 100
		s.metrics.RecordBrandDecision(ctx, string(chainscore.DecisionBlock), s.mode.String())
		return nil, &domain.Error{
			Kind:    domain.KindBrandBlocked,
			Message: "This brand is not eligible for the directory.",
			Score:   &score,
			Reasons: []string{chainscore.ReasonBrandAlreadyBlocked},
		}
	}

	internalCount, err := s.shops.CountActiveForBrand(ctx, key)
	if err != nil {
		return nil, storageError(err)
	}

	result := chainscore.Score(scoreInput(in, known, internalCount), s.rules.Rules())
	s.metrics.RecordBrandDecision(ctx, string(result.Decision), s.mode.String())

	log := s.log.With(
		zap.String("brand_key", key),
		zap.String("mode", s.mode.String()),
		zap.Int("score", result.Score),
		zap.String("decision", string(result.Decision)),
	)
	signals := branddomain.Signals{
		Mode:                   s.mode.String(),
		Source:                 branddomain.SourceSubmission,
		ShopName:               brandkey.DisplayName(in.ShopName),
		WebsiteURL:             strings.TrimSpace(in.WebsiteURL),
		InternalCount:          int(internalCount),
		KnownLocationCount:     knownCount(known),
		ChainAttestation:       string(chainscore.ParseAttestation(in.ChainAttestation)),
		EstimatedLocationCount: string(chainscore.ParseLocationEstimate(in.EstimatedLocationCount)),
		KnownStatus:            known.Status,
		Score:                  result.Score,
		Decision:               string(result.Decision),
		Reasons:                result.Reasons,
	}
	outcome := &domain.SubmitResult{
		Mode:     s.mode,
		BrandKey: key,
		Score:    &result.Score,
		Decision: result.Decision,
		Reasons:  result.Reasons,
	}

	if s.mode == domain.ModeEnforce {
		switch result.Decision {
		case chainscore.DecisionBlock:
			s.recordTelemetry(ctx, log, userID, key, in.ShopName, signals, branddomain.StatusBlocked)
			s.notify(ctx, notify.Event{
				Kind:        notify.EventChainBlocked,
				BrandKey:    key,
				DisplayName: brandkey.DisplayName(in.ShopName),
				SubmitterID: userID,
				Score:       result.Score,
				Decision:    string(result.Decision),
				Reasons:     result.Reasons,
			})
			log.Info("submission refused as chain")
			return nil, &domain.Error{
				Kind:    domain.KindChainNotAllowed,
				Message: "This looks like a chain or franchise, which the directory does not list.",
				Score:   outcome.Score,
				Reasons: result.Reasons,
			}
		case chainscore.DecisionReview:
			if err := s.schemaReady(migration.SubmissionTables...); err != nil {
				return nil, err
			}
			s.recordTelemetry(ctx, log, userID, key, in.ShopName, signals, branddomain.StatusNeedsReview)
			return s.enqueue(ctx, log, userID, in, signals, outcome)
		}
	}

	// Allowed, or shadow mode: observe only.
	hint := branddomain.Status("")
	if result.Decision == chainscore.DecisionReview {
		hint = branddomain.StatusNeedsReview
	}
	s.recordTelemetry(ctx, log, userID, key, in.ShopName, signals, hint)
	return s.create(ctx, userID, in, &key, outcome)
}

// admit runs the rate-limit stage. The returned release must be called once
// the submission has been created or queued.
func (s *Service) admit(ctx context.Context, userID string) (func(), error) {
	attempt, err := s.throttle.Allow(ctx, userID)
	switch {
	case err != nil:
		// Redis guards are advisory; the store-backed quota below decides.
		s.log.Warn("submit attempt throttle unavailable", zap.Error(err))
	case !attempt.Allowed:
		s.metrics.RecordRateLimitDenied(ctx, limitReasonAttempts)
		return nil, &domain.Error{
			Kind:       domain.KindRateLimited,
			Message:    "Too many attempts. Slow down and try again shortly.",
			RetryAfter: attempt.RetryAfter,
		}
	}

	release, err := s.locker.Acquire(ctx, userID)
	switch {
	case errors.Is(err, ratelimit.ErrSubmitInProgress):
		s.metrics.RecordRateLimitDenied(ctx, limitReasonInProgress)
		return nil, &domain.Error{
			Kind:    domain.KindRateLimited,
			Message: "Another submission is still being processed. Try again in a moment.",
		}
	case err != nil:
		s.log.Warn("submit lock unavailable", zap.Error(err))
		release = func() {}
	}

	limit, err := s.quota.Check(ctx, userID)
	if err != nil {
		release()
		return nil, storageError(fmt.Errorf("check submission limits: %w", err))
	}
	if limit.Limited {
		release()
		s.metrics.RecordRateLimitDenied(ctx, limitReasonQuota+string(limit.Window))
		return nil, &domain.Error{
			Kind:       domain.KindRateLimited,
			Message:    limit.Message,
			Window:     string(limit.Window),
			Cap:        limit.Cap,
			RetryAfter: limit.Window.Duration(),
		}
	}
	return release, nil
}

// recordTelemetry is best-effort: the decision stands even if the registry
// write fails.
func (s *Service) recordTelemetry(ctx context.Context, log *zap.Logger, userID, key, shopName string, signals branddomain.Signals, hint branddomain.Status) {
	req := branddomain.TelemetryRequest{
		BrandKey:    key,
		DisplayName: brandkey.DisplayName(shopName),
		Score:       &signals.Score,
		Signals:     signals,
		ActorID:     userID,
	}
	if hint != "" {
		req.StatusHint = &hint
	}
	if err := s.brands.RecordTelemetry(ctx, req); err != nil {
		log.Warn("brand telemetry write failed", zap.Error(err))
	}
}

func (s *Service) enqueue(ctx context.Context, log *zap.Logger, userID string, in shopdomain.CreateRequest, signals branddomain.Signals, outcome *domain.SubmitResult) (*domain.SubmitResult, error) {
	item, err := s.submissions.Enqueue(ctx, submissiondomain.EnqueueRequest{
		SubmitterID: userID,
		BrandKey:    outcome.BrandKey,
		Score:       signals.Score,
		Signals:     signals,
		Payload:     in,
	})
	if err != nil {
		return nil, submissionError(err)
	}

	s.notify(ctx, notify.Event{
		Kind:         notify.EventQueued,
		SubmissionID: item.ID.String(),
		BrandKey:     item.BrandKey,
		DisplayName:  signals.ShopName,
		SubmitterID:  userID,
		Score:        item.ChainScore,
		Decision:     signals.Decision,
		Reasons:      signals.Reasons,
	})
	log.Info("submission queued for review", zap.String("submission_id", item.ID.String()))

	outcome.Status = domain.SubmitQueued
	outcome.SubmissionID = item.ID
	return outcome, nil
}

func (s *Service) create(ctx context.Context, userID string, in shopdomain.CreateRequest, key *string, outcome *domain.SubmitResult) (*domain.SubmitResult, error) {
	created, err := s.shops.Create(ctx, shopdomain.CreateParams{
		Request:   in,
		CreatorID: userID,
		BrandKey:  key,
	})
	if err != nil {
		return nil, shopError(err)
	}

	outcome.Status = domain.SubmitCreated
	outcome.ShopID = created.ShopID
	outcome.LocationID = created.LocationID
	outcome.Slug = created.Slug
	return outcome, nil
}
