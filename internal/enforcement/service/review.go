package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/shopfinder/internal/audit/domain"
	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	"github.com/smallbiznis/shopfinder/internal/brandkey"
	"github.com/smallbiznis/shopfinder/internal/chainscore"
	"github.com/smallbiznis/shopfinder/internal/enforcement/domain"
	"github.com/smallbiznis/shopfinder/internal/migration"
	"github.com/smallbiznis/shopfinder/internal/observability/logger"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	submissiondomain "github.com/smallbiznis/shopfinder/internal/submission/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultHideReason = "Brand blocked as a chain or franchise"

func (s *Service) ReviewSubmission(ctx context.Context, req domain.ReviewRequest) (*domain.ReviewResult, error) {
	if err := s.schemaReady(); err != nil {
		return nil, err
	}
	reviewerID := strings.TrimSpace(req.ReviewerID)
	if reviewerID == "" {
		return nil, invalidInput("reviewer is required", nil)
	}
	if req.SubmissionID <= 0 {
		return nil, invalidInput("submission id is required", nil)
	}

	var (
		result *domain.ReviewResult
		err    error
	)
	switch req.Decision {
	case submissiondomain.DecisionReject:
		result, err = s.reject(ctx, reviewerID, req)
	case submissiondomain.DecisionApprove:
		result, err = s.approve(ctx, reviewerID, req)
	default:
		return nil, invalidInput("decision must be approve or reject", submissiondomain.ErrInvalidDecision)
	}
	if err != nil {
		return nil, err
	}

	item := result.Submission
	s.metrics.RecordSubmissionReview(ctx, string(req.Decision))
	metadata := map[string]any{
		"decision":  string(req.Decision),
		"brand_key": item.BrandKey,
	}
	if result.ShopID != nil {
		metadata["shop_id"] = result.ShopID.String()
	}
	s.audit(ctx, reviewerID, auditdomain.ActionSubmissionReviewed, auditdomain.TargetSubmission, item.ID.String(), metadata)

	logger.WithSubmission(s.log, item.ID.String(), item.BrandKey).Info("submission reviewed",
		zap.String("decision", string(req.Decision)),
		zap.String("reviewer_id", reviewerID),
	)
	return result, nil
}

func (s *Service) reject(ctx context.Context, reviewerID string, req domain.ReviewRequest) (*domain.ReviewResult, error) {
	item, err := s.submissions.Decide(ctx, submissiondomain.DecideRequest{
		ID:         req.SubmissionID,
		Decision:   submissiondomain.DecisionReject,
		ReviewerID: reviewerID,
		Note:       req.Note,
	})
	if err != nil {
		return nil, submissionError(err)
	}
	return &domain.ReviewResult{Submission: item}, nil
}

// approve replays the stored request. The shop rows, the registry approval
// and the status change commit together; a reviewer who loses the race on
// the conditional update rolls back the shop it just wrote.
func (s *Service) approve(ctx context.Context, reviewerID string, req domain.ReviewRequest) (*domain.ReviewResult, error) {
	item, err := s.submissions.Get(ctx, req.SubmissionID)
	if err != nil {
		return nil, submissionError(err)
	}
	if item.Status != submissiondomain.StatusPending {
		return nil, submissionError(submissiondomain.ErrAlreadyReviewed)
	}
	payload := item.Payload.Data()
	if err := payload.Validate(); err != nil {
		return nil, &domain.Error{Kind: domain.KindInvalidPayload, Message: "stored submission payload is invalid", Err: err}
	}

	var (
		decided *submissiondomain.Submission
		shopID  snowflake.ID
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		brands := s.brands.WithTx(tx)

		known, err := lookupBrandWith(ctx, brands, item.BrandKey)
		if err != nil {
			return err
		}
		if known.Status == branddomain.StatusBlocked {
			score := 100
			return &domain.Error{
				Kind:    domain.KindBrandBlocked,
				Message: "Brand is blocked. Reject the submission or change the brand status first.",
				Score:   &score,
				Reasons: []string{chainscore.ReasonBrandAlreadyBlocked},
			}
		}

		brandKey := item.BrandKey
		created, err := s.shops.WithTx(tx).Create(ctx, shopdomain.CreateParams{
			Request:   payload,
			CreatorID: item.SubmittedByUserID,
			BrandKey:  &brandKey,
		})
		if err != nil {
			if shopdomain.IsValidationError(err) {
				return &domain.Error{Kind: domain.KindInvalidPayload, Message: "stored submission payload is invalid", Err: err}
			}
			return storageError(err)
		}
		shopID = created.ShopID

		if _, err := brands.ApproveBrand(ctx, brandKey, brandkey.DisplayName(payload.ShopName), reviewerID); err != nil {
			return brandError(err)
		}

		decided, err = s.submissions.WithTx(tx).Decide(ctx, submissiondomain.DecideRequest{
			ID:             item.ID,
			Decision:       submissiondomain.DecisionApprove,
			ReviewerID:     reviewerID,
			Note:           req.Note,
			ApprovedShopID: &shopID,
		})
		if err != nil {
			return submissionError(err)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return &domain.ReviewResult{Submission: decided, ShopID: &shopID}, nil
}

func (s *Service) SetBrandStatus(ctx context.Context, req domain.SetBrandStatusRequest) (*domain.SetBrandStatusResult, error) {
	if err := s.schemaReady(migration.Tables(migration.BrandTables, migration.ShopTables)...); err != nil {
		return nil, err
	}
	key := brandkey.Normalize(req.BrandKey)
	if key == "" {
		return nil, invalidInput("brand key is required", nil)
	}
	if !req.Status.Valid() {
		return nil, invalidInput("unknown brand status", branddomain.ErrInvalidStatus)
	}
	actorID := strings.TrimSpace(req.ActorID)
	if actorID == "" {
		return nil, invalidInput("actor is required", nil)
	}
	reason := strings.TrimSpace(req.Reason)
	retroactive := req.ApplyRetroactive &&
		(req.Status == branddomain.StatusBlocked || req.Status == branddomain.StatusAllowed)

	result := &domain.SetBrandStatusResult{}
	previous := branddomain.StatusUnknown
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		brands := s.brands.WithTx(tx)

		existing, err := lookupBrandWith(ctx, brands, key)
		if err != nil {
			return err
		}
		previous = existing.Status
		displayName := brandkey.DisplayName(req.DisplayName)
		if displayName == "" {
			displayName = existing.DisplayName
		}

		if retroactive {
			shops := s.shops.WithTx(tx)
			if req.Status == branddomain.StatusBlocked {
				hideReason := reason
				if hideReason == "" {
					hideReason = defaultHideReason
				}
				result.AffectedShops, err = shops.HideForBrand(ctx, key, hideReason, actorID)
			} else {
				result.AffectedShops, err = shops.RestoreHiddenByBrand(ctx, key)
			}
			if err != nil {
				return shopError(err)
			}
		}

		result.Action, err = brands.RecordAction(ctx, branddomain.ActionRequest{
			BrandKey: key,
			Action:   branddomain.ActionFor(previous, req.Status),
			Reason:   reason,
			Payload: branddomain.ActionPayload{
				Status:         req.Status,
				PreviousStatus: previous,
				Retroactive:    retroactive,
				AffectedShops:  result.AffectedShops,
			},
			ActorID: actorID,
		})
		if err != nil {
			return brandError(err)
		}

		result.Brand, err = brands.SetStatus(ctx, branddomain.SetStatusRequest{
			BrandKey:    key,
			DisplayName: displayName,
			Status:      req.Status,
			ActorID:     actorID,
		})
		if err != nil {
			return brandError(err)
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	if retroactive {
		s.metrics.RecordRetroactiveShops(ctx, string(result.Action.Action), result.AffectedShops)
	}
	s.audit(ctx, actorID, auditdomain.ActionBrandStatusChanged, auditdomain.TargetBrand, key, map[string]any{
		"status":          string(req.Status),
		"previous_status": string(previous),
		"retroactive":     retroactive,
		"affected_shops":  result.AffectedShops,
	})
	s.log.Info("brand status changed",
		zap.String("brand_key", key),
		zap.String("status", string(req.Status)),
		zap.String("previous_status", string(previous)),
		zap.Int64("affected_shops", result.AffectedShops),
		zap.String("actor_id", actorID),
	)
	return result, nil
}
