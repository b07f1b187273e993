package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/shopfinder/internal/clock"
	"github.com/smallbiznis/shopfinder/internal/submission/domain"
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
		log:   p.Log.Named("submission.service"),
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

func (s *Service) Enqueue(ctx context.Context, req domain.EnqueueRequest) (*domain.Submission, error) {
	submitterID := strings.TrimSpace(req.SubmitterID)
	if submitterID == "" {
		return nil, domain.ErrInvalidSubmitter
	}
	if strings.TrimSpace(req.BrandKey) == "" {
		return nil, domain.ErrInvalidBrandKey
	}
	if err := req.Payload.Validate(); err != nil {
		return nil, err
	}

	item := &domain.Submission{
		ID:                s.genID.Generate(),
		SubmittedByUserID: submitterID,
		SubmittedAt:       s.clock.Now(),
		Status:            domain.StatusPending,
		BrandKey:          req.BrandKey,
		ChainScore:        clampScore(req.Score),
		Signals:           datatypes.NewJSONType(req.Signals),
		Payload:           datatypes.NewJSONType(req.Payload),
	}
	if err := s.repo.Insert(ctx, s.db, item); err != nil {
		return nil, err
	}

	s.log.Info("submission queued for review",
		zap.String("submission_id", item.ID.String()),
		zap.String("brand_key", item.BrandKey),
		zap.Int("score", item.ChainScore),
	)
	return item, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Submission, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}

func (s *Service) Decide(ctx context.Context, req domain.DecideRequest) (*domain.Submission, error) {
	reviewerID := strings.TrimSpace(req.ReviewerID)
	if reviewerID == "" {
		return nil, domain.ErrInvalidReviewer
	}
	note := strings.TrimSpace(req.Note)
	if len([]rune(note)) > domain.MaxNoteLength {
		return nil, domain.ErrInvalidNote
	}

	if req.ID <= 0 {
		return nil, domain.ErrInvalidID
	}
	current, err := s.status(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	next, err := domain.Transition(current, req.Decision)
	if err != nil {
		return nil, err
	}
	if next == domain.StatusApproved && req.ApprovedShopID == nil {
		return nil, domain.ErrMissingShopID
	}

	now := s.clock.Now()
	decided := domain.Submission{
		ID:               req.ID,
		Status:           next,
		ReviewedByUserID: &reviewerID,
		ReviewedAt:       &now,
	}
	if note != "" {
		decided.ReviewNote = &note
	}
	if next == domain.StatusApproved {
		decided.ApprovedShopID = req.ApprovedShopID
	}

	affected, err := s.repo.MarkDecided(ctx, s.db, &decided)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// Lost a race with another reviewer, or the row vanished.
		if _, err := s.status(ctx, req.ID); err != nil {
			return nil, err
		}
		return nil, domain.ErrAlreadyReviewed
	}

	s.log.Info("submission decided",
		zap.String("submission_id", decided.ID.String()),
		zap.String("status", string(decided.Status)),
		zap.String("reviewer_id", reviewerID),
	)

	item, err := s.Get(ctx, req.ID)
	if errors.Is(err, domain.ErrInvalidPayload) {
		// Rejecting a corrupt submission is allowed; report what was written.
		return &decided, nil
	}
	return item, err
}

func (s *Service) status(ctx context.Context, id snowflake.ID) (domain.Status, error) {
	current, err := s.repo.FindStatus(ctx, s.db, id)
	if err != nil {
		return "", err
	}
	if current == nil {
		return "", domain.ErrNotFound
	}
	return *current, nil
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]domain.Submission, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = domain.DefaultListLimit
	case filter.Limit > domain.MaxListLimit:
		filter.Limit = domain.MaxListLimit
	}
	return s.repo.List(ctx, s.db, filter)
}

func (s *Service) CountPendingSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, domain.ErrInvalidSubmitter
	}
	return s.repo.CountPendingSince(ctx, s.db, userID, since)
}

func clampScore(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}
