package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
	MaxNoteLength    = 1000
)

type Service interface {
	WithTx(tx *gorm.DB) Service
	Enqueue(ctx context.Context, req EnqueueRequest) (*Submission, error)
	Get(ctx context.Context, id snowflake.ID) (*Submission, error)
	// Decide applies a reviewer decision through Transition and a
	// conditional update. approvedShopID is required for approvals.
	Decide(ctx context.Context, req DecideRequest) (*Submission, error)
	List(ctx context.Context, filter ListFilter) ([]Submission, error)
	CountPendingSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

type EnqueueRequest struct {
	SubmitterID string
	BrandKey    string
	Score       int
	Signals     branddomain.Signals
	Payload     shopdomain.CreateRequest
}

type DecideRequest struct {
	ID             snowflake.ID
	Decision       Decision
	ReviewerID     string
	Note           string
	ApprovedShopID *snowflake.ID
}

type ListFilter struct {
	Status *Status
	Limit  int
}

type Response struct {
	ID                string                   `json:"id"`
	SubmittedByUserID string                   `json:"submitted_by_user_id"`
	SubmittedAt       time.Time                `json:"submitted_at"`
	Status            Status                   `json:"status"`
	BrandKey          string                   `json:"brand_key"`
	ChainScore        int                      `json:"chain_score"`
	Signals           branddomain.Signals      `json:"signals"`
	Payload           shopdomain.CreateRequest `json:"payload"`
	ReviewedByUserID  *string                  `json:"reviewed_by_user_id"`
	ReviewedAt        *time.Time               `json:"reviewed_at"`
	ReviewNote        *string                  `json:"review_note"`
	ApprovedShopID    *string                  `json:"approved_shop_id"`
}

func (s Submission) Response() Response {
	resp := Response{
		ID:                s.ID.String(),
		SubmittedByUserID: s.SubmittedByUserID,
		SubmittedAt:       s.SubmittedAt,
		Status:            s.Status,
		BrandKey:          s.BrandKey,
		ChainScore:        s.ChainScore,
		Signals:           s.Signals.Data(),
		Payload:           s.Payload.Data(),
		ReviewedByUserID:  s.ReviewedByUserID,
		ReviewedAt:        s.ReviewedAt,
		ReviewNote:        s.ReviewNote,
	}
	if s.ApprovedShopID != nil {
		id := s.ApprovedShopID.String()
		resp.ApprovedShopID = &id
	}
	return resp
}

var (
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidDecision  = errors.New("invalid_decision")
	ErrInvalidSubmitter = errors.New("invalid_submitter")
	ErrInvalidReviewer  = errors.New("invalid_reviewer")
	ErrInvalidBrandKey  = errors.New("invalid_brand_key")
	ErrInvalidNote      = errors.New("invalid_note")
	ErrMissingShopID    = errors.New("missing_approved_shop_id")
	ErrNotFound         = errors.New("not_found")
	ErrAlreadyReviewed  = errors.New("already_reviewed")
	ErrInvalidPayload   = errors.New("invalid_payload")
)
