package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
	MaxActionLimit   = 200
)

type Service interface {
	WithTx(tx *gorm.DB) Service
	Get(ctx context.Context, brandKey string) (*Brand, error)
	RecordTelemetry(ctx context.Context, req TelemetryRequest) error
	SetStatus(ctx context.Context, req SetStatusRequest) (*Brand, error)
	ApproveBrand(ctx context.Context, brandKey, displayName, actorID string) (*Brand, error)
	List(ctx context.Context, filter ListFilter) ([]Brand, error)
	RecordAction(ctx context.Context, req ActionRequest) (*BrandAction, error)
	ListActions(ctx context.Context, brandKey string, limit int) ([]BrandAction, error)
}

type TelemetryRequest struct {
	BrandKey           string
	DisplayName        string
	Score              *int
	Signals            Signals
	KnownLocationCount *int
	// StatusHint is applied only when non-nil and not unknown.
	StatusHint *Status
	ActorID    string
}

type SetStatusRequest struct {
	BrandKey    string
	DisplayName string
	Status      Status
	ActorID     string
}

type ActionRequest struct {
	BrandKey string
	Action   Action
	Reason   string
	Payload  ActionPayload
	ActorID  string
}

type ListFilter struct {
	Status *Status
	Search string
	Limit  int
}

// Response is the admin-facing view of a brand record.
type Response struct {
	BrandKey           string    `json:"brand_key"`
	DisplayName        string    `json:"display_name"`
	Status             Status    `json:"status"`
	KnownLocationCount *int      `json:"known_location_count"`
	LastChainScore     *int      `json:"last_chain_score"`
	LastSignals        Signals   `json:"last_signals"`
	UpdatedAt          time.Time `json:"updated_at"`
	UpdatedByUserID    *string   `json:"updated_by_user_id"`
}

func (b Brand) Response() Response {
	return Response{
		BrandKey:           b.BrandKey,
		DisplayName:        b.DisplayName,
		Status:             b.Status,
		KnownLocationCount: b.KnownLocationCount,
		LastChainScore:     b.LastChainScore,
		LastSignals:        b.LastSignals.Data(),
		UpdatedAt:          b.UpdatedAt,
		UpdatedByUserID:    b.UpdatedByUserID,
	}
}

type ActionResponse struct {
	ID          string        `json:"id"`
	BrandKey    string        `json:"brand_key"`
	Action      Action        `json:"action"`
	Reason      *string       `json:"reason"`
	Payload     ActionPayload `json:"payload"`
	ActorUserID string        `json:"actor_user_id"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (a BrandAction) Response() ActionResponse {
	return ActionResponse{
		ID:          a.ID.String(),
		BrandKey:    a.BrandKey,
		Action:      a.Action,
		Reason:      a.Reason,
		Payload:     a.Payload.Data(),
		ActorUserID: a.ActorUserID,
		CreatedAt:   a.CreatedAt,
	}
}

var (
	ErrInvalidBrandKey = errors.New("invalid_brand_key")
	ErrInvalidStatus   = errors.New("invalid_status")
	ErrInvalidAction   = errors.New("invalid_action")
	ErrInvalidActor    = errors.New("invalid_actor")
	ErrNotFound        = errors.New("not_found")
)
