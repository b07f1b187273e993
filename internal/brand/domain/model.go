package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusUnknown     Status = "unknown"
	StatusAllowed     Status = "allowed"
	StatusBlocked     Status = "blocked"
	StatusNeedsReview Status = "needs_review"
)

// ParseStatus accepts the four registry statuses, case-insensitively.
func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusUnknown:
		return StatusUnknown, nil
	case StatusAllowed:
		return StatusAllowed, nil
	case StatusBlocked:
		return StatusBlocked, nil
	case StatusNeedsReview:
		return StatusNeedsReview, nil
	default:
		return "", ErrInvalidStatus
	}
}

func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Source identifies which flow produced a Signals record.
type Source string

const (
	SourceSubmission Source = "submission"
	SourceReview     Source = "review"
	SourcePreview    Source = "preview"
)

// Signals is the last scoring decision recorded for a brand: the inputs the
// scorer saw and what it returned.
type Signals struct {
	Mode                   string   `json:"mode"`
	Source                 Source   `json:"source"`
	ShopName               string   `json:"shop_name"`
	WebsiteURL             string   `json:"website_url,omitempty"`
	InternalCount          int      `json:"internal_count"`
	KnownLocationCount     int      `json:"known_location_count"`
	ChainAttestation       string   `json:"chain_attestation"`
	EstimatedLocationCount string   `json:"estimated_location_count"`
	KnownStatus            Status   `json:"known_status"`
	Score                  int      `json:"score"`
	Decision               string   `json:"decision"`
	Reasons                []string `json:"reasons"`
}

type Brand struct {
	BrandKey           string                      `gorm:"column:brand_key;primaryKey;type:text"`
	DisplayName        string                      `gorm:"column:display_name;type:text;not null"`
	Status             Status                      `gorm:"type:text;not null;default:unknown;index:ix_brands_status_updated,priority:1"`
	KnownLocationCount *int                        `gorm:"column:known_location_count"`
	LastChainScore     *int                        `gorm:"column:last_chain_score"`
	LastSignals        datatypes.JSONType[Signals] `gorm:"column:last_signals;not null"`
	UpdatedAt          time.Time                   `gorm:"not null;index:ix_brands_status_updated,priority:2"`
	UpdatedByUserID    *string                     `gorm:"column:updated_by_user_id;type:text"`
}

func (Brand) TableName() string { return "brands" }

type Action string

const (
	ActionBlock      Action = "block"
	ActionSetAllowed Action = "set_allowed"
	ActionSetReview  Action = "set_review"
	ActionUnblock    Action = "unblock"
)

// ActionFor maps an admin status change onto the audit verb. Leaving the
// blocked state is always recorded as an unblock.
func ActionFor(previous, next Status) Action {
	switch next {
	case StatusBlocked:
		return ActionBlock
	case StatusNeedsReview:
		return ActionSetReview
	case StatusAllowed:
		if previous == StatusBlocked {
			return ActionUnblock
		}
		return ActionSetAllowed
	default:
		return ActionUnblock
	}
}

type ActionPayload struct {
	Status         Status `json:"status"`
	PreviousStatus Status `json:"previous_status,omitempty"`
	Retroactive    bool   `json:"retroactive"`
	AffectedShops  int64  `json:"affected_shops"`
}

// BrandAction is an append-only record of an admin decision.
type BrandAction struct {
	ID          snowflake.ID                      `gorm:"primaryKey;autoIncrement:false"`
	BrandKey    string                            `gorm:"column:brand_key;type:text;not null;index:ix_brand_actions_key_created,priority:1"`
	Action      Action                            `gorm:"type:text;not null"`
	Reason      *string                           `gorm:"type:text"`
	Payload     datatypes.JSONType[ActionPayload] `gorm:"not null"`
	ActorUserID string                            `gorm:"column:actor_user_id;type:text;not null"`
	CreatedAt   time.Time                         `gorm:"not null;index:ix_brand_actions_key_created,priority:2"`
}

func (BrandAction) TableName() string { return "brand_actions" }
