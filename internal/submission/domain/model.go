package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func ParseStatus(raw string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusPending:
		return StatusPending, nil
	case StatusApproved:
		return StatusApproved, nil
	case StatusRejected:
		return StatusRejected, nil
	default:
		return "", ErrInvalidStatus
	}
}

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

func ParseDecision(raw string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(raw))) {
	case DecisionApprove:
		return DecisionApprove, nil
	case DecisionReject:
		return DecisionReject, nil
	default:
		return "", ErrInvalidDecision
	}
}

// Transition is the only way a submission changes status. Decisions are
// final: anything other than pending refuses further transitions.
func Transition(from Status, decision Decision) (Status, error) {
	if from != StatusPending {
		return from, ErrAlreadyReviewed
	}
	switch decision {
	case DecisionApprove:
		return StatusApproved, nil
	case DecisionReject:
		return StatusRejected, nil
	default:
		return from, ErrInvalidDecision
	}
}

type Submission struct {
	ID                snowflake.ID                                 `gorm:"primaryKey;autoIncrement:false"`
	SubmittedByUserID string                                       `gorm:"column:submitted_by_user_id;type:text;not null;index:ix_submissions_user_status,priority:1"`
	SubmittedAt       time.Time                                    `gorm:"column:submitted_at;not null;index:ix_submissions_user_status,priority:3"`
	Status            Status                                       `gorm:"type:text;not null;default:pending;index:ix_submissions_user_status,priority:2"`
	BrandKey          string                                       `gorm:"column:brand_key;type:text;not null"`
	ChainScore        int                                          `gorm:"column:chain_score;not null"`
	Signals           datatypes.JSONType[branddomain.Signals]      `gorm:"not null"`
	Payload           datatypes.JSONType[shopdomain.CreateRequest] `gorm:"not null"`
	ReviewedByUserID  *string                                      `gorm:"column:reviewed_by_user_id;type:text"`
	ReviewedAt        *time.Time                                   `gorm:"column:reviewed_at"`
	ReviewNote        *string                                      `gorm:"column:review_note;type:text"`
	ApprovedShopID    *snowflake.ID                                `gorm:"column:approved_shop_id"`
}

func (Submission) TableName() string { return "shop_submissions" }
