package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	branddomain "github.com/smallbiznis/shopfinder/internal/brand/domain"
	"github.com/smallbiznis/shopfinder/internal/chainscore"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	submissiondomain "github.com/smallbiznis/shopfinder/internal/submission/domain"
)

type Service interface {
	// SubmitShop runs a shop creation request through the brand pipeline.
	// A queued submission is a successful result, not an error.
	SubmitShop(ctx context.Context, req SubmitRequest) (*SubmitResult, error)
	// ReviewSubmission applies a moderator decision. Approval creates the
	// shop and marks the submission approved in one transaction.
	ReviewSubmission(ctx context.Context, req ReviewRequest) (*ReviewResult, error)
	// SetBrandStatus changes a brand's status, records the action and
	// optionally hides or restores the brand's existing shops.
	SetBrandStatus(ctx context.Context, req SetBrandStatusRequest) (*SetBrandStatusResult, error)
	GetBrand(ctx context.Context, brandKey string, actionLimit int) (*BrandDetail, error)
	ListBrands(ctx context.Context, filter branddomain.ListFilter) ([]branddomain.Brand, error)
	ListSubmissions(ctx context.Context, filter submissiondomain.ListFilter) ([]submissiondomain.Submission, error)
	// PreviewScore scores a request against current registry state without
	// writing anything.
	PreviewScore(ctx context.Context, req shopdomain.CreateRequest) (*PreviewResult, error)
	Mode() Mode
}

type SubmitStatus string

const (
	SubmitCreated SubmitStatus = "created"
	SubmitQueued  SubmitStatus = "queued"
)

type SubmitRequest struct {
	UserID  string
	Request shopdomain.CreateRequest
}

// SubmitResult is either a created shop or a queued submission. BrandKey
// and the scoring fields are empty when enforcement is off.
type SubmitResult struct {
	Status       SubmitStatus
	Mode         Mode
	ShopID       snowflake.ID
	LocationID   snowflake.ID
	Slug         string
	SubmissionID snowflake.ID
	BrandKey     string
	Score        *int
	Decision     chainscore.Decision
	Reasons      []string
}

type SubmitResponse struct {
	Status       SubmitStatus `json:"status"`
	ShopID       string       `json:"shop_id,omitempty"`
	LocationID   string       `json:"location_id,omitempty"`
	Slug         string       `json:"slug,omitempty"`
	SubmissionID string       `json:"submission_id,omitempty"`
	BrandKey     string       `json:"brand_key,omitempty"`
	Message      string       `json:"message,omitempty"`
}

// Response omits score and reasons so submitters cannot tune a name
// against the heuristic.
func (r SubmitResult) Response() SubmitResponse {
	resp := SubmitResponse{Status: r.Status, BrandKey: r.BrandKey}
	switch r.Status {
	case SubmitQueued:
		resp.SubmissionID = r.SubmissionID.String()
		resp.Message = "Thanks! This shop needs a quick review before it appears in the directory."
	default:
		resp.ShopID = r.ShopID.String()
		resp.LocationID = r.LocationID.String()
		resp.Slug = r.Slug
	}
	return resp
}

type ReviewRequest struct {
	SubmissionID snowflake.ID
	Decision     submissiondomain.Decision
	ReviewerID   string
	Note         string
}

type ReviewResult struct {
	Submission *submissiondomain.Submission
	ShopID     *snowflake.ID
}

type SetBrandStatusRequest struct {
	BrandKey         string
	DisplayName      string
	Status           branddomain.Status
	Reason           string
	ApplyRetroactive bool
	ActorID          string
}

type SetBrandStatusResult struct {
	Brand         *branddomain.Brand
	Action        *branddomain.BrandAction
	AffectedShops int64
}

type BrandDetail struct {
	Brand   *branddomain.Brand
	Actions []branddomain.BrandAction
}

type PreviewResult struct {
	BrandKey           string             `json:"brand_key"`
	KnownStatus        branddomain.Status `json:"known_status"`
	InternalCount      int64              `json:"internal_count"`
	KnownLocationCount int                `json:"known_location_count"`
	Mode               Mode               `json:"mode"`
	chainscore.Result
}
