// Package notify tells moderators about submissions that need a human.
package notify

import (
	"context"
	"time"
)

type EventKind string

const (
	// EventQueued is sent when a submission lands in the review queue.
	EventQueued EventKind = "submission_queued"
	// EventChainBlocked is sent when the scorer refuses a submission.
	EventChainBlocked EventKind = "chain_blocked"
)

// Event carries identifiers and scoring output only; submitted addresses
// and descriptions stay in the database.
type Event struct {
	Kind         EventKind `json:"kind"`
	SubmissionID string    `json:"submission_id,omitempty"`
	BrandKey     string    `json:"brand_key"`
	DisplayName  string    `json:"display_name"`
	SubmitterID  string    `json:"submitter_id"`
	Score        int       `json:"score"`
	Decision     string    `json:"decision"`
	Reasons      []string  `json:"reasons"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type Provider interface {
	Notify(ctx context.Context, event Event) error
}

type NoOpProvider struct{}

func (NoOpProvider) Notify(context.Context, Event) error {
	return nil
}
