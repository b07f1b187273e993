package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/shopfinder/internal/clock"
	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/smallbiznis/shopfinder/pkg/db"
	"go.uber.org/zap"
)

type Window string

const (
	WindowHour Window = "hour"
	WindowDay  Window = "day"
)

func (w Window) Duration() time.Duration {
	if w == WindowDay {
		return 24 * time.Hour
	}
	return time.Hour
}

type Limits struct {
	PerHour int
	PerDay  int
}

func LimitsFromConfig(cfg config.Config) Limits {
	return Limits{
		PerHour: cfg.RateLimit.SubmissionsPerHour,
		PerDay:  cfg.RateLimit.SubmissionsPerDay,
	}
}

// Result describes the first window that is at capacity, if any.
type Result struct {
	Limited bool
	Window  Window
	Cap     int
	Count   int64
	Message string
}

// ShopCounter counts shops a user created since a point in time.
type ShopCounter interface {
	CountCreatedSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// PendingCounter counts a user's submissions still awaiting review.
type PendingCounter interface {
	CountPendingSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// SubmissionLimiter caps how many shops a user can put in front of the
// directory per rolling hour and day. Created shops and queued submissions
// draw from the same quota.
type SubmissionLimiter struct {
	limits  Limits
	shops   ShopCounter
	pending PendingCounter
	clock   clock.Clock
	log     *zap.Logger
}

func NewSubmissionLimiter(limits Limits, shops ShopCounter, pending PendingCounter, clk clock.Clock, log *zap.Logger) *SubmissionLimiter {
	return &SubmissionLimiter{
		limits:  limits,
		shops:   shops,
		pending: pending,
		clock:   clk,
		log:     log.Named("ratelimit.submissions"),
	}
}

func (l *SubmissionLimiter) Limits() Limits {
	return l.limits
}

// Check counts the user's recent submissions. The hourly window is checked
// before the daily one.
func (l *SubmissionLimiter) Check(ctx context.Context, userID string) (Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Result{}, fmt.Errorf("rate limit: empty user id")
	}

	now := l.clock.Now()
	for _, w := range []struct {
		window Window
		cap    int
	}{
		{WindowHour, l.limits.PerHour},
		{WindowDay, l.limits.PerDay},
	} {
		if w.cap <= 0 {
			continue
		}
		total, err := l.count(ctx, userID, now.Add(-w.window.Duration()))
		if err != nil {
			return Result{}, err
		}
		if total >= int64(w.cap) {
			return Result{
				Limited: true,
				Window:  w.window,
				Cap:     w.cap,
				Count:   total,
				Message: fmt.Sprintf("Submission limit reached: max %d new shops per %s. Try again later.", w.cap, w.window),
			}, nil
		}
	}
	return Result{}, nil
}

func (l *SubmissionLimiter) count(ctx context.Context, userID string, since time.Time) (int64, error) {
	created, err := l.shops.CountCreatedSince(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("count created shops: %w", err)
	}

	pending, err := l.pending.CountPendingSince(ctx, userID, since)
	if err != nil {
		if !db.IsSchemaError(err) {
			return 0, fmt.Errorf("count pending submissions: %w", err)
		}
		// Submissions table not migrated yet: only created shops count.
		l.log.Warn("pending submissions unavailable, counting created shops only", zap.Error(err))
		pending = 0
	}
	return created + pending, nil
}
