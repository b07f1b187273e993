package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smallbiznis/shopfinder/internal/clock"
	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// events is a fake store: timestamps of created shops and pending
// submissions per user.
type events struct {
	shops      map[string][]time.Time
	pending    map[string][]time.Time
	pendingErr error
}

func (e *events) CountCreatedSince(_ context.Context, userID string, since time.Time) (int64, error) {
	return countSince(e.shops[userID], since), nil
}

func (e *events) CountPendingSince(_ context.Context, userID string, since time.Time) (int64, error) {
	if e.pendingErr != nil {
		return 0, e.pendingErr
	}
	return countSince(e.pending[userID], since), nil
}

func countSince(times []time.Time, since time.Time) int64 {
	var n int64
	for _, t := range times {
		if !t.Before(since) {
			n++
		}
	}
	return n
}

func newLimiter(t *testing.T, e *events) (*SubmissionLimiter, *clock.FakeClock) {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewSubmissionLimiter(Limits{PerHour: 3, PerDay: 12}, e, e, clk, zaptest.NewLogger(t)), clk
}

func TestCheckMixedShopsAndPendingHitHourlyCap(t *testing.T) {
	e := &events{shops: map[string][]time.Time{}, pending: map[string][]time.Time{}}
	limiter, clk := newLimiter(t, e)
	now := clk.Now()

	e.shops["user-1"] = []time.Time{now.Add(-10 * time.Minute), now.Add(-20 * time.Minute)}
	e.pending["user-1"] = []time.Time{now.Add(-5 * time.Minute)}

	res, err := limiter.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Limited)
	assert.Equal(t, WindowHour, res.Window)
	assert.Equal(t, 3, res.Cap)
	assert.EqualValues(t, 3, res.Count)
	assert.Equal(t, "Submission limit reached: max 3 new shops per hour. Try again later.", res.Message)
}

func TestCheckUnderCap(t *testing.T) {
	e := &events{shops: map[string][]time.Time{}, pending: map[string][]time.Time{}}
	limiter, clk := newLimiter(t, e)
	now := clk.Now()
	e.shops["user-1"] = []time.Time{now.Add(-10 * time.Minute), now.Add(-2 * time.Hour)}

	res, err := limiter.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, res.Limited)
	assert.Empty(t, res.Message)
}

func TestCheckDailyCap(t *testing.T) {
	e := &events{shops: map[string][]time.Time{}, pending: map[string][]time.Time{}}
	limiter, clk := newLimiter(t, e)
	now := clk.Now()
	for i := 0; i < 12; i++ {
		e.shops["user-1"] = append(e.shops["user-1"], now.Add(-time.Duration(2+i)*time.Hour))
	}

	res, err := limiter.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Limited)
	assert.Equal(t, WindowDay, res.Window)
	assert.Equal(t, "Submission limit reached: max 12 new shops per day. Try again later.", res.Message)

	// The oldest attempt falls out of the day window.
	clk.Advance(12 * time.Hour)
	res, err = limiter.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, res.Limited)
}

func TestCheckDegradesWhenSubmissionsTableMissing(t *testing.T) {
	e := &events{
		shops:      map[string][]time.Time{},
		pendingErr: errors.New("SQL logic error: no such table: shop_submissions (1)"),
	}
	limiter, clk := newLimiter(t, e)
	e.shops["user-1"] = []time.Time{clk.Now().Add(-time.Minute)}

	res, err := limiter.Check(context.Background(), "user-1")
	require.NoError(t, err)
	assert.False(t, res.Limited)
}

func TestCheckPropagatesOtherErrors(t *testing.T) {
	e := &events{pendingErr: errors.New("connection refused")}
	limiter, _ := newLimiter(t, e)

	_, err := limiter.Check(context.Background(), "user-1")
	assert.ErrorContains(t, err, "connection refused")
}

func TestGuardsDisabledWithoutRedis(t *testing.T) {
	cfg := config.Config{RateLimit: config.RateLimitConfig{LockTTLSeconds: 10, AttemptsPerMinute: 10, AttemptBurst: 5}}

	locker := NewSubmitLocker(nil, cfg, zaptest.NewLogger(t))
	assert.False(t, locker.Enabled())
	release, err := locker.Acquire(context.Background(), "user-1")
	require.NoError(t, err)
	release()

	throttle := NewAttemptThrottle(nil, cfg)
	assert.False(t, throttle.Enabled())
	res, err := throttle.Allow(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
