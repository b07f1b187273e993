package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopfinder/internal/config"
	"go.uber.org/zap"
)

const keySubmitLock = "shopfinder:submit:lock:%s"

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// ErrSubmitInProgress is returned when the same user already has a
// submission being processed.
var ErrSubmitInProgress = errors.New("submit_in_progress")

// SubmitLocker serialises submissions per user across replicas, so two
// concurrent requests cannot both pass the quota check before either one
// is counted. A nil client disables locking.
type SubmitLocker struct {
	client *redis.Client
	script *redis.Script
	ttl    time.Duration
	log    *zap.Logger
}

func NewSubmitLocker(client *redis.Client, cfg config.Config, log *zap.Logger) *SubmitLocker {
	return &SubmitLocker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		ttl:    time.Duration(cfg.RateLimit.LockTTLSeconds) * time.Second,
		log:    log.Named("ratelimit.lock"),
	}
}

func (l *SubmitLocker) Enabled() bool {
	return l != nil && l.client != nil
}

// Acquire takes the user's lock and returns the function that releases it.
func (l *SubmitLocker) Acquire(ctx context.Context, userID string) (func(), error) {
	if !l.Enabled() {
		return func() {}, nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("lock key is empty")
	}
	if l.ttl <= 0 {
		return nil, errors.New("lock ttl must be positive")
	}

	key := fmt.Sprintf(keySubmitLock, userID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSubmitInProgress
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := l.script.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.log.Warn("release submit lock failed", zap.String("user_id", userID), zap.Error(err))
		}
	}, nil
}
