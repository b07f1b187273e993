package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/shopfinder/internal/config"
)

const keySubmitAttempts = "shopfinder:submit:attempts:%s"

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

type BucketResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
	}
}

// Allow takes one token from key. rate is tokens per second.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (BucketResult, error) {
	if t == nil || t.client == nil {
		return BucketResult{}, errors.New("rate limiter not configured")
	}
	if key == "" {
		return BucketResult{}, errors.New("rate limiter key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return BucketResult{}, errors.New("rate limiter rate and burst must be positive")
	}

	res, err := t.script.Run(ctx, t.client, []string{key}, rate, burst, bucketTTL(rate, burst).Milliseconds()).Slice()
	if err != nil {
		return BucketResult{}, err
	}
	if len(res) < 2 {
		return BucketResult{}, errors.New("invalid rate limit script response")
	}

	allowed, _ := res[0].(int64)
	// Lua numbers are truncated to integers on the way out, so the
	// fractional balance is returned as a string.
	raw, _ := res[1].(string)
	remaining, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return BucketResult{}, fmt.Errorf("invalid token balance %q: %w", raw, err)
	}

	result := BucketResult{Allowed: allowed == 1, Remaining: int(remaining)}
	if !result.Allowed {
		result.RetryAfter = time.Duration((1 - remaining) / rate * float64(time.Second))
	}
	return result, nil
}

func bucketTTL(rate float64, burst int) time.Duration {
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

// AttemptThrottle limits how fast a single user may hit the submit endpoint,
// including attempts that end up rejected. It complements the quota, which
// only counts successful submissions.
type AttemptThrottle struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewAttemptThrottle(client *redis.Client, cfg config.Config) *AttemptThrottle {
	return &AttemptThrottle{
		bucket: NewTokenBucket(client),
		rate:   cfg.RateLimit.AttemptsPerMinute / 60,
		burst:  cfg.RateLimit.AttemptBurst,
	}
}

func (a *AttemptThrottle) Enabled() bool {
	return a != nil && a.bucket != nil
}

func (a *AttemptThrottle) Allow(ctx context.Context, userID string) (BucketResult, error) {
	if !a.Enabled() {
		return BucketResult{Allowed: true}, nil
	}
	return a.bucket.Allow(ctx, fmt.Sprintf(keySubmitAttempts, strings.TrimSpace(userID)), a.rate, a.burst)
}
