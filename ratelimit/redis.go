package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow increments the counter for the current window and returns
// {count, pttl}. The expiry is set only when the window is created.
var fixedWindow = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// RedisLimiter is a Redis-backed fixed-window limiter, shared by every
// server instance pointing at the same Redis.
type RedisLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	rate      int
	period    time.Duration
}

// RedisConfig holds Redis rate limiter configuration.
type RedisConfig struct {
	// Client is the Redis client to use.
	Client redis.Cmdable

	// KeyPrefix is the prefix for all rate limit keys.
	// Defaults to "userreg:ratelimit:".
	KeyPrefix string

	// Rate is the number of requests allowed per window.
	Rate int

	// Window is the time window for the rate limit.
	Window time.Duration
}

// NewRedisLimiter creates a new Redis-backed rate limiter.
func NewRedisLimiter(cfg *RedisConfig) *RedisLimiter {
	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "userreg:ratelimit:"
	}

	return &RedisLimiter{
		client:    cfg.Client,
		keyPrefix: keyPrefix,
		rate:      cfg.Rate,
		period:    cfg.Window,
	}
}

// Allow records one request for key and reports whether it is allowed.
func (r *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := fixedWindow.Run(ctx, r.client, []string{r.keyPrefix + key},
		r.period.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("redis rate limit script failed: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("redis rate limit script returned %d values", len(vals))
	}

	count, ttl := vals[0], vals[1]
	if ttl < 0 {
		ttl = r.period.Milliseconds()
	}

	res := Result{
		Limit:   r.rate,
		ResetAt: time.Now().Add(time.Duration(ttl) * time.Millisecond),
	}
	if count > int64(r.rate) {
		return res, nil
	}
	res.Allowed = true
	res.Remaining = r.rate - int(count)
	return res, nil
}

// Close is a no-op; the client is managed by the caller.
func (r *RedisLimiter) Close() error {
	return nil
}
