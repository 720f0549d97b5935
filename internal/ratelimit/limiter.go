// Package ratelimit implements sliding-window rate limiting on Redis.
//
// Each key holds a sorted set of accepted request timestamps. A single Lua
// script trims entries older than the window, counts the rest and records the
// new request only when the count is below the limit, so check and consume
// happen atomically on the Redis side.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "ratelimit"

// KEYS[1] = sorted set key
// ARGV = now_ms, window_ms, limit, member
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end

return {allowed, limit - count, reset}
`)

// Policy permits at most Limit accepted requests in any trailing Window
type Policy struct {
	Limit  int
	Window time.Duration
}

// Result describes the outcome of a single Limit call
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the oldest accepted request leaves the window
	Reset time.Time
}

// RetryAfter returns how long the caller should wait before retrying
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.Reset.After(now) {
		return 0
	}
	return r.Reset.Sub(now)
}

// Limiter applies sliding-window policies to arbitrary keys
type Limiter struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// Option configures a Limiter
type Option func(*Limiter)

// WithPrefix sets the Redis key prefix
func WithPrefix(prefix string) Option {
	return func(l *Limiter) { l.prefix = prefix }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func NewLimiter(client *redis.Client, opts ...Option) *Limiter {
	l := &Limiter{
		client: client,
		prefix: defaultPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit checks and, when allowed, consumes one slot of p for key.
// A consumed slot is never returned, even if the caller's work fails later.
func (l *Limiter) Limit(ctx context.Context, key string, p Policy) (Result, error) {
	if p.Limit <= 0 || p.Window <= 0 {
		return Result{}, fmt.Errorf("invalid rate limit policy: limit=%d window=%s", p.Limit, p.Window)
	}

	now := l.now()
	res, err := slidingWindowScript.Run(ctx, l.client,
		[]string{l.key(key)},
		now.UnixMilli(),
		p.Window.Milliseconds(),
		p.Limit,
		fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()),
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("failed to evaluate rate limit: %w", err)
	}
	if len(res) != 3 {
		return Result{}, fmt.Errorf("unexpected rate limit reply length %d", len(res))
	}

	return Result{
		Allowed:   res[0] == 1,
		Limit:     p.Limit,
		Remaining: int(max(res[1], 0)),
		Reset:     time.UnixMilli(res[2]),
	}, nil
}

// LimitIP applies p to requests from ip for a named purpose (e.g. "login")
func (l *Limiter) LimitIP(ctx context.Context, ip, purpose string, p Policy) (Result, error) {
	return l.Limit(ctx, fmt.Sprintf("ip:%s:%s", purpose, ip), p)
}

// StartEmailCooldown starts a cooldown for email and reports whether one
// was already running. Only the first caller in a cooldown period gets false.
func (l *Limiter) StartEmailCooldown(ctx context.Context, email string, cooldown time.Duration) (bool, error) {
	key := fmt.Sprintf("%s:cooldown:%s", l.prefix, strings.ToLower(strings.TrimSpace(email)))

	set, err := l.client.SetNX(ctx, key, "1", cooldown).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set email cooldown: %w", err)
	}
	return !set, nil
}

func (l *Limiter) key(key string) string {
	return l.prefix + ":" + key
}
