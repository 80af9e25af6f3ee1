// Package ratelimit provides a Redis backed limiter shared by every API replica.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoBackend is returned by Allow when the limiter has no Redis client.
var ErrNoBackend = errors.New("rate limiter has no redis client")

// slidingWindowScript trims expired entries, then admits the request when the
// window has room. It returns the remaining slots, or minus the milliseconds
// until the oldest entry expires when the window is full.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local max_requests = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)
	if count < max_requests then
		redis.call('ZADD', key, now, member)
		redis.call('PEXPIRE', key, window_ms * 2)
		return max_requests - count - 1
	end

	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if #oldest > 0 then
		return -math.max(1, oldest[2] + window_ms - now)
	end
	return -window_ms
`)

// SlidingWindow allows Limit requests per key in any Window long interval.
type SlidingWindow struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	prefix string
	seq    func() string
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// NewSlidingWindow creates a limiter storing its windows under "<prefix>:<key>".
func NewSlidingWindow(client *redis.Client, prefix string, limit int, window time.Duration) *SlidingWindow {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &SlidingWindow{
		redis:  client,
		limit:  limit,
		window: window,
		prefix: prefix,
		seq:    nanoSeq,
	}
}

func nanoSeq() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// Limit returns the requests allowed per window.
func (l *SlidingWindow) Limit() int {
	return l.limit
}

// Window returns the window length.
func (l *SlidingWindow) Window() time.Duration {
	return l.window
}

// Key returns the Redis key of a limiter key.
func (l *SlidingWindow) Key(key string) string {
	return l.prefix + ":" + key
}

// Allow counts one request for key. Errors leave the decision to the caller.
func (l *SlidingWindow) Allow(ctx context.Context, key string) (Decision, error) {
	if l.redis == nil {
		return Decision{}, ErrNoBackend
	}

	now := time.Now()
	result, err := slidingWindowScript.Run(ctx, l.redis, []string{l.Key(key)},
		now.UnixMilli(),
		now.Add(-l.window).UnixMilli(),
		l.limit,
		l.window.Milliseconds(),
		l.seq(),
	).Int64()
	if err != nil {
		return Decision{}, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return decide(result), nil
}

func decide(result int64) Decision {
	if result >= 0 {
		return Decision{Allowed: true, Remaining: int(result)}
	}
	return Decision{RetryAfter: time.Duration(-result) * time.Millisecond}
}
