package middleware

import (
	"strconv"
	"sync"
	"time"

	"psichat_server/pkg/apperr"
	"psichat_server/pkg/logger"
	"psichat_server/pkg/ratelimit"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// RateLimiter is a fixed window limiter keyed by caller identity, or by IP
// for anonymous requests. With a shared window attached, the Redis window
// decides and the local one only applies while Redis fails.
type RateLimiter struct {
	shared   *ratelimit.SlidingWindow
	requests map[string]*requestInfo
	mu       sync.Mutex
	limit    int
	window   time.Duration
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type requestInfo struct {
	count     int
	expiresAt time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
// Call Close to stop its cleanup goroutine.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string]*requestInfo),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-rl.stop:
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()

	return rl
}

// WithShared attaches a Redis window shared by every replica.
func (rl *RateLimiter) WithShared(shared *ratelimit.SlidingWindow) *RateLimiter {
	rl.shared = shared
	return rl
}

// Close stops the cleanup goroutine.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, info := range rl.requests {
		if now.After(info.expiresAt) {
			delete(rl.requests, key)
		}
	}
}

// allow counts a request for key and reports whether it fits the window.
func (rl *RateLimiter) allow(key string) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	info, ok := rl.requests[key]
	if !ok || now.After(info.expiresAt) {
		info = &requestInfo{expiresAt: now.Add(rl.window)}
		rl.requests[key] = info
	}
	if info.count >= rl.limit {
		return false, 0, info.expiresAt
	}
	info.count++
	return true, rl.limit - info.count, info.expiresAt
}

// Handler returns the fiber middleware.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if uid, ok := c.Locals("user_id").(uuid.UUID); ok {
			key = "user:" + uid.String()
		}

		allowed, remaining, reset := rl.decide(c, key)
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			retryAfter := int(reset.Sub(rl.now()).Seconds()) + 1
			c.Set("Retry-After", strconv.Itoa(retryAfter))
			return apperr.RateLimited(retryAfter)
		}
		return c.Next()
	}
}

func (rl *RateLimiter) decide(c *fiber.Ctx, key string) (bool, int, time.Time) {
	if rl.shared != nil {
		d, err := rl.shared.Allow(c.UserContext(), key)
		if err == nil {
			if d.Allowed {
				return true, d.Remaining, rl.now().Add(rl.shared.Window())
			}
			return false, 0, rl.now().Add(d.RetryAfter)
		}
		logger.WithError(err).Warn("Shared rate limit unavailable, using the local window")
	}
	return rl.allow(key)
}
