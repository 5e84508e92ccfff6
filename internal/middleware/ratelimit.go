package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// WindowStart aligns t down to a fixed window boundary. Every limiter in
// the codebase buckets this way; a burst straddling a boundary can briefly
// pass up to twice the nominal rate, which is an accepted tradeoff of the
// fixed-window scheme and must not be silently upgraded to a sliding
// window.
func WindowStart(t time.Time, window time.Duration) time.Time {
	return t.UTC().Truncate(window)
}

// SetRateHeaders attaches the standard rate-limit metadata headers.
func SetRateHeaders(c echo.Context, limit, remaining int64, reset time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	h.Set("X-RateLimit-Reset", reset.UTC().Format(time.RFC3339))
}

// Counter is the slice of Redis the IP limiter uses: atomic increment plus
// key expiry.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

type redisCounter struct {
	rdb *redis.Client
}

func (r redisCounter) Incr(ctx context.Context, key string) (int64, error) {
	return r.rdb.Incr(ctx, key).Result()
}

func (r redisCounter) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.rdb.Expire(ctx, key, ttl).Err()
}

// NewRedisCounter wraps a Redis client for IPRateLimit. A nil client yields
// a nil Counter, which disables the limiter.
func NewRedisCounter(rdb *redis.Client) Counter {
	if rdb == nil {
		return nil
	}
	return redisCounter{rdb: rdb}
}

// IPRateLimit returns middleware applying a fixed-window counter keyed by
// (client IP, action). It protects the unauthenticated flows (login,
// signup, reset requests) from credential stuffing. The threshold is
// configuration, not a hard invariant. A nil counter or a counter error
// degrades to letting the request through; abuse prevention must never
// take the login path down with it.
func IPRateLimit(counter Counter, action string, limit int64, window time.Duration) echo.MiddlewareFunc {
	if counter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			now := time.Now()
			start := WindowStart(now, window)
			reset := start.Add(window)

			ip := c.RealIP()
			if ip == "" {
				ip = "unknown"
			}
			key := fmt.Sprintf("rl:%s:%s:%d", action, ip, start.Unix())

			ctx := c.Request().Context()
			n, err := counter.Incr(ctx, key)
			if err != nil {
				log.Printf("ratelimit: incr failed for %s: %v", key, err)
				return next(c)
			}
			if n == 1 {
				// First hit in this bucket; expire the key at window end.
				if err := counter.Expire(ctx, key, time.Until(reset)); err != nil {
					log.Printf("ratelimit: expire failed for %s: %v", key, err)
				}
			}

			remaining := limit - n
			if remaining < 0 {
				remaining = 0
			}
			SetRateHeaders(c, limit, remaining, reset)

			if n > limit {
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"success": false,
					"error":   "Too many requests, please try again later",
				})
			}
			return next(c)
		}
	}
}
