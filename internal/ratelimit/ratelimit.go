package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Limiter is a fixed-window counter on redis, keyed per client, so the
// limit holds across service instances.
type Limiter struct {
	RDB    *redis.Client
	Window time.Duration
	Max    int64
}

func New(rdb *redis.Client, window time.Duration, max int64) *Limiter {
	return &Limiter{RDB: rdb, Window: window, Max: max}
}

// Allow counts a hit for key and reports whether it is within the
// window's budget. Without redis configured the limiter lets
// everything through.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil || l.RDB == nil {
		return true, nil
	}

	n, err := l.RDB.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := l.RDB.Expire(ctx, key, l.Window).Err(); err != nil {
			return false, err
		}
	}
	return n <= l.Max, nil
}

// Middleware limits by client IP under the given key prefix. Redis
// being down fails open: rejecting all traffic because the limiter's
// store is gone would be the worse outage.
func (l *Limiter) Middleware(prefix string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := fmt.Sprintf("ratelimit:%s:%s", prefix, c.RealIP())
			ok, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				c.Logger().Errorf("rate limiter error: %v", err)
				return next(c)
			}
			if !ok {
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
