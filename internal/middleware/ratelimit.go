package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// RateLimit returns a fixed-window rate limiter backed by Redis,
// counting requests per user (falling back to client IP) and route.
// It is applied to the reservation endpoint, where retry storms during
// a booking rush would otherwise hammer the ticket row lock. A nil
// Redis client disables limiting; Redis errors fail open, since
// availability of the API matters more than precise throttling.
func RateLimit(client *redis.Client, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if client == nil || limit <= 0 {
				return next(c)
			}
			who := c.RealIP()
			if uid := c.Get("user_id"); uid != nil {
				who = fmt.Sprint(uid)
			}
			key := fmt.Sprintf("rl:%s:%s:%d", c.Path(), who, time.Now().Unix()/int64(window.Seconds()))

			ctx := c.Request().Context()
			n, err := client.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				client.Expire(ctx, key, window)
			}
			if n > int64(limit) {
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":     "too many requests",
					"retryable": true,
				})
			}
			return next(c)
		}
	}
}
