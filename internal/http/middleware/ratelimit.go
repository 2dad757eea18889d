package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"uploadapi/internal/ratelimit"
)

// RateLimit allows limit requests per window per client IP. The counter
// store is injected so a single instance can run on the in-process store
// while a multi-instance deployment shares Redis. Store errors fail open:
// at this tier availability wins over strictness.
func RateLimit(store ratelimit.Store, limit int64, window time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		count, err := store.Incr(c.UserContext(), "rl:"+c.IP(), window)
		if err != nil {
			return c.Next()
		}
		if count > limit {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(window/time.Second)))
			return fiber.NewError(fiber.StatusTooManyRequests, "too many requests")
		}
		return c.Next()
	}
}
