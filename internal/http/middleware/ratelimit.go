package middleware

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimiter limits requests to rps per second with the given burst, shared by every caller of the route.
// Rejected requests end with fiber.ErrTooManyRequests.
func RateLimiter(rps, burst int) fiber.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *fiber.Ctx) error {
		if !limiter.Allow() {
			c.Set(fiber.HeaderRetryAfter, "1")
			return fiber.ErrTooManyRequests
		}
		return c.Next()
	}
}
