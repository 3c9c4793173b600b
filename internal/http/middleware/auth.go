package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SubjectLocalKey is the Fiber locals key holding the authenticated caller id.
const SubjectLocalKey = "subject"

// TokenVerifier resolves a bearer token to the caller's id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Authenticate requires an "Authorization: Bearer <token>" header and stores the
// verified subject under SubjectLocalKey. Missing or invalid tokens end with fiber.ErrUnauthorized.
func Authenticate(v TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return fiber.ErrUnauthorized
		}

		subject, err := v.Verify(strings.TrimSpace(token))
		if err != nil || subject == "" {
			return fiber.ErrUnauthorized
		}

		c.Locals(SubjectLocalKey, subject)
		return c.Next()
	}
}

// Subject returns the caller id stored by Authenticate, or "".
func Subject(c *fiber.Ctx) string {
	s, _ := c.Locals(SubjectLocalKey).(string)
	return s
}
