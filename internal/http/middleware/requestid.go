package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the correlation id on requests and responses.
	RequestIDHeader = "X-Request-ID"
	// RequestIDLocalKey is the Fiber locals key holding the accepted id.
	RequestIDLocalKey = "request_id"

	maxRequestIDLen = 128
)

// RequestID tags every request with a correlation id that flows into access
// logs, error envelopes and the X-Request-ID response header.
//
// A caller supplied id is kept only when it is at most 128 bytes of
// [A-Za-z0-9._:-]. Anything else is replaced with a fresh UUID so client
// input never reaches the log stream verbatim.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		c.Locals(RequestIDLocalKey, id)
		c.Set(RequestIDHeader, id)

		return c.Next()
	}
}

// GetRequestID returns the id stored by RequestID, or "" outside that middleware.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDLocalKey).(string)
	return id
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch ch := id[i]; {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == '-', ch == '_', ch == '.', ch == ':':
		default:
			return false
		}
	}
	return true
}
