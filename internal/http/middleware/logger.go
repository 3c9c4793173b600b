package middleware

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Logger is a middleware that logs each HTTP request in JSON format to stdout.
// Required fields:
// - request_id (taken from context locals set by RequestID middleware)
// - method
// - path
// - status
// - latency (in milliseconds, as float)
// - ts (RFC3339 in loc)
func Logger(loc *time.Location) fiber.Handler {
	return LoggerWithWriter(os.Stdout, loc)
}

// LoggerWithWriter is Logger writing to w.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	if loc == nil {
		loc = time.UTC
	}
	var mu sync.Mutex
	enc := json.NewEncoder(w)

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid := GetRequestID(c)
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		entry := map[string]any{
			"ts":         time.Now().In(loc).Format(time.RFC3339Nano),
			"request_id": rid,
			"method":     c.Method(),
			// Path only: retrieval tokens travel in the query string.
			"path":    c.Path(),
			"status":  status,
			"latency": float64(time.Since(start).Microseconds()) / 1000,
		}
		if sub, ok := c.Locals(SubjectLocalKey).(string); ok && sub != "" {
			entry["subject"] = sub
		}

		mu.Lock()
		_ = enc.Encode(entry)
		mu.Unlock()

		return err
	}
}
