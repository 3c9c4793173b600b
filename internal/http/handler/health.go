package handler

import (
	"github.com/gofiber/fiber/v2"

	"kawach/internal/database"
)

// HealthCheck reports readiness: the database must answer a ping.
func HealthCheck(db database.Pinger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := database.Ready(c.UserContext(), db); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe answers 200 while the process is serving.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}
