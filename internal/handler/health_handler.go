package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports the readiness of the service dependencies.
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a new HealthHandler backed by the database pool.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check handles GET /health: 200 {"status": "healthy"} when the database answers,
// 503 {"status": "unhealthy"} otherwise.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	if err := h.db.Ping(c.Context()); err != nil {
		log.Error().Err(err).Msg("health check failed: database unreachable")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
			"checks": fiber.Map{"database": "unreachable"},
		})
	}
	return c.JSON(fiber.Map{
		"status": "healthy",
		"checks": fiber.Map{"database": "ok"},
	})
}
