package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// UserServiceInterface defines the profile operations used by UserHandler.
type UserServiceInterface interface {
	Resolve(ctx context.Context, clientID, referralCode string) (*model.ResolveResult, error)
	Welcome(ctx context.Context, clientID string) (*model.WelcomeResult, error)
	History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error)
}

// UserHandler serves the profile of the calling client.
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserServiceInterface) *UserHandler {
	return &UserHandler{service: svc}
}

// Me handles GET /api/me. The profile is created on first visit and ?ref= attributes the referral.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	result, err := h.service.Resolve(c.Context(), userID, c.Query("ref"))
	if err != nil {
		return fail(c, err, "resolve user")
	}

	if result.Created {
		log.Info().
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("user_id", userID).
			Bool("referred", result.User.ReferredBy != nil).
			Msg("user registered")
		return c.Status(fiber.StatusCreated).JSON(result)
	}
	return c.JSON(result)
}

// Welcome handles POST /api/me/welcome.
func (h *UserHandler) Welcome(c *fiber.Ctx) error {
	result, err := h.service.Welcome(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err, "welcome")
	}
	return c.JSON(result)
}

// Ledger handles GET /api/me/ledger?limit=N.
func (h *UserHandler) Ledger(c *fiber.Ctx) error {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: limit must be a non-negative integer"})
	}

	entries, err := h.service.History(c.Context(), middleware.UserID(c), limit)
	if err != nil {
		return fail(c, err, "ledger history")
	}
	return c.JSON(fiber.Map{"entries": entries})
}
