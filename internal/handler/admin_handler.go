package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// AdminServiceInterface defines the moderation operations used by AdminHandler.
type AdminServiceInterface interface {
	Stats(ctx context.Context, isAdmin bool) (*model.AdminStats, error)
	ListUsers(ctx context.Context, isAdmin bool, limit, offset int) ([]model.User, error)
	ToggleBlocked(ctx context.Context, isAdmin bool, userID string) (*model.User, error)
}

// AdminHandler serves the admin dashboard and user moderation.
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: svc}
}

// Stats handles GET /api/admin/stats.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context(), middleware.IsAdmin(c))
	if err != nil {
		return fail(c, err, "admin stats")
	}
	return c.JSON(stats)
}

// ListUsers handles GET /api/admin/users?limit=N&offset=M.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	limit, okLimit := queryInt(c, "limit")
	offset, okOffset := queryInt(c, "offset")
	if !okLimit || !okOffset {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: limit and offset must be non-negative integers"})
	}

	users, err := h.service.ListUsers(c.Context(), middleware.IsAdmin(c), limit, offset)
	if err != nil {
		return fail(c, err, "list users")
	}
	return c.JSON(fiber.Map{"users": users})
}

// ToggleBlock handles POST /api/admin/users/:id/block.
func (h *AdminHandler) ToggleBlock(c *fiber.Ctx) error {
	user, err := h.service.ToggleBlocked(c.Context(), middleware.IsAdmin(c), c.Params("id"))
	if err != nil {
		return fail(c, err, "toggle block")
	}

	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("user_id", user.ID).
		Bool("is_blocked", user.IsBlocked).
		Msg("user block toggled")
	return c.JSON(user)
}
