package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// BonusServiceInterface defines the daily bonus operations used by BonusHandler.
type BonusServiceInterface interface {
	Status(ctx context.Context, userID string) (*model.BonusStatus, error)
	Claim(ctx context.Context, userID string) (*model.BonusResult, error)
}

// BonusHandler serves the daily bonus.
type BonusHandler struct {
	service BonusServiceInterface
}

// NewBonusHandler creates a new BonusHandler.
func NewBonusHandler(svc BonusServiceInterface) *BonusHandler {
	return &BonusHandler{service: svc}
}

// Status handles GET /api/bonus.
func (h *BonusHandler) Status(c *fiber.Ctx) error {
	status, err := h.service.Status(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err, "bonus status")
	}
	return c.JSON(status)
}

// Claim handles POST /api/bonus/claim.
func (h *BonusHandler) Claim(c *fiber.Ctx) error {
	result, err := h.service.Claim(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err, "claim bonus")
	}
	return c.JSON(result)
}
