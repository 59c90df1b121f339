package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// GameServiceInterface defines the minigame operations used by GameHandler.
type GameServiceInterface interface {
	Catalog() []model.Game
	Settle(ctx context.Context, userID, gameID string, score, elapsedSeconds int64) (*model.GameResult, error)
}

// GameHandler serves the minigame catalog and settles game outcomes.
type GameHandler struct {
	service   GameServiceInterface
	validator *validator.Validate
}

// NewGameHandler creates a new GameHandler.
func NewGameHandler(svc GameServiceInterface, v *validator.Validate) *GameHandler {
	return &GameHandler{service: svc, validator: v}
}

// List handles GET /api/games.
func (h *GameHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"games": h.service.Catalog()})
}

// Settle handles POST /api/games/:id/settle.
func (h *GameHandler) Settle(c *fiber.Ctx) error {
	var req model.SettleGameRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	result, err := h.service.Settle(c.Context(), middleware.UserID(c), c.Params("id"), *req.Score, *req.TimeElapsedSeconds)
	if err != nil {
		return fail(c, err, "settle game")
	}
	return c.JSON(result)
}
