package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// WithdrawalServiceInterface defines the withdrawal operations used by WithdrawalHandler.
type WithdrawalServiceInterface interface {
	Request(ctx context.Context, userID string, amount int64, walletAddress string) (*model.Withdrawal, error)
	ListForUser(ctx context.Context, userID string) ([]model.Withdrawal, error)

	List(ctx context.Context, isAdmin bool, status model.WithdrawalStatus) ([]model.Withdrawal, error)
	Decide(ctx context.Context, isAdmin bool, id string, approve bool) (*model.Withdrawal, error)
}

// WithdrawalHandler handles withdrawal requests and their review.
type WithdrawalHandler struct {
	service   WithdrawalServiceInterface
	validator *validator.Validate
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(svc WithdrawalServiceInterface, v *validator.Validate) *WithdrawalHandler {
	return &WithdrawalHandler{service: svc, validator: v}
}

// Request handles POST /api/withdrawals.
func (h *WithdrawalHandler) Request(c *fiber.Ctx) error {
	var req model.WithdrawalRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	userID := middleware.UserID(c)
	w, err := h.service.Request(c.Context(), userID, *req.Amount, req.WalletAddress)
	if err != nil {
		return fail(c, err, "request withdrawal")
	}

	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("user_id", userID).
		Str("withdrawal_id", w.ID).
		Int64("amount", w.Amount).
		Msg("withdrawal requested")
	return c.Status(fiber.StatusCreated).JSON(w)
}

// ListMine handles GET /api/withdrawals.
func (h *WithdrawalHandler) ListMine(c *fiber.Ctx) error {
	list, err := h.service.ListForUser(c.Context(), middleware.UserID(c))
	if err != nil {
		return fail(c, err, "list withdrawals")
	}
	return c.JSON(fiber.Map{"withdrawals": list})
}

// AdminList handles GET /api/admin/withdrawals?status=pending.
func (h *WithdrawalHandler) AdminList(c *fiber.Ctx) error {
	list, err := h.service.List(c.Context(), middleware.IsAdmin(c), model.WithdrawalStatus(c.Query("status")))
	if err != nil {
		return fail(c, err, "list all withdrawals")
	}
	return c.JSON(fiber.Map{"withdrawals": list})
}

// Approve handles POST /api/admin/withdrawals/:id/approve.
func (h *WithdrawalHandler) Approve(c *fiber.Ctx) error {
	return h.decide(c, true)
}

// Reject handles POST /api/admin/withdrawals/:id/reject. The amount is refunded.
func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	return h.decide(c, false)
}

func (h *WithdrawalHandler) decide(c *fiber.Ctx, approve bool) error {
	w, err := h.service.Decide(c.Context(), middleware.IsAdmin(c), c.Params("id"), approve)
	if err != nil {
		return fail(c, err, "decide withdrawal")
	}

	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("withdrawal_id", w.ID).
		Str("user_id", w.UserID).
		Str("status", string(w.Status)).
		Msg("withdrawal decided")
	return c.JSON(w)
}
