package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// CouponServiceInterface defines the coupon operations used by CouponHandler.
type CouponServiceInterface interface {
	Redeem(ctx context.Context, userID, rawCode string) (*model.RedeemResult, error)

	Create(ctx context.Context, isAdmin bool, req *model.CreateCouponRequest) (*model.Coupon, error)
	GetByCode(ctx context.Context, isAdmin bool, code string) (*model.CouponResponse, error)
	List(ctx context.Context, isAdmin bool) ([]model.Coupon, error)
	Delete(ctx context.Context, isAdmin bool, code string) error
}

// CouponHandler handles HTTP requests for coupon operations.
type CouponHandler struct {
	service   CouponServiceInterface
	validator *validator.Validate
}

// NewCouponHandler creates a new CouponHandler with the given service and validator.
func NewCouponHandler(svc CouponServiceInterface, v *validator.Validate) *CouponHandler {
	return &CouponHandler{service: svc, validator: v}
}

// Redeem handles POST /api/coupons/redeem.
func (h *CouponHandler) Redeem(c *fiber.Ctx) error {
	var req model.RedeemCouponRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	userID := middleware.UserID(c)
	result, err := h.service.Redeem(c.Context(), userID, req.Code)
	if err != nil {
		return fail(c, err, "redeem coupon")
	}

	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("user_id", userID).
		Str("coupon_code", result.Code).
		Int64("reward", result.Reward).
		Msg("coupon redeemed")
	return c.JSON(result)
}

// Create handles POST /api/admin/coupons.
func (h *CouponHandler) Create(c *fiber.Ctx) error {
	var req model.CreateCouponRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	coupon, err := h.service.Create(c.Context(), middleware.IsAdmin(c), &req)
	if err != nil {
		return fail(c, err, "create coupon")
	}
	return c.Status(fiber.StatusCreated).JSON(coupon)
}

// Get handles GET /api/admin/coupons/:code.
func (h *CouponHandler) Get(c *fiber.Ctx) error {
	coupon, err := h.service.GetByCode(c.Context(), middleware.IsAdmin(c), c.Params("code"))
	if err != nil {
		return fail(c, err, "get coupon")
	}
	return c.JSON(coupon)
}

// List handles GET /api/admin/coupons.
func (h *CouponHandler) List(c *fiber.Ctx) error {
	coupons, err := h.service.List(c.Context(), middleware.IsAdmin(c))
	if err != nil {
		return fail(c, err, "list coupons")
	}
	return c.JSON(fiber.Map{"coupons": coupons})
}

// Delete handles DELETE /api/admin/coupons/:code.
func (h *CouponHandler) Delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.Context(), middleware.IsAdmin(c), c.Params("code")); err != nil {
		return fail(c, err, "delete coupon")
	}
	return c.SendStatus(fiber.StatusNoContent)
}
