package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// SettingsServiceInterface defines the settings operations used by SettingsHandler.
type SettingsServiceInterface interface {
	GetSettings(ctx context.Context) (*model.Settings, error)
	UpdateSettings(ctx context.Context, isAdmin bool, req *model.UpdateSettingsRequest) (*model.Settings, error)
}

// SettingsHandler serves the reward settings.
type SettingsHandler struct {
	service   SettingsServiceInterface
	validator *validator.Validate
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(svc SettingsServiceInterface, v *validator.Validate) *SettingsHandler {
	return &SettingsHandler{service: svc, validator: v}
}

// Get handles GET /api/settings and GET /api/admin/settings.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	settings, err := h.service.GetSettings(c.Context())
	if err != nil {
		return fail(c, err, "get settings")
	}
	return c.JSON(settings)
}

// Update handles PUT /api/admin/settings.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req model.UpdateSettingsRequest
	if ok, err := parseBody(c, h.validator, &req); !ok {
		return err
	}

	settings, err := h.service.UpdateSettings(c.Context(), middleware.IsAdmin(c), &req)
	if err != nil {
		return fail(c, err, "update settings")
	}

	log.Info().
		Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Int64("daily_bonus_amount", settings.DailyBonusAmount).
		Int64("referral_bonus_amount", settings.ReferralBonusAmount).
		Int64("min_withdrawal", settings.MinWithdrawal).
		Bool("is_withdrawal_enabled", settings.IsWithdrawalEnabled).
		Msg("settings updated")
	return c.JSON(settings)
}
