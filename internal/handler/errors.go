package handler

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/middleware"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/service"
)

// statusTable maps service sentinels to HTTP status codes. Unlisted errors are 500.
var statusTable = []struct {
	err    error
	status int
}{
	{service.ErrInvalidRequest, fiber.StatusBadRequest},
	{service.ErrInvalidAmount, fiber.StatusBadRequest},
	{service.ErrBelowMinimum, fiber.StatusBadRequest},
	{service.ErrInsufficientBalance, fiber.StatusBadRequest},
	{service.ErrCouponExhausted, fiber.StatusBadRequest},

	{service.ErrForbidden, fiber.StatusForbidden},
	{service.ErrUserBlocked, fiber.StatusForbidden},

	{service.ErrUserNotFound, fiber.StatusNotFound},
	{service.ErrTaskNotFound, fiber.StatusNotFound},
	{service.ErrCouponNotFound, fiber.StatusNotFound},
	{service.ErrGameNotFound, fiber.StatusNotFound},
	{service.ErrWithdrawalNotFound, fiber.StatusNotFound},

	{service.ErrTaskInactive, fiber.StatusConflict},
	{service.ErrTaskAlreadyCompleted, fiber.StatusConflict},
	{service.ErrTaskInFlight, fiber.StatusConflict},
	{service.ErrNoPendingTask, fiber.StatusConflict},
	{service.ErrVerificationPending, fiber.StatusConflict},
	{service.ErrCouponExists, fiber.StatusConflict},
	{service.ErrCouponExpired, fiber.StatusConflict},
	{service.ErrAlreadyClaimed, fiber.StatusConflict},
	{service.ErrBonusOnCooldown, fiber.StatusConflict},
	{service.ErrWithdrawalDisabled, fiber.StatusConflict},
	{service.ErrWithdrawalNotPending, fiber.StatusConflict},
}

// statusOf returns the HTTP status for err and whether err is an expected outcome.
func statusOf(err error) (int, bool) {
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status, true
		}
	}
	return fiber.StatusInternalServerError, false
}

// fail writes the JSON error response for a service error.
// Expected outcomes are logged at info level, everything else at error level.
func fail(c *fiber.Ctx, err error, op string) error {
	status, expected := statusOf(err)

	var ev *zerolog.Event
	if expected {
		ev = log.Info()
	} else {
		ev = log.Error().Err(err)
	}
	ev.Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Str("op", op).
		Int("status", status)
	if uid := middleware.UserID(c); uid != "" {
		ev.Str("user_id", uid)
	}
	if expected {
		ev.Str("reason", err.Error()).Msg("request rejected")
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}
	ev.Msg("request failed")
	return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
}

// parseBody decodes and validates the JSON body into req. It writes the 400 response itself
// and returns false when the body is rejected.
func parseBody(c *fiber.Ctx, v *validator.Validate, req any) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		return false, badBody(c)
	}
	if err := v.Struct(req); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": formatValidationError(err)})
	}
	return true, nil
}

// formatValidationError converts the first validator error into a readable message.
func formatValidationError(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return "invalid request: " + field + " is required"
	case "notblank":
		return "invalid request: " + field + " cannot be whitespace only"
	case "max":
		return "invalid request: " + field + " exceeds maximum length of " + fe.Param()
	case "gte":
		return "invalid request: " + field + " must be at least " + fe.Param()
	case "url":
		return "invalid request: " + field + " must be a valid URL"
	default:
		return "invalid request: " + field + " is invalid"
	}
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c *fiber.Ctx, key string) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
