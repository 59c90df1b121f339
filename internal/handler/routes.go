package handler

import (
	"github.com/gofiber/fiber/v2"
)

// Handlers groups every HTTP handler of the service.
type Handlers struct {
	Health     *HealthHandler
	User       *UserHandler
	Settings   *SettingsHandler
	Task       *TaskHandler
	Coupon     *CouponHandler
	Bonus      *BonusHandler
	Game       *GameHandler
	Withdrawal *WithdrawalHandler
	Admin      *AdminHandler
}

// Register mounts the routes. identity resolves the client of /api routes;
// admin guards /api/admin and is skipped (admin routes not mounted) when nil.
func Register(app *fiber.App, h *Handlers, identity, admin fiber.Handler) {
	app.Get("/health", h.Health.Check)

	// Public settings carry no per-user data.
	app.Get("/api/settings", h.Settings.Get)

	if admin != nil {
		a := app.Group("/api/admin", admin)
		a.Get("/stats", h.Admin.Stats)
		a.Get("/users", h.Admin.ListUsers)
		a.Post("/users/:id/block", h.Admin.ToggleBlock)

		a.Get("/settings", h.Settings.Get)
		a.Put("/settings", h.Settings.Update)

		a.Get("/tasks", h.Task.AdminList)
		a.Post("/tasks", h.Task.Create)
		a.Put("/tasks/:id", h.Task.Update)
		a.Delete("/tasks/:id", h.Task.Delete)

		a.Get("/coupons", h.Coupon.List)
		a.Post("/coupons", h.Coupon.Create)
		a.Get("/coupons/:code", h.Coupon.Get)
		a.Delete("/coupons/:code", h.Coupon.Delete)

		a.Get("/withdrawals", h.Withdrawal.AdminList)
		a.Post("/withdrawals/:id/approve", h.Withdrawal.Approve)
		a.Post("/withdrawals/:id/reject", h.Withdrawal.Reject)
	}

	api := app.Group("/api", identity)
	api.Get("/me", h.User.Me)
	api.Post("/me/welcome", h.User.Welcome)
	api.Get("/me/ledger", h.User.Ledger)

	api.Get("/tasks", h.Task.List)
	api.Post("/tasks/finalize", h.Task.Finalize)
	api.Delete("/tasks/verification", h.Task.Cancel)
	api.Post("/tasks/:id/start", h.Task.Start)

	api.Post("/coupons/redeem", h.Coupon.Redeem)

	api.Get("/bonus", h.Bonus.Status)
	api.Post("/bonus/claim", h.Bonus.Claim)

	api.Get("/games", h.Game.List)
	api.Post("/games/:id/settle", h.Game.Settle)

	api.Get("/withdrawals", h.Withdrawal.ListMine)
	api.Post("/withdrawals", h.Withdrawal.Request)
}
