package model

import "time"

// Settings is the process-wide reward configuration edited by administrators.
type Settings struct {
	DailyBonusAmount    int64               `json:"daily_bonus_amount"`
	ReferralBonusAmount int64               `json:"referral_bonus_amount"`
	MinWithdrawal       int64               `json:"min_withdrawal"`
	IsWithdrawalEnabled bool                `json:"is_withdrawal_enabled"`
	AdCodes             map[string][]string `json:"ad_codes"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// UpdateSettingsRequest is the DTO for PUT /api/admin/settings
type UpdateSettingsRequest struct {
	DailyBonusAmount    *int64              `json:"daily_bonus_amount" validate:"required,gte=0"`
	ReferralBonusAmount *int64              `json:"referral_bonus_amount" validate:"required,gte=0"`
	MinWithdrawal       *int64              `json:"min_withdrawal" validate:"required,gte=0"`
	IsWithdrawalEnabled *bool               `json:"is_withdrawal_enabled" validate:"required"`
	AdCodes             map[string][]string `json:"ad_codes"`
}

// AdminStats summarizes the platform for the admin dashboard.
type AdminStats struct {
	TotalUsers          int64 `json:"total_users"`
	CoinsOutstanding    int64 `json:"coins_outstanding"`
	PendingWithdrawals  int64 `json:"pending_withdrawals"`
	CoinsWithdrawn      int64 `json:"coins_withdrawn"`
	TotalTasksCompleted int64 `json:"total_tasks_completed"`
}
