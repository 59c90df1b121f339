package model

import "time"

// User is the persisted profile of a visiting client.
type User struct {
	ID             string     `json:"id"`
	Coins          int64      `json:"coins"`
	TasksCompleted []string   `json:"tasks_completed"`
	CouponsClaimed []string   `json:"coupons_claimed"`
	LastDailyBonus *time.Time `json:"last_daily_bonus"`
	ReferralCode   string     `json:"referral_code"`
	ReferredBy     *string    `json:"referred_by"`
	TotalReferrals int        `json:"total_referrals"`
	IsBlocked      bool       `json:"is_blocked"`
	JoinedAt       time.Time  `json:"joined_at"`
}

// ResolveResult is returned by GET /api/me.
type ResolveResult struct {
	User    *User `json:"user"`
	Created bool  `json:"created"`
}

// WelcomeResult is returned by POST /api/me/welcome.
type WelcomeResult struct {
	FirstTime bool `json:"first_time"`
}
