package model

import "time"

// Coupon represents a redeemable coupon code.
type Coupon struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Reward     int64     `json:"reward"`
	UsageLimit int       `json:"usage_limit"`
	UsedCount  int       `json:"used_count"`
	ExpiryDate time.Time `json:"expiry_date"`
	CreatedAt  time.Time `json:"-"` // Not exposed in API
}

// Exhausted reports whether the coupon reached its usage limit.
// An exhausted coupon stays inert regardless of expiry.
func (c *Coupon) Exhausted() bool {
	return c.UsedCount >= c.UsageLimit
}

// ExpiredAt reports whether the coupon is expired at the given instant.
func (c *Coupon) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiryDate)
}

// CouponResponse is the API response DTO for GET /api/admin/coupons/:code
type CouponResponse struct {
	Coupon
	ClaimedBy []string `json:"claimed_by"`
}

// CreateCouponRequest is the DTO for creating a coupon
type CreateCouponRequest struct {
	Code       string     `json:"code" validate:"required,notblank,max=64"`
	Reward     *int64     `json:"reward" validate:"required,gte=1"`
	UsageLimit *int       `json:"usage_limit" validate:"required,gte=1"`
	ExpiryDate *time.Time `json:"expiry_date" validate:"required"`
}

// RedeemCouponRequest is the DTO for redeeming a coupon
type RedeemCouponRequest struct {
	Code string `json:"code" validate:"required,notblank,max=64"`
}

// RedeemResult is returned after a successful redemption.
type RedeemResult struct {
	CouponID string `json:"coupon_id"`
	Code     string `json:"code"`
	Reward   int64  `json:"reward"`
	Coins    int64  `json:"coins"`
}
