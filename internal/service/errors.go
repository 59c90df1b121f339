package service

import "errors"

// Validation errors.
var (
	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidAmount is returned when a ledger amount is out of range
	ErrInvalidAmount = errors.New("invalid amount")
)

// Policy errors. These are expected outcomes of user actions, not failures.
var (
	ErrForbidden = errors.New("admin capability required")

	ErrUserBlocked = errors.New("user is blocked")

	ErrInsufficientBalance = errors.New("insufficient balance")

	ErrTaskInactive = errors.New("task is not active")

	ErrTaskAlreadyCompleted = errors.New("task already completed")

	// ErrTaskInFlight is returned when another task is still pending verification for the user
	ErrTaskInFlight = errors.New("another task is pending verification")

	ErrNoPendingTask = errors.New("no task pending verification")

	// ErrVerificationPending is returned when finalize is called before the countdown elapsed
	ErrVerificationPending = errors.New("verification countdown has not elapsed")

	ErrCouponExists = errors.New("coupon already exists")

	// ErrCouponExhausted is returned when a coupon reached its usage limit
	ErrCouponExhausted = errors.New("coupon usage limit reached")

	ErrCouponExpired = errors.New("coupon has expired")

	// ErrAlreadyClaimed is returned when a user attempts to redeem a coupon they already redeemed
	ErrAlreadyClaimed = errors.New("coupon already claimed by user")

	ErrBonusOnCooldown = errors.New("daily bonus already claimed")

	ErrWithdrawalDisabled = errors.New("withdrawals are disabled")

	ErrBelowMinimum = errors.New("amount is below the minimum withdrawal")

	// ErrWithdrawalNotPending is returned when deciding on a request that already reached a terminal state
	ErrWithdrawalNotPending = errors.New("withdrawal request is not pending")
)

// Consistency errors: the referenced record does not exist.
var (
	ErrUserNotFound = errors.New("user not found")

	ErrTaskNotFound = errors.New("task not found")

	// ErrCouponNotFound is returned when a coupon cannot be found
	ErrCouponNotFound = errors.New("coupon not found")

	ErrGameNotFound = errors.New("game not found")

	ErrWithdrawalNotFound = errors.New("withdrawal request not found")
)
