package model

import "time"

// LedgerSource names what caused a balance change.
type LedgerSource string

const (
	SourceSignup           LedgerSource = "signup"
	SourceReferral         LedgerSource = "referral"
	SourceTask             LedgerSource = "task"
	SourceCoupon           LedgerSource = "coupon"
	SourceDailyBonus       LedgerSource = "daily_bonus"
	SourceGame             LedgerSource = "game"
	SourceWithdrawal       LedgerSource = "withdrawal"
	SourceWithdrawalRefund LedgerSource = "withdrawal_refund"
)

// LedgerEntry records one balance change. Amount is positive for credits and negative for debits.
type LedgerEntry struct {
	ID          int64        `json:"id"`
	UserID      string       `json:"user_id"`
	Amount      int64        `json:"amount"`
	Source      LedgerSource `json:"source"`
	Reference   string       `json:"reference,omitempty"`
	CoinsBefore int64        `json:"coins_before"`
	CoinsAfter  int64        `json:"coins_after"`
	CreatedAt   time.Time    `json:"created_at"`
}
