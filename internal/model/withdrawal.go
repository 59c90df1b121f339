package model

import "time"

// WithdrawalStatus is the lifecycle state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalApproved, WithdrawalRejected:
		return true
	}
	return false
}

// Withdrawal is a request to pay out coins. The amount is debited when the request is created.
type Withdrawal struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	Amount        int64            `json:"amount"`
	WalletAddress string           `json:"wallet_address"`
	Status        WithdrawalStatus `json:"status"`
	CreatedAt     time.Time        `json:"created_at"`
	DecidedAt     *time.Time       `json:"decided_at,omitempty"`
}

// WithdrawalRequest is the DTO for POST /api/withdrawals
type WithdrawalRequest struct {
	Amount        *int64 `json:"amount" validate:"required,gte=1"`
	WalletAddress string `json:"wallet_address" validate:"required,notblank,max=255"`
}
