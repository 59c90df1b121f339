package model

import "time"

// BonusStatus describes the daily bonus availability for a user.
type BonusStatus struct {
	Amount        int64      `json:"amount"`
	Available     bool       `json:"available"`
	LastClaimedAt *time.Time `json:"last_claimed_at"`
	NextClaimAt   *time.Time `json:"next_claim_at"`
}

// BonusResult is returned after a daily bonus is credited.
type BonusResult struct {
	Amount      int64     `json:"amount"`
	Coins       int64     `json:"coins"`
	NextClaimAt time.Time `json:"next_claim_at"`
}
