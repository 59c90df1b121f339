package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// SettingsRepository reads and writes the single settings row.
type SettingsRepository struct {
	pool PoolInterface
}

// NewSettingsRepository creates a new SettingsRepository with the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// NewSettingsRepositoryWithPool creates a new SettingsRepository with a custom pool interface.
func NewSettingsRepositoryWithPool(pool PoolInterface) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Get returns the current settings, inside q when it is not nil.
func (r *SettingsRepository) Get(ctx context.Context, q database.TxQuerier) (*model.Settings, error) {
	var s model.Settings
	err := querier(r.pool, q).QueryRow(ctx,
		`SELECT daily_bonus_amount, referral_bonus_amount, min_withdrawal, is_withdrawal_enabled, ad_codes, updated_at
		 FROM settings WHERE id = 1`).
		Scan(&s.DailyBonusAmount, &s.ReferralBonusAmount, &s.MinWithdrawal, &s.IsWithdrawalEnabled, &s.AdCodes, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if s.AdCodes == nil {
		s.AdCodes = map[string][]string{}
	}
	return &s, nil
}

// Update overwrites the settings row. Last write wins.
func (r *SettingsRepository) Update(ctx context.Context, s *model.Settings) error {
	adCodes := s.AdCodes
	if adCodes == nil {
		adCodes = map[string][]string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO settings (id, daily_bonus_amount, referral_bonus_amount, min_withdrawal, is_withdrawal_enabled, ad_codes, updated_at)
		 VALUES (1, $1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
		   daily_bonus_amount = EXCLUDED.daily_bonus_amount,
		   referral_bonus_amount = EXCLUDED.referral_bonus_amount,
		   min_withdrawal = EXCLUDED.min_withdrawal,
		   is_withdrawal_enabled = EXCLUDED.is_withdrawal_enabled,
		   ad_codes = EXCLUDED.ad_codes,
		   updated_at = EXCLUDED.updated_at`,
		s.DailyBonusAmount, s.ReferralBonusAmount, s.MinWithdrawal, s.IsWithdrawalEnabled, adCodes, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}
