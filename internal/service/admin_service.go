package service

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// StatsRepositoryInterface defines the interface for dashboard aggregates.
type StatsRepositoryInterface interface {
	Stats(ctx context.Context) (*model.AdminStats, error)
}

// AdminService holds moderation and configuration operations.
// Every method requires the admin capability.
type AdminService struct {
	pool     TxBeginner
	users    UserRepositoryInterface
	settings SettingsRepositoryInterface
	stats    StatsRepositoryInterface
	clock    clockwork.Clock
}

// NewAdminService creates a new AdminService.
func NewAdminService(
	pool TxBeginner,
	users UserRepositoryInterface,
	settings SettingsRepositoryInterface,
	stats StatsRepositoryInterface,
	clock clockwork.Clock,
) *AdminService {
	return &AdminService{
		pool:     pool,
		users:    users,
		settings: settings,
		stats:    stats,
		clock:    clock,
	}
}

// ToggleBlocked flips the blocked flag of userID and returns the updated profile.
func (s *AdminService) ToggleBlocked(ctx context.Context, isAdmin bool, userID string) (*model.User, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := s.users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	user.IsBlocked = !user.IsBlocked
	if err := s.users.SetBlocked(ctx, tx, userID, user.IsBlocked); err != nil {
		return nil, fmt.Errorf("set blocked: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Info().Str("user_id", userID).Bool("blocked", user.IsBlocked).Msg("user block toggled")
	return user, nil
}

// ListUsers pages through profiles, newest first.
func (s *AdminService) ListUsers(ctx context.Context, isAdmin bool, limit, offset int) ([]model.User, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetSettings returns the current settings.
func (s *AdminService) GetSettings(ctx context.Context) (*model.Settings, error) {
	settings, err := s.settings.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings replaces the settings. Last write wins.
func (s *AdminService) UpdateSettings(ctx context.Context, isAdmin bool, req *model.UpdateSettingsRequest) (*model.Settings, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	if req == nil || req.DailyBonusAmount == nil || req.ReferralBonusAmount == nil ||
		req.MinWithdrawal == nil || req.IsWithdrawalEnabled == nil {
		return nil, ErrInvalidRequest
	}
	if *req.DailyBonusAmount < 0 || *req.ReferralBonusAmount < 0 || *req.MinWithdrawal < 0 {
		return nil, ErrInvalidAmount
	}

	adCodes := req.AdCodes
	if adCodes == nil {
		current, err := s.settings.Get(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("get settings: %w", err)
		}
		adCodes = current.AdCodes
	}

	settings := &model.Settings{
		DailyBonusAmount:    *req.DailyBonusAmount,
		ReferralBonusAmount: *req.ReferralBonusAmount,
		MinWithdrawal:       *req.MinWithdrawal,
		IsWithdrawalEnabled: *req.IsWithdrawalEnabled,
		AdCodes:             adCodes,
		UpdatedAt:           s.clock.Now().UTC(),
	}
	if err := s.settings.Update(ctx, settings); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}

	log.Info().
		Int64("daily_bonus_amount", settings.DailyBonusAmount).
		Int64("referral_bonus_amount", settings.ReferralBonusAmount).
		Int64("min_withdrawal", settings.MinWithdrawal).
		Bool("withdrawals_enabled", settings.IsWithdrawalEnabled).
		Msg("settings updated")
	return settings, nil
}

// Stats returns the dashboard aggregates.
func (s *AdminService) Stats(ctx context.Context, isAdmin bool) (*model.AdminStats, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return stats, nil
}
