package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// BonusService grants the periodic bonus on a rolling window.
type BonusService struct {
	pool     TxBeginner
	users    UserRepositoryInterface
	settings SettingsRepositoryInterface
	ledger   *Ledger
	clock    clockwork.Clock
	interval time.Duration
}

// NewBonusService creates a new BonusService. interval is the minimum time between two claims.
func NewBonusService(
	pool TxBeginner,
	users UserRepositoryInterface,
	settings SettingsRepositoryInterface,
	ledger *Ledger,
	clock clockwork.Clock,
	interval time.Duration,
) *BonusService {
	return &BonusService{
		pool:     pool,
		users:    users,
		settings: settings,
		ledger:   ledger,
		clock:    clock,
		interval: interval,
	}
}

// Claim credits the bonus when the last claim is at least one interval old.
// Returns ErrBonusOnCooldown otherwise.
func (s *BonusService) Claim(ctx context.Context, userID string) (*model.BonusResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	user, err := lockActiveUser(ctx, s.users, tx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	if !s.available(user.LastDailyBonus, now) {
		return nil, ErrBonusOnCooldown
	}

	settings, err := s.settings.Get(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	entry, err := s.ledger.Credit(ctx, tx, userID, settings.DailyBonusAmount, model.SourceDailyBonus, "")
	if err != nil {
		return nil, fmt.Errorf("credit daily bonus: %w", err)
	}
	if err := s.users.SetLastDailyBonus(ctx, tx, userID, now); err != nil {
		return nil, fmt.Errorf("set last daily bonus: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.ledger.Publish(entry)

	log.Info().
		Str("user_id", userID).
		Int64("amount", settings.DailyBonusAmount).
		Msg("daily bonus claimed")

	return &model.BonusResult{
		Amount:      settings.DailyBonusAmount,
		Coins:       entry.CoinsAfter,
		NextClaimAt: now.Add(s.interval),
	}, nil
}

// Status reports whether userID can claim now and when the next claim opens.
func (s *BonusService) Status(ctx context.Context, userID string) (*model.BonusStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	settings, err := s.settings.Get(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	status := &model.BonusStatus{
		Amount:        settings.DailyBonusAmount,
		Available:     !user.IsBlocked && s.available(user.LastDailyBonus, s.clock.Now()),
		LastClaimedAt: user.LastDailyBonus,
	}
	if user.LastDailyBonus != nil {
		next := user.LastDailyBonus.Add(s.interval)
		status.NextClaimAt = &next
	}
	return status, nil
}

func (s *BonusService) available(last *time.Time, now time.Time) bool {
	return last == nil || now.Sub(*last) >= s.interval
}
