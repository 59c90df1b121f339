package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// UserRepositoryInterface defines the interface for user data access.
type UserRepositoryInterface interface {
	BalanceRepository
	// GetByID returns nil, nil when the user does not exist.
	GetByID(ctx context.Context, id string) (*model.User, error)
	// GetByReferralCode locks and returns the owner of code, or nil, nil.
	GetByReferralCode(ctx context.Context, tx database.TxQuerier, code string) (*model.User, error)
	// Insert creates the user unless the id exists. Reports whether a row was created.
	Insert(ctx context.Context, tx database.TxQuerier, user *model.User) (bool, error)
	IncrementReferrals(ctx context.Context, tx database.TxQuerier, id string) error
	SetLastDailyBonus(ctx context.Context, tx database.TxQuerier, id string, at time.Time) error
	SetBlocked(ctx context.Context, tx database.TxQuerier, id string, blocked bool) error
	List(ctx context.Context, limit, offset int) ([]model.User, error)
	// MarkWelcomed reports whether clientID was marked for the first time.
	MarkWelcomed(ctx context.Context, clientID string) (bool, error)
}

// SettingsRepositoryInterface defines the interface for settings data access.
type SettingsRepositoryInterface interface {
	Get(ctx context.Context, q database.TxQuerier) (*model.Settings, error)
	Update(ctx context.Context, settings *model.Settings) error
}

const referralAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// UserService resolves visiting clients to profiles and applies referral attribution.
type UserService struct {
	pool         TxBeginner
	users        UserRepositoryInterface
	completions  CompletionRepositoryInterface
	claims       ClaimRepositoryInterface
	settings     SettingsRepositoryInterface
	ledger       *Ledger
	clock        clockwork.Clock
	initialGrant int64
}

// NewUserService creates a new UserService. initialGrant is credited to every new profile.
func NewUserService(
	pool TxBeginner,
	users UserRepositoryInterface,
	completions CompletionRepositoryInterface,
	claims ClaimRepositoryInterface,
	settings SettingsRepositoryInterface,
	ledger *Ledger,
	clock clockwork.Clock,
	initialGrant int64,
) *UserService {
	return &UserService{
		pool:         pool,
		users:        users,
		completions:  completions,
		claims:       claims,
		settings:     settings,
		ledger:       ledger,
		clock:        clock,
		initialGrant: initialGrant,
	}
}

// Resolve returns the profile of clientID, creating it on first visit.
// referralCode is only considered when the profile is created; unknown codes and
// self-referrals are ignored silently.
func (s *UserService) Resolve(ctx context.Context, clientID, referralCode string) (*model.ResolveResult, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, ErrInvalidRequest
	}

	existing, err := s.users.GetByID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if existing != nil {
		return s.existing(ctx, existing)
	}

	code, err := generateReferralCode()
	if err != nil {
		return nil, fmt.Errorf("generate referral code: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // Safe: no-op if committed

	settings, err := s.settings.Get(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	user := &model.User{
		ID:           clientID,
		ReferralCode: code,
		JoinedAt:     s.clock.Now().UTC(),
	}

	var referrer *model.User
	if ref := NormalizeCode(referralCode); ref != "" {
		referrer, err = s.users.GetByReferralCode(ctx, tx, ref)
		if err != nil {
			return nil, fmt.Errorf("get referrer: %w", err)
		}
		if referrer != nil && (referrer.ID == clientID || referrer.IsBlocked) {
			referrer = nil
		}
		if referrer != nil {
			user.ReferredBy = &referrer.ReferralCode
		}
	}

	created, err := s.users.Insert(ctx, tx, user)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	if !created {
		// Lost a first-visit race: the other request owns creation and attribution.
		_ = tx.Rollback(ctx)
		existing, err := s.users.GetByID(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("get user: %w", err)
		}
		if existing == nil {
			return nil, ErrUserNotFound
		}
		return s.existing(ctx, existing)
	}

	var entries []*model.LedgerEntry
	if s.initialGrant > 0 {
		entry, err := s.ledger.Credit(ctx, tx, user.ID, s.initialGrant, model.SourceSignup, "")
		if err != nil {
			return nil, fmt.Errorf("credit initial grant: %w", err)
		}
		user.Coins = entry.CoinsAfter
		entries = append(entries, entry)
	}

	if referrer != nil {
		entry, err := s.ledger.Credit(ctx, tx, referrer.ID, settings.ReferralBonusAmount, model.SourceReferral, user.ID)
		if err != nil {
			return nil, fmt.Errorf("credit referral bonus: %w", err)
		}
		if err := s.users.IncrementReferrals(ctx, tx, referrer.ID); err != nil {
			return nil, fmt.Errorf("increment referrals: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.ledger.Publish(entries...)

	evt := log.Info().Str("user_id", user.ID).Str("referral_code", user.ReferralCode)
	if referrer != nil {
		evt = evt.Str("referrer_id", referrer.ID).Int64("referral_bonus", settings.ReferralBonusAmount)
	}
	evt.Msg("user created")

	user.TasksCompleted = []string{}
	user.CouponsClaimed = []string{}
	return &model.ResolveResult{User: user, Created: true}, nil
}

func (s *UserService) existing(ctx context.Context, user *model.User) (*model.ResolveResult, error) {
	if err := s.fillSets(ctx, user); err != nil {
		return nil, err
	}
	return &model.ResolveResult{User: user, Created: false}, nil
}

// GetProfile returns the profile of an existing user with its completion and claim sets.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if err := s.fillSets(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) fillSets(ctx context.Context, user *model.User) error {
	tasks, err := s.completions.ListTaskIDs(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list completed tasks: %w", err)
	}
	coupons, err := s.claims.ListCouponIDs(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list claimed coupons: %w", err)
	}
	user.TasksCompleted = tasks
	user.CouponsClaimed = coupons
	return nil
}

// Welcome marks the onboarding prompt as seen by clientID.
func (s *UserService) Welcome(ctx context.Context, clientID string) (*model.WelcomeResult, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, ErrInvalidRequest
	}
	first, err := s.users.MarkWelcomed(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("mark welcomed: %w", err)
	}
	return &model.WelcomeResult{FirstTime: first}, nil
}

// History returns the latest ledger entries of userID, newest first.
func (s *UserService) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.ledger.History(ctx, userID, limit)
}

// NormalizeCode trims and upper-cases a user-entered code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

func generateReferralCode() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = referralAlphabet[int(buf[i])%len(referralAlphabet)]
	}
	return "REF-" + string(buf), nil
}

// lockActiveUser locks the user row and rejects blocked users.
func lockActiveUser(ctx context.Context, users BalanceRepository, tx database.TxQuerier, userID string) (*model.User, error) {
	user, err := users.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked {
		return nil, ErrUserBlocked
	}
	return user, nil
}
