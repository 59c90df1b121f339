package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/service"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

const userColumns = `id, coins, last_daily_bonus, referral_code, referred_by, total_referrals, is_blocked, joined_at`

// UserRepository provides data access for user profiles using pgx.
type UserRepository struct {
	pool PoolInterface
}

// NewUserRepository creates a new UserRepository with the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// NewUserRepositoryWithPool creates a new UserRepository with a custom pool interface.
// This is primarily used for testing.
func NewUserRepositoryWithPool(pool PoolInterface) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row scanner) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.Coins,
		&u.LastDailyBonus,
		&u.ReferralCode,
		&u.ReferredBy,
		&u.TotalReferrals,
		&u.IsBlocked,
		&u.JoinedAt,
	)
	return u, err
}

// GetByID retrieves a user by id.
// Returns nil, nil if the user is not found.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}

// GetForUpdate retrieves a user with a row lock (SELECT FOR UPDATE).
// Returns service.ErrUserNotFound if the user doesn't exist.
func (r *UserRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user for update %s: %w", id, err)
	}
	return &u, nil
}

// GetByReferralCode locks and returns the owner of code.
// Returns nil, nil if no user owns the code.
func (r *UserRepository) GetByReferralCode(ctx context.Context, tx database.TxQuerier, code string) (*model.User, error) {
	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE referral_code = $1 FOR UPDATE`, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by referral code: %w", err)
	}
	return &u, nil
}

// Insert creates the user unless a row with the same id exists.
// Reports whether a row was created.
func (r *UserRepository) Insert(ctx context.Context, tx database.TxQuerier, user *model.User) (bool, error) {
	tag, err := tx.Exec(ctx,
		`INSERT INTO users (id, coins, referral_code, referred_by, joined_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		user.ID, user.Coins, user.ReferralCode, user.ReferredBy, user.JoinedAt)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateCoins sets the balance. Must be called within a transaction after locking the row.
func (r *UserRepository) UpdateCoins(ctx context.Context, tx database.TxQuerier, id string, coins int64) error {
	return r.exec(ctx, tx, `UPDATE users SET coins = $2 WHERE id = $1`, id, coins)
}

// IncrementReferrals adds one to the referral counter of id.
func (r *UserRepository) IncrementReferrals(ctx context.Context, tx database.TxQuerier, id string) error {
	return r.exec(ctx, tx, `UPDATE users SET total_referrals = total_referrals + 1 WHERE id = $1`, id)
}

// SetLastDailyBonus records the instant of the latest bonus claim.
func (r *UserRepository) SetLastDailyBonus(ctx context.Context, tx database.TxQuerier, id string, at time.Time) error {
	return r.exec(ctx, tx, `UPDATE users SET last_daily_bonus = $2 WHERE id = $1`, id, at)
}

// SetBlocked sets the blocked flag.
func (r *UserRepository) SetBlocked(ctx context.Context, tx database.TxQuerier, id string, blocked bool) error {
	return r.exec(ctx, tx, `UPDATE users SET is_blocked = $2 WHERE id = $1`, id, blocked)
}

func (r *UserRepository) exec(ctx context.Context, tx database.TxQuerier, sql string, args ...any) error {
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update user %v: %w", args[0], err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrUserNotFound
	}
	return nil
}

// List returns a page of users, newest first.
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]model.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY joined_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	users, err := collect(rows, scanUser)
	if err != nil {
		return nil, fmt.Errorf("scan users: %w", err)
	}
	return users, nil
}

// MarkWelcomed records that clientID dismissed onboarding.
// Reports whether this is the first time.
func (r *UserRepository) MarkWelcomed(ctx context.Context, clientID string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO welcomed (client_id) VALUES ($1) ON CONFLICT (client_id) DO NOTHING`, clientID)
	if err != nil {
		return false, fmt.Errorf("mark welcomed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
