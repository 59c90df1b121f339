package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/service"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// ClaimRepository provides data access for coupon claims using pgx.
type ClaimRepository struct {
	pool PoolInterface
}

// NewClaimRepository creates a new ClaimRepository with the given pool.
func NewClaimRepository(pool *pgxpool.Pool) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// NewClaimRepositoryWithPool creates a new ClaimRepository with a custom pool interface.
// This is primarily used for testing.
func NewClaimRepositoryWithPool(pool PoolInterface) *ClaimRepository {
	return &ClaimRepository{pool: pool}
}

// GetUsersByCoupon retrieves all user IDs who have claimed a specific coupon.
// On success, returns an empty slice (not nil) when no claims exist.
func (r *ClaimRepository) GetUsersByCoupon(ctx context.Context, couponID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM user_coupon_claims WHERE coupon_id = $1 ORDER BY claimed_at, user_id`, couponID)
	if err != nil {
		return nil, fmt.Errorf("get claims for coupon %s: %w", couponID, err)
	}
	users, err := collect(rows, scanString)
	if err != nil {
		return nil, fmt.Errorf("scan claim user_id: %w", err)
	}
	return users, nil
}

// Exists reports whether userID already claimed couponID.
func (r *ClaimRepository) Exists(ctx context.Context, q database.TxQuerier, userID, couponID string) (bool, error) {
	var exists bool
	err := querier(r.pool, q).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_coupon_claims WHERE user_id = $1 AND coupon_id = $2)`,
		userID, couponID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check claim: %w", err)
	}
	return exists, nil
}

// Insert inserts a new claim record within a transaction.
// Returns service.ErrAlreadyClaimed if the user has already claimed this coupon.
func (r *ClaimRepository) Insert(ctx context.Context, tx database.TxQuerier, userID, couponID string, at time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO user_coupon_claims (user_id, coupon_id, claimed_at) VALUES ($1, $2, $3)`,
		userID, couponID, at)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return service.ErrAlreadyClaimed
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

// ListCouponIDs returns the ids of the coupons userID claimed, oldest first.
func (r *ClaimRepository) ListCouponIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT coupon_id FROM user_coupon_claims WHERE user_id = $1 ORDER BY claimed_at, coupon_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list claims for %s: %w", userID, err)
	}
	ids, err := collect(rows, scanString)
	if err != nil {
		return nil, fmt.Errorf("scan claim coupon_id: %w", err)
	}
	return ids, nil
}
