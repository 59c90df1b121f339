package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// VerificationRepository stores the single pending task verification of each user.
type VerificationRepository struct {
	pool PoolInterface
}

// NewVerificationRepository creates a new VerificationRepository with the given pool.
func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// NewVerificationRepositoryWithPool creates a new VerificationRepository with a custom pool interface.
func NewVerificationRepositoryWithPool(pool PoolInterface) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// GetByUser returns the pending verification of userID, or nil, nil.
func (r *VerificationRepository) GetByUser(ctx context.Context, q database.TxQuerier, userID string) (*model.TaskVerification, error) {
	var v model.TaskVerification
	err := querier(r.pool, q).QueryRow(ctx,
		`SELECT user_id, task_id, started_at, ready_at FROM task_verifications WHERE user_id = $1`, userID).
		Scan(&v.UserID, &v.TaskID, &v.StartedAt, &v.ReadyAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get verification for %s: %w", userID, err)
	}
	return &v, nil
}

// Upsert stores v, replacing any verification of the same user.
func (r *VerificationRepository) Upsert(ctx context.Context, tx database.TxQuerier, v *model.TaskVerification) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO task_verifications (user_id, task_id, started_at, ready_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE
		 SET task_id = EXCLUDED.task_id, started_at = EXCLUDED.started_at, ready_at = EXCLUDED.ready_at`,
		v.UserID, v.TaskID, v.StartedAt, v.ReadyAt)
	if err != nil {
		return fmt.Errorf("upsert verification: %w", err)
	}
	return nil
}

// Delete removes the verification of userID. Reports whether one existed.
func (r *VerificationRepository) Delete(ctx context.Context, q database.TxQuerier, userID string) (bool, error) {
	tag, err := querier(r.pool, q).Exec(ctx, `DELETE FROM task_verifications WHERE user_id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("delete verification for %s: %w", userID, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteStartedBefore removes verifications started before the cutoff.
func (r *VerificationRepository) DeleteStartedBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM task_verifications WHERE started_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete stale verifications: %w", err)
	}
	return tag.RowsAffected(), nil
}
