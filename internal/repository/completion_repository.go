package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/service"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// CompletionRepository records which tasks each user completed.
type CompletionRepository struct {
	pool PoolInterface
}

// NewCompletionRepository creates a new CompletionRepository with the given pool.
func NewCompletionRepository(pool *pgxpool.Pool) *CompletionRepository {
	return &CompletionRepository{pool: pool}
}

// NewCompletionRepositoryWithPool creates a new CompletionRepository with a custom pool interface.
func NewCompletionRepositoryWithPool(pool PoolInterface) *CompletionRepository {
	return &CompletionRepository{pool: pool}
}

// Exists reports whether userID completed taskID.
func (r *CompletionRepository) Exists(ctx context.Context, q database.TxQuerier, userID, taskID string) (bool, error) {
	var exists bool
	err := querier(r.pool, q).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_task_completions WHERE user_id = $1 AND task_id = $2)`,
		userID, taskID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check completion: %w", err)
	}
	return exists, nil
}

// Insert records a completion within a transaction.
// Returns service.ErrTaskAlreadyCompleted if the user already completed the task.
func (r *CompletionRepository) Insert(ctx context.Context, tx database.TxQuerier, userID, taskID string, at time.Time) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO user_task_completions (user_id, task_id, completed_at) VALUES ($1, $2, $3)`,
		userID, taskID, at)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return service.ErrTaskAlreadyCompleted
		}
		return fmt.Errorf("insert completion: %w", err)
	}
	return nil
}

// ListTaskIDs returns the ids of the tasks userID completed, oldest first.
func (r *CompletionRepository) ListTaskIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT task_id FROM user_task_completions WHERE user_id = $1 ORDER BY completed_at, task_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list completions for %s: %w", userID, err)
	}
	ids, err := collect(rows, scanString)
	if err != nil {
		return nil, fmt.Errorf("scan completion task_id: %w", err)
	}
	return ids, nil
}

func scanString(row scanner) (string, error) {
	var s string
	err := row.Scan(&s)
	return s, err
}
