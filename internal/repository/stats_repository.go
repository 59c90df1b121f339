package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// StatsRepository computes the admin dashboard aggregates.
type StatsRepository struct {
	pool PoolInterface
}

// NewStatsRepository creates a new StatsRepository with the given pool.
func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// NewStatsRepositoryWithPool creates a new StatsRepository with a custom pool interface.
func NewStatsRepositoryWithPool(pool PoolInterface) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// Stats returns the aggregates in one round trip.
func (r *StatsRepository) Stats(ctx context.Context) (*model.AdminStats, error) {
	var s model.AdminStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COALESCE(SUM(coins), 0)::BIGINT FROM users),
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending'),
			(SELECT COALESCE(SUM(amount), 0)::BIGINT FROM withdrawals WHERE status = 'approved'),
			(SELECT COUNT(*) FROM user_task_completions)`).
		Scan(&s.TotalUsers, &s.CoinsOutstanding, &s.PendingWithdrawals, &s.CoinsWithdrawn, &s.TotalTasksCompleted)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	return &s, nil
}
