package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// LedgerEntryRepository stores the append-only history of balance changes.
type LedgerEntryRepository struct {
	pool PoolInterface
}

// NewLedgerEntryRepository creates a new LedgerEntryRepository with the given pool.
func NewLedgerEntryRepository(pool *pgxpool.Pool) *LedgerEntryRepository {
	return &LedgerEntryRepository{pool: pool}
}

// NewLedgerEntryRepositoryWithPool creates a new LedgerEntryRepository with a custom pool interface.
func NewLedgerEntryRepositoryWithPool(pool PoolInterface) *LedgerEntryRepository {
	return &LedgerEntryRepository{pool: pool}
}

// Insert appends entry within a transaction and sets its id.
func (r *LedgerEntryRepository) Insert(ctx context.Context, tx database.TxQuerier, e *model.LedgerEntry) error {
	err := tx.QueryRow(ctx,
		`INSERT INTO ledger_entries (user_id, amount, source, reference, coins_before, coins_after, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		e.UserID, e.Amount, e.Source, e.Reference, e.CoinsBefore, e.CoinsAfter, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// ListByUser returns the latest entries of userID, newest first.
func (r *LedgerEntryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, amount, source, reference, coins_before, coins_after, created_at
		 FROM ledger_entries WHERE user_id = $1 ORDER BY id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries for %s: %w", userID, err)
	}
	entries, err := collect(rows, func(row scanner) (model.LedgerEntry, error) {
		var e model.LedgerEntry
		err := row.Scan(&e.ID, &e.UserID, &e.Amount, &e.Source, &e.Reference, &e.CoinsBefore, &e.CoinsAfter, &e.CreatedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan ledger entries: %w", err)
	}
	return entries, nil
}
