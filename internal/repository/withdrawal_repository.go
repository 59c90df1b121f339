package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/service"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

const withdrawalColumns = `id, user_id, amount, wallet_address, status, created_at, decided_at`

// WithdrawalRepository provides data access for withdrawal requests using pgx.
type WithdrawalRepository struct {
	pool PoolInterface
}

// NewWithdrawalRepository creates a new WithdrawalRepository with the given pool.
func NewWithdrawalRepository(pool *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{pool: pool}
}

// NewWithdrawalRepositoryWithPool creates a new WithdrawalRepository with a custom pool interface.
func NewWithdrawalRepositoryWithPool(pool PoolInterface) *WithdrawalRepository {
	return &WithdrawalRepository{pool: pool}
}

func scanWithdrawal(row scanner) (model.Withdrawal, error) {
	var w model.Withdrawal
	err := row.Scan(&w.ID, &w.UserID, &w.Amount, &w.WalletAddress, &w.Status, &w.CreatedAt, &w.DecidedAt)
	return w, err
}

// Insert records a new withdrawal within a transaction.
func (r *WithdrawalRepository) Insert(ctx context.Context, tx database.TxQuerier, w *model.Withdrawal) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO withdrawals (id, user_id, amount, wallet_address, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		w.ID, w.UserID, w.Amount, w.WalletAddress, w.Status, w.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert withdrawal: %w", err)
	}
	return nil
}

// GetForUpdate retrieves a withdrawal with a row lock (SELECT FOR UPDATE).
// Returns service.ErrWithdrawalNotFound if the request doesn't exist.
func (r *WithdrawalRepository) GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Withdrawal, error) {
	w, err := scanWithdrawal(tx.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("get withdrawal for update %s: %w", id, err)
	}
	return &w, nil
}

// UpdateStatus stores the decision of a pending request.
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, tx database.TxQuerier, w *model.Withdrawal) error {
	tag, err := tx.Exec(ctx,
		`UPDATE withdrawals SET status = $2, decided_at = $3 WHERE id = $1 AND status = 'pending'`,
		w.ID, w.Status, w.DecidedAt)
	if err != nil {
		return fmt.Errorf("update withdrawal %s: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return service.ErrWithdrawalNotPending
	}
	return nil
}

// ListByUser returns the requests of userID, newest first.
func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID string) ([]model.Withdrawal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals for %s: %w", userID, err)
	}
	list, err := collect(rows, scanWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("scan withdrawals: %w", err)
	}
	return list, nil
}

// List returns requests in status, or all of them when status is empty, newest first.
func (r *WithdrawalRepository) List(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE $1 = '' OR status = $1 ORDER BY created_at DESC, id`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	list, err := collect(rows, scanWithdrawal)
	if err != nil {
		return nil, fmt.Errorf("scan withdrawals: %w", err)
	}
	return list, nil
}
