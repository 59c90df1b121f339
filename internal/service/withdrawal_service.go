package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// WithdrawalRepositoryInterface defines the interface for withdrawal data access.
type WithdrawalRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, w *model.Withdrawal) error
	// GetForUpdate returns ErrWithdrawalNotFound when the request does not exist.
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.Withdrawal, error)
	UpdateStatus(ctx context.Context, tx database.TxQuerier, w *model.Withdrawal) error
	ListByUser(ctx context.Context, userID string) ([]model.Withdrawal, error)
	// List returns every request, or only those in status when it is not empty.
	List(ctx context.Context, status model.WithdrawalStatus) ([]model.Withdrawal, error)
}

// WithdrawalService runs the withdrawal state machine: pending, then approved or rejected.
// Coins leave the balance when the request is created; a rejection refunds them.
type WithdrawalService struct {
	pool        TxBeginner
	users       BalanceRepository
	withdrawals WithdrawalRepositoryInterface
	settings    SettingsRepositoryInterface
	ledger      *Ledger
	clock       clockwork.Clock
}

// NewWithdrawalService creates a new WithdrawalService.
func NewWithdrawalService(
	pool TxBeginner,
	users BalanceRepository,
	withdrawals WithdrawalRepositoryInterface,
	settings SettingsRepositoryInterface,
	ledger *Ledger,
	clock clockwork.Clock,
) *WithdrawalService {
	return &WithdrawalService{
		pool:        pool,
		users:       users,
		withdrawals: withdrawals,
		settings:    settings,
		ledger:      ledger,
		clock:       clock,
	}
}

// Request debits amount from userID and records a pending withdrawal.
func (s *WithdrawalService) Request(ctx context.Context, userID string, amount int64, walletAddress string) (*model.Withdrawal, error) {
	walletAddress = strings.TrimSpace(walletAddress)
	if amount <= 0 || walletAddress == "" {
		return nil, ErrInvalidRequest
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockActiveUser(ctx, s.users, tx, userID); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if !settings.IsWithdrawalEnabled {
		return nil, ErrWithdrawalDisabled
	}
	if amount < settings.MinWithdrawal {
		return nil, ErrBelowMinimum
	}

	w := &model.Withdrawal{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		WalletAddress: walletAddress,
		Status:        model.WithdrawalPending,
		CreatedAt:     s.clock.Now().UTC(),
	}

	entry, err := s.ledger.Debit(ctx, tx, userID, amount, model.SourceWithdrawal, w.ID)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("debit withdrawal: %w", err)
	}
	if err := s.withdrawals.Insert(ctx, tx, w); err != nil {
		return nil, fmt.Errorf("insert withdrawal: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.ledger.Publish(entry)

	return w, nil
}

// Decide moves a pending request to approved or rejected. Rejection refunds the amount,
// including to blocked users. Requires the admin capability.
func (s *WithdrawalService) Decide(ctx context.Context, isAdmin bool, id string, approve bool) (*model.Withdrawal, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	w, err := s.withdrawals.GetForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if w.Status != model.WithdrawalPending {
		return nil, ErrWithdrawalNotPending
	}

	now := s.clock.Now().UTC()
	w.DecidedAt = &now
	w.Status = model.WithdrawalApproved

	var refund *model.LedgerEntry
	if !approve {
		w.Status = model.WithdrawalRejected
		refund, err = s.ledger.Credit(ctx, tx, w.UserID, w.Amount, model.SourceWithdrawalRefund, w.ID)
		if err != nil {
			return nil, fmt.Errorf("refund withdrawal: %w", err)
		}
	}

	if err := s.withdrawals.UpdateStatus(ctx, tx, w); err != nil {
		return nil, fmt.Errorf("update withdrawal: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.ledger.Publish(refund)

	return w, nil
}

// ListForUser returns the withdrawals of userID, newest first.
func (s *WithdrawalService) ListForUser(ctx context.Context, userID string) ([]model.Withdrawal, error) {
	list, err := s.withdrawals.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return list, nil
}

// List returns withdrawals filtered by status; an empty status lists all.
func (s *WithdrawalService) List(ctx context.Context, isAdmin bool, status model.WithdrawalStatus) ([]model.Withdrawal, error) {
	if !isAdmin {
		return nil, ErrForbidden
	}
	if status != "" && !status.Valid() {
		return nil, ErrInvalidRequest
	}
	list, err := s.withdrawals.List(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	return list, nil
}
