package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
	"github.com/fairyhunter13/coin-rewards-ledger/pkg/database"
)

// TxBeginner defines the interface for beginning transactions.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BalanceRepository is the part of the user store the ledger writes through.
type BalanceRepository interface {
	GetForUpdate(ctx context.Context, tx database.TxQuerier, id string) (*model.User, error)
	UpdateCoins(ctx context.Context, tx database.TxQuerier, id string, coins int64) error
}

// LedgerEntryRepositoryInterface defines the interface for ledger entry data access.
type LedgerEntryRepositoryInterface interface {
	Insert(ctx context.Context, tx database.TxQuerier, entry *model.LedgerEntry) error
	ListByUser(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error)
}

// Journal receives committed ledger entries.
type Journal interface {
	Append(entry model.LedgerEntry) error
}

// Ledger is the only writer of user balances. Credit and Debit run inside the caller's
// transaction and lock the user row, so balance changes for one user are serialized.
type Ledger struct {
	balances BalanceRepository
	entries  LedgerEntryRepositoryInterface
	journal  Journal
	clock    clockwork.Clock
}

// NewLedger creates a Ledger. journal may be nil.
func NewLedger(balances BalanceRepository, entries LedgerEntryRepositoryInterface, journal Journal, clock clockwork.Clock) *Ledger {
	return &Ledger{
		balances: balances,
		entries:  entries,
		journal:  journal,
		clock:    clock,
	}
}

// Credit increases the balance of userID by amount.
// A zero amount changes nothing; a negative amount returns ErrInvalidAmount.
func (l *Ledger) Credit(ctx context.Context, tx database.TxQuerier, userID string, amount int64, source model.LedgerSource, reference string) (*model.LedgerEntry, error) {
	if amount < 0 {
		return nil, ErrInvalidAmount
	}
	return l.post(ctx, tx, userID, amount, source, reference)
}

// Debit decreases the balance of userID by amount.
// Returns ErrInsufficientBalance, without mutating anything, when amount exceeds the balance.
func (l *Ledger) Debit(ctx context.Context, tx database.TxQuerier, userID string, amount int64, source model.LedgerSource, reference string) (*model.LedgerEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	return l.post(ctx, tx, userID, -amount, source, reference)
}

func (l *Ledger) post(ctx context.Context, tx database.TxQuerier, userID string, delta int64, source model.LedgerSource, reference string) (*model.LedgerEntry, error) {
	user, err := l.balances.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	entry := &model.LedgerEntry{
		UserID:      userID,
		Amount:      delta,
		Source:      source,
		Reference:   reference,
		CoinsBefore: user.Coins,
		CoinsAfter:  user.Coins + delta,
		CreatedAt:   l.clock.Now().UTC(),
	}
	if delta == 0 {
		return entry, nil
	}
	if entry.CoinsAfter < 0 {
		return nil, ErrInsufficientBalance
	}

	if err := l.balances.UpdateCoins(ctx, tx, userID, entry.CoinsAfter); err != nil {
		return nil, fmt.Errorf("update coins: %w", err)
	}
	if err := l.entries.Insert(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("insert ledger entry: %w", err)
	}
	return entry, nil
}

// Publish hands committed entries to the journal. Journal failures are logged, not returned.
func (l *Ledger) Publish(entries ...*model.LedgerEntry) {
	for _, e := range entries {
		if e == nil || e.Amount == 0 {
			continue
		}
		log.Debug().
			Str("user_id", e.UserID).
			Int64("amount", e.Amount).
			Str("source", string(e.Source)).
			Int64("coins_after", e.CoinsAfter).
			Msg("ledger entry committed")
		if l.journal == nil {
			continue
		}
		if err := l.journal.Append(*e); err != nil {
			log.Error().Err(err).Int64("entry_id", e.ID).Msg("failed to append ledger journal")
		}
	}
}

// History returns the most recent ledger entries of a user.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	entries, err := l.entries.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}
