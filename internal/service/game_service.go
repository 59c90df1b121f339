package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/game"
	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// GameService settles minigame outcomes into coin rewards.
type GameService struct {
	pool    TxBeginner
	users   BalanceRepository
	catalog *game.Catalog
	ledger  *Ledger
}

// NewGameService creates a new GameService.
func NewGameService(pool TxBeginner, users BalanceRepository, catalog *game.Catalog, ledger *Ledger) *GameService {
	return &GameService{
		pool:    pool,
		users:   users,
		catalog: catalog,
		ledger:  ledger,
	}
}

// Catalog lists the playable games.
func (s *GameService) Catalog() []model.Game {
	return s.catalog.Games()
}

// Settle credits the reward of one finished play. A zero reward is accepted and changes nothing.
func (s *GameService) Settle(ctx context.Context, userID, gameID string, score, elapsedSeconds int64) (*model.GameResult, error) {
	if score < 0 || elapsedSeconds < 0 {
		return nil, ErrInvalidRequest
	}
	g, ok := s.catalog.Get(gameID)
	if !ok {
		return nil, ErrGameNotFound
	}
	reward := game.Reward(g, score, elapsedSeconds)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := lockActiveUser(ctx, s.users, tx, userID); err != nil {
		return nil, err
	}
	entry, err := s.ledger.Credit(ctx, tx, userID, reward, model.SourceGame, g.ID)
	if err != nil {
		return nil, fmt.Errorf("credit game reward: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	s.ledger.Publish(entry)

	log.Info().
		Str("user_id", userID).
		Str("game_id", g.ID).
		Int64("score", score).
		Int64("elapsed_seconds", elapsedSeconds).
		Int64("reward", reward).
		Msg("game settled")

	return &model.GameResult{GameID: g.ID, Reward: reward, Coins: entry.CoinsAfter}, nil
}
