package model

// GameKind selects the reward formula of a minigame.
type GameKind string

const (
	GameMatchPairs GameKind = "match_pairs"
	GameRapidClick GameKind = "rapid_click"
)

// Game describes a minigame and its reward bounds.
type Game struct {
	ID                  string   `json:"id" yaml:"id"`
	Name                string   `json:"name" yaml:"name"`
	Kind                GameKind `json:"kind" yaml:"kind"`
	BaseReward          int64    `json:"base_reward" yaml:"base_reward"`
	SecondsPerBonusCoin int64    `json:"seconds_per_bonus_coin,omitempty" yaml:"seconds_per_bonus_coin"`
	ScoreCap            int64    `json:"score_cap,omitempty" yaml:"score_cap"`
	MaxReward           int64    `json:"max_reward" yaml:"max_reward"`
}

// SettleGameRequest is the DTO for POST /api/games/:id/settle
type SettleGameRequest struct {
	Score              *int64 `json:"score" validate:"required,gte=0"`
	TimeElapsedSeconds *int64 `json:"time_elapsed_seconds" validate:"required,gte=0"`
}

// GameResult is returned after a game outcome is settled.
type GameResult struct {
	GameID string `json:"game_id"`
	Reward int64  `json:"reward"`
	Coins  int64  `json:"coins"`
}
