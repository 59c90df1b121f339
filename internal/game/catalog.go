// Package game holds the minigame catalog and the reward formulas that turn a play outcome into coins.
package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/model"
)

// Catalog is the set of games that can be settled, in display order.
type Catalog struct {
	games []model.Game
	byID  map[string]model.Game
}

type catalogFile struct {
	Games []model.Game `yaml:"games"`
}

// DefaultGames is used when no catalog file is configured.
func DefaultGames() []model.Game {
	return []model.Game{
		{
			ID:                  "memory",
			Name:                "Memory Match",
			Kind:                model.GameMatchPairs,
			BaseReward:          20,
			SecondsPerBonusCoin: 10,
			MaxReward:           100,
		},
		{
			ID:        "clicker",
			Name:      "Speed Clicker",
			Kind:      model.GameRapidClick,
			ScoreCap:  50,
			MaxReward: 150,
		},
	}
}

// NewCatalog validates games and indexes them by id.
func NewCatalog(games []model.Game) (*Catalog, error) {
	c := &Catalog{
		games: make([]model.Game, 0, len(games)),
		byID:  make(map[string]model.Game, len(games)),
	}
	for i, g := range games {
		if g.ID == "" {
			return nil, fmt.Errorf("game %d: missing id", i)
		}
		if _, dup := c.byID[g.ID]; dup {
			return nil, fmt.Errorf("game %q: duplicate id", g.ID)
		}
		switch g.Kind {
		case model.GameMatchPairs:
			if g.SecondsPerBonusCoin < 0 {
				return nil, fmt.Errorf("game %q: seconds_per_bonus_coin must not be negative", g.ID)
			}
		case model.GameRapidClick:
			if g.ScoreCap < 0 {
				return nil, fmt.Errorf("game %q: score_cap must not be negative", g.ID)
			}
		default:
			return nil, fmt.Errorf("game %q: unknown kind %q", g.ID, g.Kind)
		}
		if g.BaseReward < 0 || g.MaxReward < 0 {
			return nil, fmt.Errorf("game %q: rewards must not be negative", g.ID)
		}
		c.games = append(c.games, g)
		c.byID[g.ID] = g
	}
	return c, nil
}

// Load reads a YAML catalog. An empty path yields the default games.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog(DefaultGames())
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(f.Games) == 0 {
		return nil, fmt.Errorf("%s: no games defined", path)
	}
	return NewCatalog(f.Games)
}

// Games returns the catalog in display order.
func (c *Catalog) Games() []model.Game {
	out := make([]model.Game, len(c.games))
	copy(out, c.games)
	return out
}

// Get returns the game with the given id.
func (c *Catalog) Get(id string) (model.Game, bool) {
	g, ok := c.byID[id]
	return g, ok
}

// Reward computes the coins earned for one play, clamped to [0, MaxReward].
// score and elapsedSeconds must be non-negative.
func Reward(g model.Game, score, elapsedSeconds int64) int64 {
	var r int64
	switch g.Kind {
	case model.GameMatchPairs:
		r = g.BaseReward
		if g.SecondsPerBonusCoin > 0 {
			r += elapsedSeconds / g.SecondsPerBonusCoin
		}
	case model.GameRapidClick:
		r = min(score, g.ScoreCap)
	}
	return max(0, min(r, g.MaxReward))
}
