package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

type CoinFlip struct {
	info
	profit decimal.Decimal
}

type coinFlipData struct {
	IsHeads *bool `json:"is_heads"`
}

type coinFlipRound struct {
	game  *CoinFlip
	heads bool
}

func (g *CoinFlip) Decode(data json.RawMessage) (Round, error) {
	var d coinFlipData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.IsHeads == nil {
		return nil, models.Validationf("is_heads is required")
	}
	return &coinFlipRound{game: g, heads: *d.IsHeads}, nil
}

func (r *coinFlipRound) Resolve(s *fairness.Stream) (Outcome, error) {
	heads := s.Bool()
	win := heads == r.heads
	return single(map[string]any{"heads": heads, "win": win}, win, r.game.profit)
}
