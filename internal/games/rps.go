package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

const (
	Rock = iota
	Paper
	Scissors
)

type RPS struct {
	info
	profit decimal.Decimal
	draw   decimal.Decimal
}

type rpsData struct {
	Action *int `json:"action"`
}

type rpsRound struct {
	game   *RPS
	action int
}

func (g *RPS) Decode(data json.RawMessage) (Round, error) {
	var d rpsData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.Action == nil || *d.Action < Rock || *d.Action > Scissors {
		return nil, models.Validationf("action must be 0 (rock), 1 (paper) or 2 (scissors)")
	}
	return &rpsRound{game: g, action: *d.Action}, nil
}

func (r *rpsRound) Resolve(s *fairness.Stream) (Outcome, error) {
	house := s.Intn(3)

	result := "lose"
	mult := decimal.Zero
	switch (r.action - house + 3) % 3 {
	case 0:
		result, mult = "draw", r.game.draw
	case 1:
		result, mult = "win", r.game.profit
	}

	return single(map[string]any{"house": house, "result": result}, mult.IsPositive(), mult)
}
