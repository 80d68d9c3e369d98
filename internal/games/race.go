package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

type Race struct {
	info
	profit decimal.Decimal
	cars   int
}

type raceData struct {
	Car *int `json:"car"`
}

type raceRound struct {
	game *Race
	car  int
}

func (g *Race) Decode(data json.RawMessage) (Round, error) {
	var d raceData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.Car == nil || *d.Car < 0 || *d.Car >= g.cars {
		return nil, models.Validationf("car must be between 0 and %d", g.cars-1)
	}
	return &raceRound{game: g, car: *d.Car}, nil
}

func (r *raceRound) Resolve(s *fairness.Stream) (Outcome, error) {
	winner := s.Intn(r.game.cars)
	return single(map[string]any{"winner": winner}, winner == r.car, r.game.profit)
}
