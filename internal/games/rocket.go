package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/payout"
)

// Rocket is a limbo-style game: the player names a target and wins it if the
// rocket flies at least that far.
type Rocket struct {
	info
	rtp decimal.Decimal
}

type rocketData struct {
	Multiplier *decimal.Decimal `json:"multiplier"`
}

type rocketRound struct {
	game   *Rocket
	target decimal.Decimal
}

func (g *Rocket) Decode(data json.RawMessage) (Round, error) {
	var d rocketData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.Multiplier == nil {
		return nil, models.Validationf("multiplier is required")
	}
	m := *d.Multiplier
	if m.LessThan(payout.RocketMinMultiplier) || m.GreaterThan(payout.RocketMaxMultiplier) {
		return nil, models.Validationf("multiplier must be between %s and %s", payout.RocketMinMultiplier, payout.RocketMaxMultiplier)
	}
	if !m.Equal(m.Truncate(2)) {
		return nil, models.Validationf("multiplier allows at most 2 decimals")
	}
	return &rocketRound{game: g, target: m}, nil
}

func (r *rocketRound) Resolve(s *fairness.Stream) (Outcome, error) {
	crash := payout.RocketCrashPoint(r.game.rtp, s.Float64())
	win := crash.GreaterThanOrEqual(r.target)
	return single(map[string]any{"crash_point": crash, "target": r.target}, win, r.target)
}
