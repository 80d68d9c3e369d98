package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/payout"
)

type Dice struct {
	info
	rtp decimal.Decimal
}

type diceData struct {
	RollOver   *bool            `json:"roll_over"`
	Multiplier *decimal.Decimal `json:"multiplier"`
}

type diceRound struct {
	game       *Dice
	rollOver   bool
	multiplier decimal.Decimal
	units      int64
}

type diceResult struct {
	Roll    int64           `json:"roll"`
	Display decimal.Decimal `json:"roll_display"`
	Target  decimal.Decimal `json:"target"`
	Over    bool            `json:"roll_over"`
	Win     bool            `json:"win"`
}

func (g *Dice) Decode(data json.RawMessage) (Round, error) {
	var d diceData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.RollOver == nil || d.Multiplier == nil {
		return nil, models.Validationf("roll_over and multiplier are required")
	}
	m := *d.Multiplier
	if m.LessThan(payout.DiceMinMultiplier) || m.GreaterThan(payout.DiceMaxMultiplier) {
		return nil, models.Validationf("multiplier must be between %s and %s", payout.DiceMinMultiplier, payout.DiceMaxMultiplier)
	}
	if !m.Equal(m.Truncate(payout.Precision)) {
		return nil, models.Validationf("multiplier allows at most %d decimals", payout.Precision)
	}
	return &diceRound{
		game:       g,
		rollOver:   *d.RollOver,
		multiplier: m,
		units:      payout.DiceWinUnits(g.rtp, m),
	}, nil
}

// Resolve rolls in [0, 1e6). Over wins on the top units outcomes, under on
// the bottom units outcomes.
func (r *diceRound) Resolve(s *fairness.Stream) (Outcome, error) {
	roll := int64(s.Intn(payout.DiceRange))

	var win bool
	var target int64
	if r.rollOver {
		target = payout.DiceRange - r.units
		win = roll >= target
	} else {
		target = r.units
		win = roll < target
	}

	return single(diceResult{
		Roll:    roll,
		Display: decimal.New(roll, -4),
		Target:  decimal.New(target, -4),
		Over:    r.rollOver,
		Win:     win,
	}, win, r.multiplier)
}
