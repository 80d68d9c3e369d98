package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/payout"
)

type Plinko struct {
	info
	table *payout.PlinkoTable
}

type plinkoData struct {
	NumRows *int `json:"num_rows"`
	Risk    *int `json:"risk"`
}

type plinkoRound struct {
	rows  int
	risk  int
	slots []decimal.Decimal
}

type plinkoResult struct {
	NumRows int   `json:"num_rows"`
	Risk    int   `json:"risk"`
	Path    []int `json:"path"`
	Slot    int   `json:"slot"`
}

func (g *Plinko) Decode(data json.RawMessage) (Round, error) {
	var d plinkoData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.NumRows == nil || d.Risk == nil {
		return nil, models.Validationf("num_rows and risk are required")
	}
	slots, err := g.table.Slots(*d.Risk, *d.NumRows)
	if err != nil {
		return nil, models.Validationf("%v", err)
	}
	return &plinkoRound{rows: *d.NumRows, risk: *d.Risk, slots: slots}, nil
}

// Resolve bounces the ball once per row; 1 is right. The landing slot is the
// number of right bounces.
func (r *plinkoRound) Resolve(s *fairness.Stream) (Outcome, error) {
	path := make([]int, r.rows)
	slot := 0
	for i := range path {
		if s.Bool() {
			path[i] = 1
			slot++
		}
	}

	mult := r.slots[slot]
	return single(plinkoResult{NumRows: r.rows, Risk: r.risk, Path: path, Slot: slot}, true, mult)
}
