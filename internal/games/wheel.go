package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/payout"
)

type Wheel struct {
	info
	table *payout.WheelTable
}

type wheelData struct {
	Risk       *int `json:"risk"`
	NumSectors *int `json:"num_sectors"`
}

type wheelRound struct {
	sectors []decimal.Decimal
}

func (g *Wheel) Decode(data json.RawMessage) (Round, error) {
	var d wheelData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.Risk == nil || d.NumSectors == nil {
		return nil, models.Validationf("risk and num_sectors are required")
	}
	sectors, err := g.table.Sectors(*d.Risk, *d.NumSectors)
	if err != nil {
		return nil, models.Validationf("%v", err)
	}
	return &wheelRound{sectors: sectors}, nil
}

func (r *wheelRound) Resolve(s *fairness.Stream) (Outcome, error) {
	sector := s.Intn(len(r.sectors))
	mult := r.sectors[sector]
	return single(map[string]any{"sector": sector, "sectors": len(r.sectors)}, mult.IsPositive(), mult)
}
