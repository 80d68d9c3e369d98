package games

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

const reels = 3

type symbol struct {
	name       string
	multiplier decimal.Decimal
	scatter    bool
}

// Slots is a three reel machine. Three scatters award free spins, which are
// played one ContinueGame at a time against the original stake.
type Slots struct {
	info
	symbols   []symbol
	weights   []int
	freeSpins int
}

func newSlots(base info, defs []config.SymbolDef, freeSpins int) (*Slots, error) {
	if len(defs) < 2 {
		return nil, fmt.Errorf("slots need at least 2 symbols")
	}
	if freeSpins < 1 {
		return nil, fmt.Errorf("free_spins must be at least 1")
	}

	g := &Slots{info: base, freeSpins: freeSpins}
	total := 0
	for _, d := range defs {
		if d.Weight < 1 {
			return nil, fmt.Errorf("symbol %s has weight %d", d.Name, d.Weight)
		}
		sym := symbol{name: d.Name, scatter: d.Scatter, multiplier: decimal.Zero}
		if !d.Scatter {
			m, err := coef(d.Multiplier, "multiplier")
			if err != nil {
				return nil, fmt.Errorf("symbol %s: %w", d.Name, err)
			}
			sym.multiplier = m
		}
		g.symbols = append(g.symbols, sym)
		g.weights = append(g.weights, d.Weight)
		total += d.Weight
		if total > math.MaxInt32 {
			return nil, fmt.Errorf("symbol weights total more than %d", math.MaxInt32)
		}
	}
	return g, nil
}

type SlotsState struct {
	FreeSpinsLeft int             `json:"free_spins_left"`
	Spins         int             `json:"spins"`
	Multiplier    decimal.Decimal `json:"total_multiplier"`
}

type slotsResult struct {
	Reels      [reels]string   `json:"reels"`
	Multiplier decimal.Decimal `json:"multiplier"`
	FreeSpins  int             `json:"free_spins_awarded"`
	FreeSpin   bool            `json:"free_spin"`
}

type slotsSpin struct {
	game  *Slots
	state SlotsState
	free  bool
}

func (g *Slots) Decode(data json.RawMessage) (Round, error) {
	var d struct{}
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	return &slotsSpin{game: g, state: SlotsState{Multiplier: decimal.Zero}}, nil
}

func (g *Slots) DecodeContinue(state, data json.RawMessage) (Round, error) {
	var st SlotsState
	if err := decodeState(state, &st); err != nil {
		return nil, err
	}
	var d struct{}
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if st.FreeSpinsLeft < 1 {
		return nil, models.Validationf("no free spins left")
	}
	st.FreeSpinsLeft--
	return &slotsSpin{game: g, state: st, free: true}, nil
}

func (r *slotsSpin) Resolve(s *fairness.Stream) (Outcome, error) {
	st := r.state
	res := slotsResult{FreeSpin: r.free, Multiplier: decimal.Zero}

	var picked [reels]int
	for i := range picked {
		picked[i] = s.Weighted(r.game.weights)
		res.Reels[i] = r.game.symbols[picked[i]].name
	}

	if picked[0] == picked[1] && picked[1] == picked[2] {
		sym := r.game.symbols[picked[0]]
		if sym.scatter {
			res.FreeSpins = r.game.freeSpins
			st.FreeSpinsLeft += r.game.freeSpins
		} else {
			res.Multiplier = sym.multiplier
		}
	}

	st.Spins++
	st.Multiplier = st.Multiplier.Add(res.Multiplier)

	raw, err := encode(res)
	if err != nil {
		return Outcome{}, err
	}
	state, err := encode(st)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Raw:        raw,
		Multiplier: st.Multiplier,
		Credit:     res.Multiplier,
		Finished:   st.FreeSpinsLeft == 0,
		State:      state,
	}, nil
}

// Cashout gives up the remaining free spins. Every spin is paid as it
// lands, so nothing more is owed.
func (g *Slots) Cashout(state json.RawMessage) (decimal.Decimal, error) {
	var st SlotsState
	if err := decodeState(state, &st); err != nil {
		return decimal.Zero, err
	}
	return decimal.Zero, nil
}

func (g *Slots) Forfeit(json.RawMessage) decimal.Decimal {
	return decimal.Zero
}
