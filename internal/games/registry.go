package games

import (
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/payout"
)

type Registry struct {
	mu    sync.RWMutex
	games map[int64]Game
}

func NewRegistry() *Registry {
	return &Registry{games: make(map[int64]Game)}
}

func (r *Registry) Register(g Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := g.Info().ID
	if _, exists := r.games[id]; exists {
		return fmt.Errorf("game %d already registered", id)
	}
	r.games[id] = g
	return nil
}

func (r *Registry) Get(id int64) (Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[id]
	if !ok {
		return nil, models.Validationf("unknown game %d", id)
	}
	return g, nil
}

func (r *Registry) List() []models.GameInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.GameInfo, 0, len(r.games))
	for _, g := range r.games {
		out = append(out, g.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tables are shared by every game built from one catalogue.
type Tables struct {
	RTP    decimal.Decimal
	Mines  *payout.MinesTable
	Wheel  *payout.WheelTable
	Plinko *payout.PlinkoTable
}

func NewTables(rtp decimal.Decimal) (*Tables, error) {
	mines, err := payout.NewMinesTable(rtp)
	if err != nil {
		return nil, err
	}
	wheel, err := payout.NewWheelTable(rtp)
	if err != nil {
		return nil, err
	}
	plinko, err := payout.NewPlinkoTable(rtp)
	if err != nil {
		return nil, err
	}
	return &Tables{RTP: rtp, Mines: mines, Wheel: wheel, Plinko: plinko}, nil
}

// FromConfig builds a registry holding every game in the catalogue.
func FromConfig(cfg *config.GamesConfig) (*Registry, error) {
	rtp, err := decimal.NewFromString(cfg.RTP)
	if err != nil {
		return nil, fmt.Errorf("invalid rtp %q: %w", cfg.RTP, err)
	}
	tables, err := NewTables(rtp)
	if err != nil {
		return nil, err
	}

	reg := NewRegistry()
	for _, def := range cfg.Games {
		g, err := build(def, tables)
		if err != nil {
			return nil, fmt.Errorf("game %d (%s): %w", def.ID, def.Name, err)
		}
		if err := reg.Register(g); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func build(def config.GameDef, t *Tables) (Game, error) {
	base := info{id: def.ID, name: def.Name, variant: def.Kind}

	switch def.Kind {
	case "coinflip":
		profit, err := coef(def.ProfitCoef, "profit_coef")
		if err != nil {
			return nil, err
		}
		return &CoinFlip{info: base, profit: profit}, nil
	case "dice":
		return &Dice{info: base, rtp: t.RTP}, nil
	case "rps":
		profit, err := coef(def.ProfitCoef, "profit_coef")
		if err != nil {
			return nil, err
		}
		draw, err := coef(def.DrawCoef, "draw_coef")
		if err != nil {
			return nil, err
		}
		return &RPS{info: base, profit: profit, draw: draw}, nil
	case "race":
		profit, err := coef(def.ProfitCoef, "profit_coef")
		if err != nil {
			return nil, err
		}
		if def.Cars < 2 {
			return nil, fmt.Errorf("race needs at least 2 cars")
		}
		return &Race{info: base, profit: profit, cars: def.Cars}, nil
	case "wheel":
		return &Wheel{info: base, table: t.Wheel}, nil
	case "plinko":
		return &Plinko{info: base, table: t.Plinko}, nil
	case "rocket":
		return &Rocket{info: base, rtp: t.RTP}, nil
	case "mines":
		base.stateful = true
		return &Mines{info: base, table: t.Mines}, nil
	case "poker":
		base.stateful = true
		return newPoker(base, def.Payouts)
	case "slots":
		base.stateful = true
		return newSlots(base, def.Symbols, def.FreeSpins)
	default:
		return nil, fmt.Errorf("unknown kind %q", def.Kind)
	}
}

func coef(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%s is required", field)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", field)
	}
	return d, nil
}
