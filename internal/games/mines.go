package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/payout"
)

type Mines struct {
	info
	table *payout.MinesTable
}

type minesData struct {
	NumMines *int   `json:"num_mines"`
	Cashout  bool   `json:"cashout"`
	Tiles    []bool `json:"tiles"`
}

type minesContinueData struct {
	Cashout bool   `json:"cashout"`
	Tiles   []bool `json:"tiles"`
}

type MinesState struct {
	NumMines   int                     `json:"num_mines"`
	Revealed   [payout.MinesTiles]bool `json:"revealed"`
	Multiplier decimal.Decimal         `json:"current_multiplier"`
	Mines      []int                   `json:"mines,omitempty"`
	Hit        bool                    `json:"hit"`
}

func (st *MinesState) revealedCount() int {
	n := 0
	for _, r := range st.Revealed {
		if r {
			n++
		}
	}
	return n
}

type minesResult struct {
	Picks    []int `json:"picks"`
	Mines    []int `json:"mines"`
	Hit      bool  `json:"hit"`
	Revealed int   `json:"revealed"`
}

type minesRound struct {
	game    *Mines
	state   MinesState
	picks   []int
	cashout bool
}

func (g *Mines) Decode(data json.RawMessage) (Round, error) {
	var d minesData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.NumMines == nil || *d.NumMines < payout.MinesMinMines || *d.NumMines > payout.MinesMaxMines {
		return nil, models.Validationf("num_mines must be between %d and %d", payout.MinesMinMines, payout.MinesMaxMines)
	}

	st := MinesState{NumMines: *d.NumMines, Multiplier: decimal.NewFromInt(1)}
	picks, err := g.picks(&st, d.Tiles)
	if err != nil {
		return nil, err
	}
	return &minesRound{game: g, state: st, picks: picks, cashout: d.Cashout}, nil
}

func (g *Mines) DecodeContinue(state, data json.RawMessage) (Round, error) {
	var st MinesState
	if err := decodeState(state, &st); err != nil {
		return nil, err
	}
	if st.NumMines < payout.MinesMinMines || st.NumMines > payout.MinesMaxMines || st.Hit {
		return nil, models.Validationf("board is not in play")
	}
	var d minesContinueData
	if err := decode(data, &d); err != nil {
		return nil, err
	}
	if d.Tiles == nil {
		if d.Cashout {
			return nil, ErrCashoutRequested
		}
		return nil, models.Validationf("tiles are required")
	}

	picks, err := g.picks(&st, d.Tiles)
	if err != nil {
		return nil, err
	}
	return &minesRound{game: g, state: st, picks: picks, cashout: d.Cashout}, nil
}

// picks validates a 25-tile selection against the board: at least one new
// tile, none already revealed, and never more than the safe tile count.
func (g *Mines) picks(st *MinesState, tiles []bool) ([]int, error) {
	if len(tiles) != payout.MinesTiles {
		return nil, models.Validationf("tiles must have exactly %d entries", payout.MinesTiles)
	}

	var picks []int
	for i, t := range tiles {
		if !t {
			continue
		}
		if st.Revealed[i] {
			return nil, models.Validationf("tile %d is already revealed", i)
		}
		picks = append(picks, i)
	}
	if len(picks) == 0 {
		return nil, models.Validationf("pick at least one tile")
	}
	if st.revealedCount()+len(picks) > g.table.MaxReveal(st.NumMines) {
		return nil, models.Validationf("at most %d safe tiles can be revealed", g.table.MaxReveal(st.NumMines))
	}
	return picks, nil
}

// Resolve places the mines uniformly among the tiles not yet revealed, using
// the round's own nonce, then checks the picks against them.
func (r *minesRound) Resolve(s *fairness.Stream) (Outcome, error) {
	st := r.state

	var hidden []int
	for i, rev := range st.Revealed {
		if !rev {
			hidden = append(hidden, i)
		}
	}
	perm := s.Perm(len(hidden))
	isMine := make(map[int]bool, st.NumMines)
	mines := make([]int, 0, st.NumMines)
	for _, p := range perm[:st.NumMines] {
		isMine[hidden[p]] = true
		mines = append(mines, hidden[p])
	}

	hit := false
	for _, p := range r.picks {
		st.Revealed[p] = true
		if isMine[p] {
			hit = true
		}
	}
	revealed := st.revealedCount()

	out := Outcome{}
	if hit {
		st.Hit = true
		st.Mines = mines
		st.Multiplier = decimal.Zero
		out.Finished = true
	} else {
		mult, err := r.game.table.Multiplier(st.NumMines, revealed)
		if err != nil {
			return Outcome{}, err
		}
		st.Multiplier = mult
		out.Multiplier = mult
		if r.cashout || revealed == r.game.table.MaxReveal(st.NumMines) {
			st.Mines = mines
			out.Finished = true
			out.Credit = mult
		}
	}

	var err error
	if out.Raw, err = encode(minesResult{Picks: r.picks, Mines: mines, Hit: hit, Revealed: revealed}); err != nil {
		return Outcome{}, err
	}
	if out.State, err = encode(st); err != nil {
		return Outcome{}, err
	}
	return out, nil
}

func (g *Mines) Cashout(state json.RawMessage) (decimal.Decimal, error) {
	var st MinesState
	if err := decodeState(state, &st); err != nil {
		return decimal.Zero, err
	}
	if st.Hit {
		return decimal.Zero, models.Validationf("board already lost")
	}
	n := st.revealedCount()
	if n == 0 {
		return decimal.Zero, models.Validationf("reveal at least one tile before cashing out")
	}
	return g.table.Multiplier(st.NumMines, n)
}

func (g *Mines) Forfeit(state json.RawMessage) decimal.Decimal {
	mult, err := g.Cashout(state)
	if err != nil {
		return decimal.Zero
	}
	return mult
}
