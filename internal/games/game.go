// Package games holds the closed set of game variants. Each variant decodes
// its own request payload into a Round, and a Round resolves against a
// fairness stream into an Outcome.
package games

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

// ErrCashoutRequested is returned by DecodeContinue when the continue
// payload only asks to cash out.
var ErrCashoutRequested = errors.New("cashout requested")

type Outcome struct {
	Raw json.RawMessage
	// Multiplier is the session value after this round, relative to the stake.
	Multiplier decimal.Decimal
	// Credit is the multiple of the stake paid out by this round.
	Credit   decimal.Decimal
	Finished bool
	State    json.RawMessage
}

type Round interface {
	Resolve(s *fairness.Stream) (Outcome, error)
}

type Game interface {
	Info() models.GameInfo
	Decode(data json.RawMessage) (Round, error)
}

// StatefulGame spans several rounds. State is the opaque JSON produced by
// the previous Outcome.
type StatefulGame interface {
	Game
	DecodeContinue(state, data json.RawMessage) (Round, error)
	// Cashout returns the multiple of the stake still owed when the player
	// stops now.
	Cashout(state json.RawMessage) (decimal.Decimal, error)
	// Forfeit returns what is owed when the session expires.
	Forfeit(state json.RawMessage) decimal.Decimal
}

func IsStateful(g Game) bool {
	_, ok := g.(StatefulGame)
	return ok
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return models.Validationf("malformed game data: %v", err)
	}
	return nil
}

func decodeState(state json.RawMessage, v any) error {
	if err := json.Unmarshal(state, v); err != nil {
		return fmt.Errorf("corrupt game state: %w", err)
	}
	return nil
}

func encode(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outcome: %w", err)
	}
	return b, nil
}

// single builds the outcome of a one-shot round paying mult on success.
func single(raw any, win bool, mult decimal.Decimal) (Outcome, error) {
	b, err := encode(raw)
	if err != nil {
		return Outcome{}, err
	}
	if !win {
		mult = decimal.Zero
	}
	return Outcome{Raw: b, Multiplier: mult, Credit: mult, Finished: true}, nil
}

type info struct {
	id       int64
	name     string
	variant  string
	stateful bool
}

func (i info) Info() models.GameInfo {
	return models.GameInfo{
		ID:       i.id,
		Name:     i.name,
		Variant:  i.variant,
		Stateful: i.stateful,
	}
}
