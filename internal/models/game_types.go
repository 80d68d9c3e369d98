package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// GameData carries the game-specific payload. Clients may send it either as
// a JSON object or as a string holding JSON; both decode to the same bytes.
type GameData json.RawMessage

func (d *GameData) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			s = "{}"
		}
		if !json.Valid([]byte(s)) {
			return fmt.Errorf("data is not valid JSON")
		}
		*d = GameData(s)
		return nil
	}
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*d = GameData("{}")
		return nil
	}
	*d = append((*d)[:0], b...)
	return nil
}

func (d GameData) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("{}"), nil
	}
	return d, nil
}

func (d GameData) Raw() json.RawMessage {
	if len(d) == 0 {
		return json.RawMessage("{}")
	}
	return json.RawMessage(d)
}

type MakeBetRequest struct {
	GameID   int64           `json:"game_id"`
	CoinID   int64           `json:"coin_id"`
	Data     GameData        `json:"data"`
	Amount   decimal.Decimal `json:"amount"`
	StopLoss decimal.Decimal `json:"stop_loss"`
	StopWin  decimal.Decimal `json:"stop_win"`
	NumGames int             `json:"num_games"`
}

// Validate checks the envelope fields. Game-specific data is checked by the
// game itself.
func (r *MakeBetRequest) Validate(maxGames int) error {
	if r.GameID <= 0 {
		return Validationf("game_id is required")
	}
	if r.CoinID <= 0 {
		return Validationf("coin_id is required")
	}
	if !r.Amount.IsPositive() {
		return Validationf("amount must be greater than zero")
	}
	if r.StopLoss.IsNegative() || r.StopWin.IsNegative() {
		return Validationf("stop_loss and stop_win must not be negative")
	}
	if r.NumGames == 0 {
		r.NumGames = 1
	}
	if r.NumGames < 1 || r.NumGames > maxGames {
		return Validationf("num_games must be between 1 and %d", maxGames)
	}
	return nil
}

type ContinueGameRequest struct {
	GameID int64    `json:"game_id"`
	CoinID int64    `json:"coin_id"`
	Data   GameData `json:"data"`
}

func (r *ContinueGameRequest) Validate() error {
	if r.GameID <= 0 {
		return Validationf("game_id is required")
	}
	return nil
}

// GameRef addresses a (user, game) slot for GetState and Cashout.
type GameRef struct {
	GameID int64 `json:"game_id"`
	CoinID int64 `json:"coin_id"`
}

func (r *GameRef) Validate() error {
	if r.GameID <= 0 {
		return Validationf("game_id is required")
	}
	return nil
}

type VerifyRequest struct {
	GameID     int64    `json:"game_id"`
	ServerSeed string   `json:"server_seed"`
	ClientSeed string   `json:"client_seed"`
	Nonce      uint64   `json:"nonce"`
	Data       GameData `json:"data"`
	State      GameData `json:"state,omitempty"`
}

type VerifyResult struct {
	ServerSeedHash string          `json:"server_seed_hash"`
	Outcome        json.RawMessage `json:"raw_outcome"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	Credit         decimal.Decimal `json:"credit_multiplier"`
	Finished       bool            `json:"finished"`
	State          json.RawMessage `json:"state,omitempty"`
}
