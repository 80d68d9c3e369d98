package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RoundEvent is published to subscribers of a game after a round settles.
type RoundEvent struct {
	SessionID  string          `json:"session_id"`
	UserID     int64           `json:"user_id"`
	GameID     int64           `json:"game_id"`
	CoinID     int64           `json:"coin_id"`
	Nonce      uint64          `json:"nonce"`
	Stake      decimal.Decimal `json:"amount"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
	Finished   bool            `json:"finished"`
	Timestamp  time.Time       `json:"timestamp"`
}
