package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type SessionState string

const (
	SessionIdle                 SessionState = "idle"
	SessionActive               SessionState = "active"
	SessionAwaitingContinuation SessionState = "awaiting_continuation"
	SessionSettled              SessionState = "settled"
	SessionExpired              SessionState = "expired"
)

func (s SessionState) Open() bool {
	return s == SessionActive || s == SessionAwaitingContinuation
}

type Action string

const (
	ActionMakeBet  Action = "make_bet"
	ActionContinue Action = "continue"
	ActionCashout  Action = "cashout"
)

type StopReason string

const (
	StopCompleted           StopReason = "completed"
	StopFinished            StopReason = "finished"
	StopLoss                StopReason = "stop_loss"
	StopWin                 StopReason = "stop_win"
	StopInsufficientBalance StopReason = "insufficient_balance"
	StopCancelled           StopReason = "cancelled"
	StopDependencyTimeout   StopReason = "dependency_timeout"
	StopCashout             StopReason = "cashout"
	StopExpired             StopReason = "expired"
	StopAborted             StopReason = "aborted"
)

// Round is immutable once appended to a session.
type Round struct {
	Index      int             `json:"index"`
	Nonce      uint64          `json:"nonce_used"`
	Stake      decimal.Decimal `json:"stake"`
	Outcome    json.RawMessage `json:"raw_outcome"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout_amount"`
	State      json.RawMessage `json:"cumulative_state,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (r Round) Profit() decimal.Decimal {
	return r.Payout.Sub(r.Stake)
}

type BetSession struct {
	ID                string          `json:"session_id"`
	UserID            int64           `json:"user_id"`
	GameID            int64           `json:"game_id"`
	CoinID            int64           `json:"coin_id"`
	Amount            decimal.Decimal `json:"amount"`
	StopLoss          decimal.Decimal `json:"stop_loss"`
	StopWin           decimal.Decimal `json:"stop_win"`
	NumGames          int             `json:"num_games"`
	NumGamesRemaining int             `json:"num_games_remaining"`
	Data              json.RawMessage `json:"data"`

	ClientSeed     string `json:"client_seed"`
	ServerSeedHash string `json:"server_seed_hash"`

	State      SessionState    `json:"state"`
	GameState  json.RawMessage `json:"game_state,omitempty"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Rounds     []Round         `json:"round_history"`
	StopReason StopReason      `json:"stop_reason,omitempty"`
	Payout     decimal.Decimal `json:"total_payout"`
	Wagered    decimal.Decimal `json:"total_wagered"`
	// Voids counts settlements voided after a dependency failure.
	Voids      int             `json:"voided_settlements,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	EndedAt   time.Time `json:"ended_at,omitzero"`
}

func (s *BetSession) Profit() decimal.Decimal {
	return s.Payout.Sub(s.Wagered)
}

// Append records a settled round and keeps the running totals in step.
func (s *BetSession) Append(r Round) {
	s.Rounds = append(s.Rounds, r)
	s.Wagered = s.Wagered.Add(r.Stake)
	s.Payout = s.Payout.Add(r.Payout)
	s.Multiplier = r.Multiplier
	if r.State != nil {
		s.GameState = r.State
	}
	s.UpdatedAt = r.CreatedAt
}

// Clone returns a copy that shares no mutable slices with s.
func (s *BetSession) Clone() *BetSession {
	c := *s
	c.Rounds = append([]Round(nil), s.Rounds...)
	return &c
}

type SessionSnapshot struct {
	Session *BetSession `json:"session,omitempty"`
	State   SessionState `json:"state"`
	Actions []Action     `json:"actions"`
}

// BetResult is returned for MakeBet, ContinueGame and Cashout.
type BetResult struct {
	Session *BetSession     `json:"session"`
	Rounds  []Round         `json:"rounds"`
	Balance decimal.Decimal `json:"balance"`
}

type GameInfo struct {
	ID       int64  `json:"game_id"`
	Name     string `json:"name"`
	Variant  string `json:"variant"`
	Stateful bool   `json:"stateful"`
}
