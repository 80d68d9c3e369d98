package models

import "github.com/shopspring/decimal"

// LedgerEntry is one atomic balance movement for a round. Key identifies the
// round so that replays are applied at most once.
type LedgerEntry struct {
	Key    string          `json:"key"`
	UserID int64           `json:"user_id"`
	CoinID int64           `json:"coin_id"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

func (e LedgerEntry) Net() decimal.Decimal {
	return e.Credit.Sub(e.Debit)
}

type BalanceResponse struct {
	UserID  int64           `json:"user_id"`
	CoinID  int64           `json:"coin_id"`
	Balance decimal.Decimal `json:"balance"`
}
