package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/models"
)

// ErrEntryVoided is returned by Settle for a key that was voided before it
// reached the ledger.
var ErrEntryVoided = errors.New("ledger entry voided")

// Ledger is the external balance authority. Settle applies debit and credit
// of one round in a single step and is idempotent per entry key. Void undoes
// an applied entry or blocks one that has not arrived yet.
type Ledger interface {
	Balance(ctx context.Context, userID, coinID int64) (decimal.Decimal, error)
	Settle(ctx context.Context, entry models.LedgerEntry) (decimal.Decimal, error)
	Void(ctx context.Context, entry models.LedgerEntry) error
}

type walletKey struct {
	userID int64
	coinID int64
}

type settlement struct {
	balance decimal.Decimal
	voided  bool
}

type MemoryLedger struct {
	mu       sync.Mutex
	starting decimal.Decimal
	balances map[walletKey]decimal.Decimal
	entries  map[string]settlement
}

func NewMemoryLedger(starting decimal.Decimal) *MemoryLedger {
	return &MemoryLedger{
		starting: starting,
		balances: make(map[walletKey]decimal.Decimal),
		entries:  make(map[string]settlement),
	}
}

func (l *MemoryLedger) balance(k walletKey) decimal.Decimal {
	b, ok := l.balances[k]
	if !ok {
		return l.starting
	}
	return b
}

func (l *MemoryLedger) Balance(ctx context.Context, userID, coinID int64) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.balance(walletKey{userID, coinID}), nil
}

// SetBalance overwrites a wallet. Used for seeding accounts.
func (l *MemoryLedger) SetBalance(userID, coinID int64, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balances[walletKey{userID, coinID}] = amount
}

func (l *MemoryLedger) Settle(ctx context.Context, entry models.LedgerEntry) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if prev, ok := l.entries[entry.Key]; ok {
		if prev.voided {
			return decimal.Zero, fmt.Errorf("%s: %w", entry.Key, ErrEntryVoided)
		}
		return prev.balance, nil
	}

	k := walletKey{entry.UserID, entry.CoinID}
	bal := l.balance(k)
	if bal.LessThan(entry.Debit) {
		return decimal.Zero, models.ErrInsufficientBalance
	}

	bal = bal.Sub(entry.Debit).Add(entry.Credit)
	l.balances[k] = bal
	l.entries[entry.Key] = settlement{balance: bal}
	return bal, nil
}

func (l *MemoryLedger) Void(ctx context.Context, entry models.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, ok := l.entries[entry.Key]
	if ok && prev.voided {
		return nil
	}
	if ok {
		k := walletKey{entry.UserID, entry.CoinID}
		l.balances[k] = l.balance(k).Add(entry.Debit).Sub(entry.Credit)
	}
	l.entries[entry.Key] = settlement{voided: true}
	return nil
}
