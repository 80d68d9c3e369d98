// Package payout builds the multiplier tables used to settle rounds. Tables
// are computed once at startup from exact integer or rational arithmetic and
// are read-only afterwards.
package payout

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept in every multiplier.
const Precision = 4

var DefaultRTP = decimal.RequireFromString("0.99")

// floorRat truncates a non-negative rational to Precision digits.
func floorRat(r *big.Rat) decimal.Decimal {
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt64(10000))
	q := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	return decimal.NewFromBigInt(q, -Precision)
}

func checkRTP(rtp decimal.Decimal) error {
	if !rtp.IsPositive() || rtp.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("rtp must be in (0, 1], got %s", rtp)
	}
	return nil
}
