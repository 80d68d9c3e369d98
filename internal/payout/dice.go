package payout

import (
	"math"

	"github.com/shopspring/decimal"
)

// Dice rolls land in [0, DiceRange).
const DiceRange = 1_000_000

var (
	DiceMinMultiplier   = decimal.RequireFromString("1.0102")
	DiceMaxMultiplier   = decimal.NewFromInt(9900)
	RocketMinMultiplier = decimal.RequireFromString("1.01")
	RocketMaxMultiplier = decimal.NewFromInt(1_000_000)
)

// DiceWinUnits returns how many of the DiceRange outcomes win at the given
// multiplier: floor(rtp * DiceRange / multiplier).
func DiceWinUnits(rtp, multiplier decimal.Decimal) int64 {
	if !multiplier.IsPositive() {
		return 0
	}
	units := rtp.Mul(decimal.NewFromInt(DiceRange)).Div(multiplier).Floor()
	return min(units.IntPart(), DiceRange)
}

// RocketCrashPoint maps a uniform u in [0, 1) to a crash multiplier with the
// given return. The result is floored to two decimals and clamped to
// [1, RocketMaxMultiplier].
func RocketCrashPoint(rtp decimal.Decimal, u float64) decimal.Decimal {
	r := rtp.InexactFloat64()
	raw := math.Floor(r*100/(1-u)) / 100
	if math.IsInf(raw, 0) || raw > RocketMaxMultiplier.InexactFloat64() {
		return RocketMaxMultiplier
	}
	if raw < 1 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromFloat(raw).Truncate(2)
}
