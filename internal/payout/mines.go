package payout

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	MinesTiles    = 25
	MinesMinMines = 1
	MinesMaxMines = 24
)

// MinesTable holds multiplier(m, g) for every mine count m and number of
// safe tiles revealed g.
type MinesTable struct {
	rtp    decimal.Decimal
	values [MinesMaxMines + 1][]decimal.Decimal
}

// NewMinesTable computes rtp / P(g safe picks in a row) for every cell. The
// survival probability is kept as an exact fraction of integer products and
// rounded once, half away from zero.
func NewMinesTable(rtp decimal.Decimal) (*MinesTable, error) {
	if err := checkRTP(rtp); err != nil {
		return nil, err
	}

	t := &MinesTable{rtp: rtp}
	for m := MinesMinMines; m <= MinesMaxMines; m++ {
		row := make([]decimal.Decimal, MinesTiles-m+1)
		num := big.NewInt(1)
		den := big.NewInt(1)
		row[0] = rtp.Round(Precision)
		for g := 1; g <= MinesTiles-m; g++ {
			num.Mul(num, big.NewInt(int64(MinesTiles-m-(g-1))))
			den.Mul(den, big.NewInt(int64(MinesTiles-(g-1))))
			top := decimal.NewFromBigInt(den, 0).Mul(rtp)
			row[g] = top.DivRound(decimal.NewFromBigInt(num, 0), Precision)
		}
		t.values[m] = row
	}
	return t, nil
}

// Multiplier returns the payout multiplier after g safe reveals with m mines.
// g = 0 is the value of an untouched board.
func (t *MinesTable) Multiplier(m, g int) (decimal.Decimal, error) {
	if m < MinesMinMines || m > MinesMaxMines {
		return decimal.Zero, fmt.Errorf("mine count %d out of range", m)
	}
	if g < 0 || g > MinesTiles-m {
		return decimal.Zero, fmt.Errorf("reveal count %d out of range for %d mines", g, m)
	}
	return t.values[m][g], nil
}

func (t *MinesTable) MaxReveal(m int) int {
	return MinesTiles - m
}

// Row returns a copy of the multipliers for m mines, indexed by reveal count.
func (t *MinesTable) Row(m int) []decimal.Decimal {
	if m < MinesMinMines || m > MinesMaxMines {
		return nil
	}
	return append([]decimal.Decimal(nil), t.values[m]...)
}
