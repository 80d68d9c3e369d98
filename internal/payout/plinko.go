package payout

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	PlinkoMinRows    = 8
	PlinkoMaxRows    = 16
	PlinkoRiskLevels = 3
)

// PlinkoTable[risk][rows-8][slot] is the multiplier for a ball landing in
// slot after falling through rows pegs.
type PlinkoTable struct {
	values [PlinkoRiskLevels][PlinkoMaxRows - PlinkoMinRows + 1][]decimal.Decimal
}

// NewPlinkoTable weights each slot k by (|2k - rows| + 2)^(risk+1), so edges
// pay more as risk grows, and scales the weights so that the expected
// multiplier under the binomial landing distribution is rtp. Values are
// floored, so the realised return never exceeds rtp.
func NewPlinkoTable(rtp decimal.Decimal) (*PlinkoTable, error) {
	if err := checkRTP(rtp); err != nil {
		return nil, err
	}

	t := &PlinkoTable{}
	for risk := 0; risk < PlinkoRiskLevels; risk++ {
		for rows := PlinkoMinRows; rows <= PlinkoMaxRows; rows++ {
			weights := make([]*big.Int, rows+1)
			expected := new(big.Rat)
			for k := 0; k <= rows; k++ {
				d := int64(2*k - rows)
				if d < 0 {
					d = -d
				}
				w := new(big.Int).Exp(big.NewInt(d+2), big.NewInt(int64(risk+1)), nil)
				weights[k] = w

				p := Probability(rows, k)
				expected.Add(expected, p.Mul(p, new(big.Rat).SetInt(w)))
			}

			slots := make([]decimal.Decimal, rows+1)
			for k, w := range weights {
				r := new(big.Rat).SetInt(w)
				r.Mul(r, rtp.Rat())
				r.Quo(r, expected)
				slots[k] = floorRat(r)
			}
			t.values[risk][rows-PlinkoMinRows] = slots
		}
	}
	return t, nil
}

func (t *PlinkoTable) Slots(risk, rows int) ([]decimal.Decimal, error) {
	if risk < 0 || risk >= PlinkoRiskLevels {
		return nil, fmt.Errorf("plinko risk %d out of range", risk)
	}
	if rows < PlinkoMinRows || rows > PlinkoMaxRows {
		return nil, fmt.Errorf("plinko rows %d out of range", rows)
	}
	return t.values[risk][rows-PlinkoMinRows], nil
}

// Probability returns the chance of landing in slot k after rows pegs.
func Probability(rows, k int) *big.Rat {
	ways := new(big.Int).Binomial(int64(rows), int64(k))
	return new(big.Rat).SetFrac(ways, new(big.Int).Lsh(big.NewInt(1), uint(rows)))
}
