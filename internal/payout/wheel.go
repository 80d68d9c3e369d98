package payout

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	WheelRiskLevels   = 3
	WheelSectorLevels = 5
)

// WheelSectors returns the sector count for a sector level: 10, 20 ... 50.
func WheelSectors(level int) int {
	return (level + 1) * 10
}

// WheelTable[risk][level][sector] is the multiplier for landing on sector.
type WheelTable struct {
	values [WheelRiskLevels][WheelSectorLevels][]decimal.Decimal
}

// winners is the number of paying sectors for a risk level on n sectors.
func winners(risk, n int) int {
	switch risk {
	case 0:
		return n / 2
	case 1:
		return n / 5
	default:
		return 1
	}
}

// NewWheelTable spreads k paying sectors evenly around the wheel, each paying
// rtp * n / k, so every configuration returns rtp.
func NewWheelTable(rtp decimal.Decimal) (*WheelTable, error) {
	if err := checkRTP(rtp); err != nil {
		return nil, err
	}

	t := &WheelTable{}
	for risk := 0; risk < WheelRiskLevels; risk++ {
		for level := 0; level < WheelSectorLevels; level++ {
			n := WheelSectors(level)
			k := winners(risk, n)
			step := n / k
			pay := rtp.Mul(decimal.NewFromInt(int64(n))).Div(decimal.NewFromInt(int64(k))).Truncate(Precision)

			sectors := make([]decimal.Decimal, n)
			for i := range sectors {
				if i%step == 0 {
					sectors[i] = pay
				} else {
					sectors[i] = decimal.Zero
				}
			}
			t.values[risk][level] = sectors
		}
	}
	return t, nil
}

func (t *WheelTable) Sectors(risk, level int) ([]decimal.Decimal, error) {
	if risk < 0 || risk >= WheelRiskLevels {
		return nil, fmt.Errorf("wheel risk %d out of range", risk)
	}
	if level < 0 || level >= WheelSectorLevels {
		return nil, fmt.Errorf("wheel sector level %d out of range", level)
	}
	return t.values[risk][level], nil
}
