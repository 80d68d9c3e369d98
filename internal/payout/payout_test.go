package payout_test

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/payout"
)

func mustMines(t *testing.T) *payout.MinesTable {
	t.Helper()
	table, err := payout.NewMinesTable(payout.DefaultRTP)
	if err != nil {
		t.Fatalf("Failed to build mines table: %v", err)
	}
	return table
}

func TestMinesKnownValues(t *testing.T) {
	table := mustMines(t)

	tests := []struct {
		mines, revealed int
		want            string
	}{
		{1, 1, "1.0313"},
		{3, 3, "1.4786"},
		{1, 24, "24.75"},
		{24, 1, "24.75"},
		{5, 0, "0.99"},
	}

	for _, tt := range tests {
		got, err := table.Multiplier(tt.mines, tt.revealed)
		if err != nil {
			t.Fatalf("Multiplier(%d,%d) failed: %v", tt.mines, tt.revealed, err)
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Multiplier(%d,%d) = %s, want %s", tt.mines, tt.revealed, got, tt.want)
		}
	}
}

func TestMinesMonotonicAndClosedForm(t *testing.T) {
	table := mustMines(t)
	tolerance := decimal.RequireFromString("0.00005")

	for m := payout.MinesMinMines; m <= payout.MinesMaxMines; m++ {
		survival := big.NewRat(1, 1)
		prev, _ := table.Multiplier(m, 0)
		for g := 1; g <= payout.MinesTiles-m; g++ {
			survival.Mul(survival, big.NewRat(int64(payout.MinesTiles-m-(g-1)), int64(payout.MinesTiles-(g-1))))

			got, err := table.Multiplier(m, g)
			if err != nil {
				t.Fatalf("Multiplier(%d,%d) failed: %v", m, g, err)
			}
			if !got.GreaterThan(prev) {
				t.Errorf("Multiplier(%d,%d) = %s is not above %s", m, g, got, prev)
			}

			exact := new(big.Rat).Quo(payout.DefaultRTP.Rat(), survival)
			diff := got.Sub(decimal.NewFromBigRat(exact, 12)).Abs()
			if diff.GreaterThan(tolerance) {
				t.Errorf("Multiplier(%d,%d) = %s drifts from closed form by %s", m, g, got, diff)
			}
			prev = got
		}
	}
}

func TestMinesOutOfRange(t *testing.T) {
	table := mustMines(t)
	for _, c := range [][2]int{{0, 1}, {25, 1}, {3, 23}, {3, -1}} {
		if _, err := table.Multiplier(c[0], c[1]); err == nil {
			t.Errorf("Multiplier(%d,%d) should fail", c[0], c[1])
		}
	}
	if table.MaxReveal(3) != 22 {
		t.Errorf("Expected 22 reveals for 3 mines, got %d", table.MaxReveal(3))
	}
}

func TestDiceWinUnits(t *testing.T) {
	tests := []struct {
		multiplier string
		want       int64
	}{
		{"2", 495000},
		{"1.0102", 980003},
		{"9900", 100},
		{"3.3", 300000},
	}
	for _, tt := range tests {
		got := payout.DiceWinUnits(payout.DefaultRTP, decimal.RequireFromString(tt.multiplier))
		if got != tt.want {
			t.Errorf("DiceWinUnits(%s) = %d, want %d", tt.multiplier, got, tt.want)
		}
	}
}

func TestRocketCrashPoint(t *testing.T) {
	tests := []struct {
		u    float64
		want string
	}{
		{0, "1"},
		{0.5, "1.98"},
		{0.9, "9.9"},
	}
	for _, tt := range tests {
		got := payout.RocketCrashPoint(payout.DefaultRTP, tt.u)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("RocketCrashPoint(%v) = %s, want %s", tt.u, got, tt.want)
		}
	}
	if got := payout.RocketCrashPoint(payout.DefaultRTP, 1-1e-12); !got.Equal(payout.RocketMaxMultiplier) {
		t.Errorf("Expected clamp to max, got %s", got)
	}
}

func TestWheelReturn(t *testing.T) {
	table, err := payout.NewWheelTable(payout.DefaultRTP)
	if err != nil {
		t.Fatalf("Failed to build wheel table: %v", err)
	}

	for risk := 0; risk < payout.WheelRiskLevels; risk++ {
		for level := 0; level < payout.WheelSectorLevels; level++ {
			sectors, err := table.Sectors(risk, level)
			if err != nil {
				t.Fatalf("Sectors(%d,%d) failed: %v", risk, level, err)
			}
			if len(sectors) != payout.WheelSectors(level) {
				t.Fatalf("Expected %d sectors, got %d", payout.WheelSectors(level), len(sectors))
			}
			sum := decimal.Zero
			for _, m := range sectors {
				sum = sum.Add(m)
			}
			rtp := sum.Div(decimal.NewFromInt(int64(len(sectors))))
			if rtp.GreaterThan(payout.DefaultRTP) || rtp.LessThan(decimal.RequireFromString("0.989")) {
				t.Errorf("Wheel risk %d level %d returns %s", risk, level, rtp)
			}
		}
	}

	if _, err := table.Sectors(3, 0); err == nil {
		t.Error("Risk 3 should be rejected")
	}
}

func TestPlinkoReturnAndSymmetry(t *testing.T) {
	table, err := payout.NewPlinkoTable(payout.DefaultRTP)
	if err != nil {
		t.Fatalf("Failed to build plinko table: %v", err)
	}

	floor := decimal.RequireFromString("0.9898")
	for risk := 0; risk < payout.PlinkoRiskLevels; risk++ {
		for rows := payout.PlinkoMinRows; rows <= payout.PlinkoMaxRows; rows++ {
			slots, err := table.Slots(risk, rows)
			if err != nil {
				t.Fatalf("Slots(%d,%d) failed: %v", risk, rows, err)
			}

			expected := new(big.Rat)
			for k, m := range slots {
				if !m.Equal(slots[rows-k]) {
					t.Errorf("Plinko risk %d rows %d is not symmetric at slot %d", risk, rows, k)
				}
				p := payout.Probability(rows, k)
				expected.Add(expected, p.Mul(p, m.Rat()))
			}
			rtp := decimal.NewFromBigRat(expected, 8)
			if rtp.GreaterThan(payout.DefaultRTP) || rtp.LessThan(floor) {
				t.Errorf("Plinko risk %d rows %d returns %s", risk, rows, rtp)
			}
			if !slots[0].GreaterThan(slots[rows/2]) {
				t.Errorf("Plinko risk %d rows %d edge should pay more than centre", risk, rows)
			}
		}
	}
}

func TestRejectsBadRTP(t *testing.T) {
	if _, err := payout.NewMinesTable(decimal.NewFromInt(2)); err == nil {
		t.Error("RTP above 1 should be rejected")
	}
	if _, err := payout.NewPlinkoTable(decimal.Zero); err == nil {
		t.Error("Zero RTP should be rejected")
	}
}
