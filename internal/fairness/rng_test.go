package fairness_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"sort"
	"testing"

	"pgregory.net/rapid"

	"fairplay-backend/internal/fairness"
)

func TestBlockMatchesHMAC(t *testing.T) {
	h := hmac.New(sha256.New, []byte("server"))
	h.Write([]byte("client:7:2"))
	want := h.Sum(nil)

	got := fairness.Block("server", "client", 7, 2)
	if string(got[:]) != string(want) {
		t.Fatalf("Block mismatch: got %x want %x", got, want)
	}
}

func TestStreamDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		server := rapid.StringN(1, 64, -1).Draw(t, "server")
		client := rapid.StringN(0, 64, -1).Draw(t, "client")
		nonce := rapid.Uint64().Draw(t, "nonce")
		draws := rapid.IntRange(1, 40).Draw(t, "draws")

		a := fairness.NewStream(server, client, nonce)
		b := fairness.NewStream(server, client, nonce)
		for i := 0; i < draws; i++ {
			if a.Uint64() != b.Uint64() {
				t.Fatalf("Streams diverged at draw %d", i)
			}
		}
		if a.Consumed() != draws*8 {
			t.Fatalf("Expected %d bytes consumed, got %d", draws*8, a.Consumed())
		}
	})
}

func TestStreamDependsOnNonce(t *testing.T) {
	a := fairness.NewStream("server", "client", 1).Uint64()
	b := fairness.NewStream("server", "client", 2).Uint64()
	if a == b {
		t.Error("Different nonces should give different streams")
	}
}

func TestIntnRangeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 1_000_000).Draw(t, "n")
		nonce := rapid.Uint64().Draw(t, "nonce")
		s := fairness.NewStream("server", "client", nonce)
		for i := 0; i < 20; i++ {
			v := s.Intn(n)
			if v < 0 || v >= n {
				t.Fatalf("Intn(%d) returned %d", n, v)
			}
		}
	})
}

func TestFloat64Range(t *testing.T) {
	s := fairness.NewStream("server", "client", 0)
	for i := 0; i < 1000; i++ {
		f := s.Float64()
		if f < 0 || f >= 1 {
			t.Fatalf("Float64 out of range: %v", f)
		}
	}
}

func TestPermIsPermutationProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 60).Draw(t, "n")
		nonce := rapid.Uint64().Draw(t, "nonce")

		p := fairness.NewStream("server", "client", nonce).Perm(n)
		sorted := append([]int(nil), p...)
		sort.Ints(sorted)
		for i, v := range sorted {
			if v != i {
				t.Fatalf("Perm(%d) is not a permutation: %v", n, p)
			}
		}
	})
}

func TestIntnRoughlyUniform(t *testing.T) {
	const n, draws = 6, 60000
	counts := make([]int, n)
	s := fairness.NewStream("uniformity", "check", 42)
	for i := 0; i < draws; i++ {
		counts[s.Intn(n)]++
	}
	for face, c := range counts {
		if c < 9000 || c > 11000 {
			t.Errorf("Face %d drawn %d times, expected about %d", face, c, draws/n)
		}
	}
}

func TestWeighted(t *testing.T) {
	s := fairness.NewStream("server", "client", 3)
	for i := 0; i < 200; i++ {
		if got := s.Weighted([]int{0, 5, 0}); got != 1 {
			t.Fatalf("Expected index 1 for single non-zero weight, got %d", got)
		}
	}
}
