// Package fairness derives verifiable random streams from seed material.
//
// Every block is HMAC-SHA256(server_seed, "client_seed:nonce:round_index").
// A stream reads the blocks in order, moving to the next round_index once 32
// bytes are consumed, so any number of draws can be replayed from the
// revealed server seed, the client seed and the nonce.
package fairness

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

const BlockSize = sha256.Size

// Block returns the 32 bytes for one round index.
func Block(serverSeed, clientSeed string, nonce uint64, roundIndex int) [BlockSize]byte {
	h := hmac.New(sha256.New, []byte(serverSeed))
	fmt.Fprintf(h, "%s:%d:%d", clientSeed, nonce, roundIndex)

	var out [BlockSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

type Stream struct {
	serverSeed string
	clientSeed string
	nonce      uint64

	round  int
	pos    int
	buffer [BlockSize]byte
}

func NewStream(serverSeed, clientSeed string, nonce uint64) *Stream {
	s := &Stream{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
	}
	s.buffer = Block(serverSeed, clientSeed, nonce, 0)
	return s
}

func (s *Stream) Nonce() uint64 { return s.nonce }

// Consumed reports how many bytes have been read so far.
func (s *Stream) Consumed() int {
	return s.round*BlockSize + s.pos
}

func (s *Stream) next() byte {
	if s.pos == BlockSize {
		s.round++
		s.pos = 0
		s.buffer = Block(s.serverSeed, s.clientSeed, s.nonce, s.round)
	}
	b := s.buffer[s.pos]
	s.pos++
	return b
}

func (s *Stream) Uint64() uint64 {
	var b [8]byte
	for i := range b {
		b[i] = s.next()
	}
	return binary.BigEndian.Uint64(b[:])
}

// Float64 returns a value in [0, 1) built from 53 bits.
func (s *Stream) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

func (s *Stream) Bool() bool {
	return s.next()&1 == 1
}

// Intn returns a uniform value in [0, n). Draws below 2^64 mod n are
// rejected so every residue is equally likely.
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		panic("fairness: Intn called with non-positive n")
	}
	if n == 1 {
		return 0
	}
	un := uint64(n)
	threshold := -un % un
	for {
		v := s.Uint64()
		if v >= threshold {
			return int(v % un)
		}
	}
}

// Perm returns a uniformly shuffled permutation of [0, n).
func (s *Stream) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.Intn(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Weighted picks an index with probability proportional to its weight.
func (s *Stream) Weighted(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 || total > math.MaxInt32 {
		panic("fairness: invalid weight total")
	}
	r := s.Intn(total)
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}
