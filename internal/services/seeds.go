package services

import (
	"context"
	"fmt"
	"sync"
	"unicode"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
)

// SeedStore persists seed pairs. LoadSeeds returns nil, nil for a user that
// has none yet.
type SeedStore interface {
	LoadSeeds(ctx context.Context, userID int64) (*models.SeedPair, error)
	SaveSeeds(ctx context.Context, userID int64, pair *models.SeedPair) error
}

type issued struct {
	hash  string
	nonce uint64
}

// SeedLedger owns every user's seed pair. All reads and writes for one user
// go through that user's lock, so a nonce is handed to exactly one round.
type SeedLedger struct {
	store         SeedStore
	autoProvision bool

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
	last  map[int64]issued
}

func NewSeedLedger(store SeedStore, autoProvision bool) *SeedLedger {
	return &SeedLedger{
		store:         store,
		autoProvision: autoProvision,
		locks:         make(map[int64]*sync.Mutex),
		last:          make(map[int64]issued),
	}
}

func (l *SeedLedger) lock(userID int64) func() {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

func newSeedPair(clientSeed string) (*models.SeedPair, error) {
	server, err := fairness.NewServerSeed()
	if err != nil {
		return nil, err
	}
	if clientSeed == "" {
		if clientSeed, err = models.GenerateClientSeed(); err != nil {
			return nil, err
		}
	}
	return &models.SeedPair{
		ClientSeed:     clientSeed,
		ServerSeed:     server,
		ServerSeedHash: fairness.HashServerSeed(server),
	}, nil
}

// load must be called with the user's lock held.
func (l *SeedLedger) load(ctx context.Context, userID int64) (*models.SeedPair, error) {
	pair, err := l.store.LoadSeeds(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seeds: %w", err)
	}
	if pair != nil {
		return pair, nil
	}
	if !l.autoProvision {
		return nil, models.ErrSeedNotInitialized
	}

	pair, err = newSeedPair("")
	if err != nil {
		return nil, err
	}
	if err := l.store.SaveSeeds(ctx, userID, pair); err != nil {
		return nil, fmt.Errorf("failed to save seeds: %w", err)
	}
	return pair, nil
}

func (l *SeedLedger) CurrentSeedPair(ctx context.Context, userID int64) (models.SeedPair, error) {
	unlock := l.lock(userID)
	defer unlock()

	pair, err := l.load(ctx, userID)
	if err != nil {
		return models.SeedPair{}, err
	}
	return *pair, nil
}

// Provision creates a seed pair for a user who has none. It is a no-op for
// users that already have one.
func (l *SeedLedger) Provision(ctx context.Context, userID int64) (models.SeedPair, error) {
	unlock := l.lock(userID)
	defer unlock()

	pair, err := l.store.LoadSeeds(ctx, userID)
	if err != nil {
		return models.SeedPair{}, fmt.Errorf("failed to load seeds: %w", err)
	}
	if pair == nil {
		if pair, err = newSeedPair(""); err != nil {
			return models.SeedPair{}, err
		}
		if err := l.store.SaveSeeds(ctx, userID, pair); err != nil {
			return models.SeedPair{}, fmt.Errorf("failed to save seeds: %w", err)
		}
	}
	return *pair, nil
}

func ValidateClientSeed(seed string) error {
	if seed == "" || len(seed) > 64 {
		return models.Validationf("client seed must be 1 to 64 characters")
	}
	for _, r := range seed {
		if !unicode.IsPrint(r) {
			return models.Validationf("client seed must be printable")
		}
	}
	return nil
}

// RotateClientSeed installs a new client seed together with a fresh server
// seed, and reveals the server seed that was in use.
func (l *SeedLedger) RotateClientSeed(ctx context.Context, userID int64, seed string) (*models.SeedRotation, error) {
	if err := ValidateClientSeed(seed); err != nil {
		return nil, err
	}
	return l.rotate(ctx, userID, seed)
}

// RotateServerSeed replaces the server seed and keeps the client seed.
func (l *SeedLedger) RotateServerSeed(ctx context.Context, userID int64) (*models.SeedRotation, error) {
	return l.rotate(ctx, userID, "")
}

func (l *SeedLedger) rotate(ctx context.Context, userID int64, clientSeed string) (*models.SeedRotation, error) {
	unlock := l.lock(userID)
	defer unlock()

	old, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if clientSeed == "" {
		clientSeed = old.ClientSeed
	}

	next, err := newSeedPair(clientSeed)
	if err != nil {
		return nil, err
	}
	if err := l.store.SaveSeeds(ctx, userID, next); err != nil {
		return nil, fmt.Errorf("failed to save seeds: %w", err)
	}

	l.mu.Lock()
	delete(l.last, userID)
	l.mu.Unlock()

	return &models.SeedRotation{
		RevealedServerSeed: old.ServerSeed,
		RevealedSeedHash:   old.ServerSeedHash,
		PreviousClientSeed: old.ClientSeed,
		RoundsPlayed:       old.Nonce,
		Current:            *next,
	}, nil
}

// WithNonce runs fn with the user's pair at its current nonce while holding
// the user's lock. The nonce advances only when fn succeeds.
func (l *SeedLedger) WithNonce(ctx context.Context, userID int64, fn func(pair models.SeedPair) error) error {
	unlock := l.lock(userID)
	defer unlock()

	pair, err := l.load(ctx, userID)
	if err != nil {
		return err
	}

	l.mu.Lock()
	prev, seen := l.last[userID]
	l.mu.Unlock()
	if seen && prev.hash == pair.ServerSeedHash && pair.Nonce <= prev.nonce {
		return fmt.Errorf("nonce %d already used for this seed pair: %w", pair.Nonce, models.ErrFairnessViolation)
	}

	if err := fn(*pair); err != nil {
		return err
	}

	used := pair.Nonce
	pair.Nonce++
	if err := l.store.SaveSeeds(ctx, userID, pair); err != nil {
		// The caller voids the round, so the nonce is still unused.
		return &NonceSaveError{Nonce: used, Err: err}
	}

	l.mu.Lock()
	l.last[userID] = issued{hash: pair.ServerSeedHash, nonce: used}
	l.mu.Unlock()
	return nil
}

// ConsumeNonce hands out the next nonce without running a round.
func (l *SeedLedger) ConsumeNonce(ctx context.Context, userID int64) (uint64, error) {
	var nonce uint64
	err := l.WithNonce(ctx, userID, func(pair models.SeedPair) error {
		nonce = pair.Nonce
		return nil
	})
	return nonce, err
}

// NonceSaveError means fn ran but the advanced nonce could not be stored.
// The caller must undo whatever fn committed.
type NonceSaveError struct {
	Nonce uint64
	Err   error
}

func (e *NonceSaveError) Error() string {
	return fmt.Sprintf("failed to advance nonce past %d: %v", e.Nonce, e.Err)
}

func (e *NonceSaveError) Unwrap() error {
	return models.ErrDependencyTimeout
}

type MemorySeedStore struct {
	mu    sync.Mutex
	pairs map[int64]models.SeedPair
}

func NewMemorySeedStore() *MemorySeedStore {
	return &MemorySeedStore{pairs: make(map[int64]models.SeedPair)}
}

func (s *MemorySeedStore) LoadSeeds(_ context.Context, userID int64) (*models.SeedPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pair, ok := s.pairs[userID]
	if !ok {
		return nil, nil
	}
	return &pair, nil
}

func (s *MemorySeedStore) SaveSeeds(_ context.Context, userID int64, pair *models.SeedPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pairs[userID] = *pair
	return nil
}
