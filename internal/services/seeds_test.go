package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

func TestSeedLedgerProvisioning(t *testing.T) {
	ctx := context.Background()

	strict := services.NewSeedLedger(services.NewMemorySeedStore(), false)
	if _, err := strict.CurrentSeedPair(ctx, user); !errors.Is(err, models.ErrSeedNotInitialized) {
		t.Errorf("Expected seed not initialized, got %v", err)
	}
	if err := strict.WithNonce(ctx, user, func(models.SeedPair) error { return nil }); !errors.Is(err, models.ErrSeedNotInitialized) {
		t.Errorf("Rounds need a seed pair, got %v", err)
	}

	pair, err := strict.Provision(ctx, user)
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if pair.ClientSeed == "" || pair.Nonce != 0 {
		t.Errorf("Unexpected fresh pair %+v", pair)
	}
	if !fairness.VerifyCommitment(pair.ServerSeed, pair.ServerSeedHash) {
		t.Error("Commitment should match the server seed")
	}

	again, err := strict.Provision(ctx, user)
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if again.ServerSeedHash != pair.ServerSeedHash {
		t.Error("Provision must not replace an existing pair")
	}
}

func TestWithNonceAdvancesOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	seeds := services.NewSeedLedger(services.NewMemorySeedStore(), true)

	boom := errors.New("boom")
	if err := seeds.WithNonce(ctx, user, func(models.SeedPair) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("Expected fn error, got %v", err)
	}
	pair, _ := seeds.CurrentSeedPair(ctx, user)
	if pair.Nonce != 0 {
		t.Errorf("Failed round must not advance the nonce, got %d", pair.Nonce)
	}

	for want := uint64(0); want < 3; want++ {
		got, err := seeds.ConsumeNonce(ctx, user)
		if err != nil {
			t.Fatalf("ConsumeNonce failed: %v", err)
		}
		if got != want {
			t.Errorf("Expected nonce %d, got %d", want, got)
		}
	}
}

func TestConcurrentNoncesAreUnique(t *testing.T) {
	ctx := context.Background()
	seeds := services.NewSeedLedger(services.NewMemorySeedStore(), true)

	const workers, each = 16, 50
	seen := make(chan uint64, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				n, err := seeds.ConsumeNonce(ctx, user)
				if err != nil {
					t.Errorf("ConsumeNonce failed: %v", err)
					return
				}
				seen <- n
			}
		}()
	}
	wg.Wait()
	close(seen)

	used := make(map[uint64]bool)
	for n := range seen {
		if used[n] {
			t.Fatalf("Nonce %d handed out twice", n)
		}
		used[n] = true
	}
	for n := uint64(0); n < workers*each; n++ {
		if !used[n] {
			t.Fatalf("Nonce %d skipped", n)
		}
	}
}

func TestRotationRevealsAndResets(t *testing.T) {
	ctx := context.Background()
	seeds := services.NewSeedLedger(services.NewMemorySeedStore(), true)

	before, _ := seeds.CurrentSeedPair(ctx, user)
	for i := 0; i < 4; i++ {
		if _, err := seeds.ConsumeNonce(ctx, user); err != nil {
			t.Fatal(err)
		}
	}

	rot, err := seeds.RotateServerSeed(ctx, user)
	if err != nil {
		t.Fatalf("RotateServerSeed failed: %v", err)
	}
	if rot.RevealedServerSeed != before.ServerSeed || rot.RevealedSeedHash != before.ServerSeedHash {
		t.Error("Rotation should reveal the committed seed")
	}
	if rot.RoundsPlayed != 4 || rot.Current.Nonce != 0 {
		t.Errorf("Expected 4 rounds played and nonce reset, got %d/%d", rot.RoundsPlayed, rot.Current.Nonce)
	}
	if rot.Current.ClientSeed != before.ClientSeed {
		t.Error("Server rotation keeps the client seed")
	}

	for _, bad := range []string{"", string(make([]byte, 65)), "tab\there"} {
		if _, err := seeds.RotateClientSeed(ctx, user, bad); !errors.Is(err, models.ErrValidation) {
			t.Errorf("Client seed %q should be rejected, got %v", bad, err)
		}
	}
}

// regressingStore forgets nonce advances, the way a failed write would.
type regressingStore struct {
	*services.MemorySeedStore
	frozen *models.SeedPair
}

func (s *regressingStore) LoadSeeds(ctx context.Context, userID int64) (*models.SeedPair, error) {
	if s.frozen != nil {
		p := *s.frozen
		return &p, nil
	}
	return s.MemorySeedStore.LoadSeeds(ctx, userID)
}

func TestNonceReuseIsDetected(t *testing.T) {
	ctx := context.Background()
	store := &regressingStore{MemorySeedStore: services.NewMemorySeedStore()}
	seeds := services.NewSeedLedger(store, true)

	pair, err := seeds.CurrentSeedPair(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	store.frozen = &pair

	if _, err := seeds.ConsumeNonce(ctx, user); err != nil {
		t.Fatalf("First use should succeed: %v", err)
	}
	_, err = seeds.ConsumeNonce(ctx, user)
	if !errors.Is(err, models.ErrFairnessViolation) {
		t.Errorf("Reusing nonce 0 should be a fairness violation, got %v", err)
	}
}

func TestFailedNonceSaveLeavesNonceUnused(t *testing.T) {
	ctx := context.Background()
	store := &saveFailingStore{MemorySeedStore: services.NewMemorySeedStore(), fails: 1}
	seeds := services.NewSeedLedger(store, true)

	_, err := seeds.ConsumeNonce(ctx, user)
	var saveErr *services.NonceSaveError
	if !errors.As(err, &saveErr) || saveErr.Nonce != 0 {
		t.Fatalf("Expected a save error for nonce 0, got %v", err)
	}

	for want := uint64(0); want < 3; want++ {
		got, err := seeds.ConsumeNonce(ctx, user)
		if err != nil {
			t.Fatalf("ConsumeNonce after a failed save: %v", err)
		}
		if got != want {
			t.Errorf("Expected nonce %d, got %d", want, got)
		}
	}
}
