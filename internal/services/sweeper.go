package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
)

// ExpireStaleSessions forfeits sessions that have waited for the player
// longer than the session TTL. Busy slots are skipped until the next pass.
func (ge *GameEngine) ExpireStaleSessions(ctx context.Context) int {
	cutoff := ge.now().Add(-ge.cfg.SessionTTL)
	expired := 0

	for _, sl := range ge.sessions.all() {
		if ctx.Err() != nil {
			break
		}
		if !sl.mu.TryLock() {
			continue
		}
		s := sl.session
		if s != nil && s.State == models.SessionAwaitingContinuation && s.UpdatedAt.Before(cutoff) {
			if err := ge.expire(ctx, sl); err != nil {
				log.Printf("Failed to expire session %s: %v", s.ID, err)
			} else {
				expired++
			}
		}
		sl.mu.Unlock()
	}
	return expired
}

func (ge *GameEngine) expire(ctx context.Context, sl *slot) error {
	s := sl.session

	mult := decimal.Zero
	g, err := ge.registry.Get(s.GameID)
	if err != nil {
		log.Printf("Session %s belongs to unknown game %d, forfeiting nothing", s.ID, s.GameID)
	} else if sg, ok := g.(games.StatefulGame); ok {
		mult = sg.Forfeit(s.GameState)
	}

	amount := s.Amount.Mul(mult)
	if amount.IsPositive() {
		if _, err := ge.credit(ctx, s, models.ExpireKey(s.ID, s.Voids), amount); err != nil {
			return fmt.Errorf("forfeit credit: %w", err)
		}
	}
	s.Payout = s.Payout.Add(amount)
	s.Multiplier = mult
	ge.finish(ctx, sl, models.SessionExpired, models.StopExpired)
	return nil
}

// RunSweeper expires stale sessions every interval until ctx is done.
func (ge *GameEngine) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := ge.ExpireStaleSessions(ctx); n > 0 {
				log.Printf("Expired %d stale sessions", n)
			}
		}
	}
}

// Restore reloads sessions that were awaiting continuation when the process
// stopped.
func (ge *GameEngine) Restore(ctx context.Context) (int, error) {
	if ge.store == nil {
		return 0, nil
	}
	sessions, err := ge.store.LoadOpenSessions(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, s := range sessions {
		if s.State != models.SessionAwaitingContinuation {
			continue
		}
		sl := ge.sessions.get(s.UserID, s.GameID)
		sl.mu.Lock()
		if sl.session == nil || !sl.session.State.Open() {
			sl.session = s
			sl.publish()
			ge.sessions.opened(s.UserID)
			restored++
		}
		sl.mu.Unlock()
	}
	return restored, nil
}
