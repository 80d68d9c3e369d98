package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"fairplay-backend/internal/fairness"
	"fairplay-backend/internal/games"
	"fairplay-backend/internal/models"
)

// playRound draws one outcome at the user's next nonce and settles it. The
// round is appended to session only when both the ledger and the nonce
// advance succeed; otherwise the settlement is voided.
func (ge *GameEngine) playRound(ctx context.Context, session *models.BetSession, round games.Round, stake decimal.Decimal) (models.Round, games.Outcome, error) {
	var (
		rec       models.Round
		out       games.Outcome
		entry     models.LedgerEntry
		pairUsed  models.SeedPair
		attempted bool
		settled   bool
	)

	err := ge.seeds.WithNonce(ctx, session.UserID, func(pair models.SeedPair) error {
		if session.ServerSeedHash != "" &&
			(pair.ServerSeedHash != session.ServerSeedHash || pair.ClientSeed != session.ClientSeed) {
			return fmt.Errorf("seed pair changed during session %s: %w", session.ID, models.ErrFairnessViolation)
		}

		o, err := round.Resolve(fairness.NewStream(pair.ServerSeed, pair.ClientSeed, pair.Nonce))
		if err != nil {
			return err
		}

		entry = models.LedgerEntry{
			Key:    models.RoundKey(session.ID, len(session.Rounds), session.Voids),
			UserID: session.UserID,
			CoinID: session.CoinID,
			Debit:  stake,
			Credit: session.Amount.Mul(o.Credit),
		}
		attempted = true
		balance, err := ge.settle(ctx, entry)
		if err != nil {
			return err
		}
		settled = true

		out = o
		pairUsed = pair
		rec = models.Round{
			Index:      len(session.Rounds),
			Nonce:      pair.Nonce,
			Stake:      stake,
			Outcome:    o.Raw,
			Multiplier: o.Multiplier,
			Payout:     entry.Credit,
			State:      o.State,
			Balance:    balance,
			CreatedAt:  ge.now(),
		}
		return nil
	})
	if err != nil {
		var saveErr *NonceSaveError
		if settled && errors.As(err, &saveErr) {
			ge.void(ctx, entry)
		}
		if attempted && !errors.Is(err, models.ErrInsufficientBalance) {
			session.Voids++
		}
		return models.Round{}, games.Outcome{}, err
	}

	if session.ServerSeedHash == "" {
		session.ServerSeedHash = pairUsed.ServerSeedHash
		session.ClientSeed = pairUsed.ClientSeed
	}
	session.Append(rec)
	ge.publishRound(session, rec, out)
	return rec, out, nil
}

// settle applies entry within the ledger deadline. The caller's cancellation
// does not abort a settlement already in flight. Any failure other than an
// insufficient balance voids the key, so a late write cannot land.
func (ge *GameEngine) settle(ctx context.Context, entry models.LedgerEntry) (decimal.Decimal, error) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ge.cfg.LedgerTimeout)
	defer cancel()

	balance, err := ge.ledger.Settle(sctx, entry)
	if err == nil {
		return balance, nil
	}
	if errors.Is(err, models.ErrInsufficientBalance) {
		return decimal.Zero, err
	}

	ge.void(ctx, entry)
	return decimal.Zero, fmt.Errorf("settle %s: %w: %v", entry.Key, models.ErrDependencyTimeout, err)
}

func (ge *GameEngine) void(ctx context.Context, entry models.LedgerEntry) {
	vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ge.cfg.LedgerTimeout)
	defer cancel()

	if err := ge.ledger.Void(vctx, entry); err != nil {
		log.Printf("Failed to void ledger entry %s: %v", entry.Key, err)
	}
}

// credit pays amount into the session's wallet outside of a round.
func (ge *GameEngine) credit(ctx context.Context, session *models.BetSession, key string, amount decimal.Decimal) (decimal.Decimal, error) {
	balance, err := ge.settle(ctx, models.LedgerEntry{
		Key:    key,
		UserID: session.UserID,
		CoinID: session.CoinID,
		Debit:  decimal.Zero,
		Credit: amount,
	})
	if err != nil {
		session.Voids++
		return decimal.Zero, err
	}
	return balance, nil
}

// finish closes the slot's session. The slot lock must be held.
func (ge *GameEngine) finish(ctx context.Context, sl *slot, state models.SessionState, reason models.StopReason) {
	s := sl.session
	now := ge.now()

	s.State = state
	if s.StopReason == "" {
		s.StopReason = reason
	}
	s.UpdatedAt = now
	s.EndedAt = now
	sl.publish()
	ge.sessions.closed(s.UserID)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ge.cfg.LedgerTimeout)
	defer cancel()

	if ge.store != nil && s.GameState != nil {
		if err := ge.store.DeleteSession(pctx, s); err != nil {
			log.Printf("Failed to drop stored session %s: %v", s.ID, err)
		}
	}
	if ge.archive != nil {
		if err := ge.archive.ArchiveSession(pctx, s.Clone()); err != nil {
			log.Printf("Failed to archive session %s: %v", s.ID, err)
		}
	}
}

func (ge *GameEngine) persist(ctx context.Context, s *models.BetSession) {
	if ge.store == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ge.cfg.LedgerTimeout)
	defer cancel()

	if err := ge.store.SaveSession(pctx, s); err != nil {
		log.Printf("Failed to store session %s: %v", s.ID, err)
	}
}

func (ge *GameEngine) publishRound(s *models.BetSession, rec models.Round, out games.Outcome) {
	if ge.publisher == nil {
		return
	}
	ge.publisher.Publish(models.RoundEvent{
		SessionID:  s.ID,
		UserID:     s.UserID,
		GameID:     s.GameID,
		CoinID:     s.CoinID,
		Nonce:      rec.Nonce,
		Stake:      rec.Stake,
		Multiplier: rec.Multiplier,
		Payout:     rec.Payout,
		Finished:   out.Finished,
		Timestamp:  rec.CreatedAt,
	})
}
