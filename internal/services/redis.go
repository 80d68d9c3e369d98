package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"fairplay-backend/internal/config"
	"fairplay-backend/internal/models"
)

const (
	voidMark       = "void"
	maxTxRetries   = 16
	bulkFetchLimit = 500
)

// RedisService backs the wallet ledger, seed pairs, open sessions and rate
// limits with a single Redis database.
type RedisService struct {
	client   *redis.Client
	starting decimal.Decimal
}

func NewRedisService(cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{
		client:   client,
		starting: cfg.StartingBalance,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func walletField(coinID int64) string {
	return strconv.FormatInt(coinID, 10)
}

func (s *RedisService) walletBalance(ctx context.Context, c hashGetter, userID, coinID int64) (decimal.Decimal, error) {
	v, err := c.HGet(ctx, fmt.Sprintf(KeyWallet, userID), walletField(coinID)).Result()
	if err == redis.Nil {
		return s.starting, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read wallet: %w", err)
	}
	bal, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt wallet balance %q: %w", v, err)
	}
	return bal, nil
}

func (s *RedisService) Balance(ctx context.Context, userID, coinID int64) (decimal.Decimal, error) {
	return s.walletBalance(ctx, s.client, userID, coinID)
}

// watch retries fn while a watched key changes under it.
func (s *RedisService) watch(ctx context.Context, fn func(*redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("transaction on %v kept conflicting", keys)
}

// Settle applies entry to the wallet once. The settlement marker holds the
// resulting balance so a replay returns the same answer.
func (s *RedisService) Settle(ctx context.Context, entry models.LedgerEntry) (decimal.Decimal, error) {
	walletKey := fmt.Sprintf(KeyWallet, entry.UserID)
	markKey := fmt.Sprintf(KeySettlement, entry.Key)

	var result decimal.Decimal
	err := s.watch(ctx, func(tx *redis.Tx) error {
		mark, err := tx.Get(ctx, markKey).Result()
		switch {
		case err == nil && mark == voidMark:
			return fmt.Errorf("%s: %w", entry.Key, ErrEntryVoided)
		case err == nil:
			result, err = decimal.NewFromString(mark)
			return err
		case err != redis.Nil:
			return err
		}

		bal, err := s.walletBalance(ctx, tx, entry.UserID, entry.CoinID)
		if err != nil {
			return err
		}
		if bal.LessThan(entry.Debit) {
			return models.ErrInsufficientBalance
		}
		next := bal.Sub(entry.Debit).Add(entry.Credit)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, walletKey, walletField(entry.CoinID), next.String())
			pipe.Set(ctx, markKey, next.String(), TTLSettlement)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}, walletKey, markKey)
	if err != nil {
		return decimal.Zero, err
	}
	return result, nil
}

func (s *RedisService) Void(ctx context.Context, entry models.LedgerEntry) error {
	walletKey := fmt.Sprintf(KeyWallet, entry.UserID)
	markKey := fmt.Sprintf(KeySettlement, entry.Key)

	return s.watch(ctx, func(tx *redis.Tx) error {
		mark, err := tx.Get(ctx, markKey).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if mark == voidMark {
			return nil
		}

		applied := err == nil
		var bal decimal.Decimal
		if applied {
			if bal, err = s.walletBalance(ctx, tx, entry.UserID, entry.CoinID); err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if applied {
				pipe.HSet(ctx, walletKey, walletField(entry.CoinID), bal.Add(entry.Debit).Sub(entry.Credit).String())
			}
			pipe.Set(ctx, markKey, voidMark, TTLSettlement)
			return nil
		})
		return err
	}, walletKey, markKey)
}

func (s *RedisService) LoadSeeds(ctx context.Context, userID int64) (*models.SeedPair, error) {
	var pair models.SeedPair
	cmd := s.client.HGetAll(ctx, fmt.Sprintf(KeySeeds, userID))
	if err := cmd.Err(); err != nil {
		return nil, err
	}
	if len(cmd.Val()) == 0 {
		return nil, nil
	}
	if err := cmd.Scan(&pair); err != nil {
		return nil, fmt.Errorf("failed to scan seeds: %w", err)
	}
	return &pair, nil
}

func (s *RedisService) SaveSeeds(ctx context.Context, userID int64, pair *models.SeedPair) error {
	return s.client.HSet(ctx, fmt.Sprintf(KeySeeds, userID), *pair).Err()
}

func (s *RedisService) SaveSession(ctx context.Context, session *models.BetSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal bet session: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, fmt.Sprintf(KeyBetSession, session.ID), data, TTLBetSession)
		pipe.SAdd(ctx, KeyOpenSessions, session.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save bet session: %w", err)
	}
	return nil
}

func (s *RedisService) DeleteSession(ctx context.Context, session *models.BetSession) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, fmt.Sprintf(KeyBetSession, session.ID))
		pipe.SRem(ctx, KeyOpenSessions, session.ID)
		return nil
	})
	return err
}

// LoadOpenSessions returns every session saved while awaiting continuation.
// Ids whose payload has already expired are pruned from the index.
func (s *RedisService) LoadOpenSessions(ctx context.Context) ([]*models.BetSession, error) {
	ids, err := s.client.SMembers(ctx, KeyOpenSessions).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}

	var sessions []*models.BetSession
	for len(ids) > 0 {
		batch := ids[:min(len(ids), bulkFetchLimit)]
		ids = ids[len(batch):]

		pipe := s.client.Pipeline()
		cmds := make([]*redis.StringCmd, len(batch))
		for i, id := range batch {
			cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyBetSession, id))
		}
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return nil, fmt.Errorf("pipeline execution failed: %w", err)
		}

		for i, cmd := range cmds {
			data, err := cmd.Bytes()
			if err == redis.Nil {
				s.client.SRem(ctx, KeyOpenSessions, batch[i])
				continue
			}
			if err != nil {
				return nil, err
			}
			var session models.BetSession
			if err := json.Unmarshal(data, &session); err != nil {
				return nil, fmt.Errorf("corrupt bet session %s: %w", batch[i], err)
			}
			sessions = append(sessions, &session)
		}
	}
	return sessions, nil
}

var rateLimitScript = redis.NewScript(`
	local count = redis.call("INCR", KEYS[1])
	if count == 1 then
		redis.call("PEXPIRE", KEYS[1], ARGV[1])
	end
	return count
`)

func (s *RedisService) Allow(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	count, err := rateLimitScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, userID int64, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, userID, action)).Err()
}
