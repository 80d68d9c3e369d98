package services

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type RateLimiter interface {
	Allow(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error)
}

type window struct {
	count   int
	expires time.Time
}

// MemoryRateLimiter counts requests in fixed windows, the same way the Redis
// limiter does with INCR and PEXPIRE.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *MemoryRateLimiter) Allow(_ context.Context, userID int64, action string, limit int, d time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || !now.Before(w.expires) {
		w = &window{expires: now.Add(d)}
		l.windows[key] = w
	}
	w.count++

	if len(l.windows) > 10000 {
		for k, v := range l.windows {
			if !now.Before(v.expires) {
				delete(l.windows, k)
			}
		}
	}
	return w.count <= limit, nil
}
