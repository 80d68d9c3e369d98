package services

import (
	"log"
	"sync"

	"fairplay-backend/internal/models"
)

// Publisher receives a RoundEvent after every settled round.
type Publisher interface {
	Publish(event models.RoundEvent)
}

type subscription struct {
	games map[int64]bool
	ch    chan models.RoundEvent
}

func (s *subscription) wants(gameID int64) bool {
	return len(s.games) == 0 || s.games[gameID]
}

// Broadcaster fans round events out to subscribers. Sends never block; a
// subscriber whose buffer is full is dropped and its channel closed.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]*subscription
	buffer int
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 64
	}
	return &Broadcaster{
		subs:   make(map[string]*subscription),
		buffer: buffer,
	}
}

// Subscribe registers id for the given games, or for all games when none are
// given. Subscribing again replaces the game set and keeps the channel.
func (b *Broadcaster) Subscribe(id string, gameIDs []int64) <-chan models.RoundEvent {
	games := make(map[int64]bool, len(gameIDs))
	for _, g := range gameIDs {
		games[g] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		sub.games = games
		return sub.ch
	}
	sub := &subscription{games: games, ch: make(chan models.RoundEvent, b.buffer)}
	b.subs[id] = sub
	return sub.ch
}

func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) Publish(event models.RoundEvent) {
	var slow []string

	b.mu.RLock()
	for id, sub := range b.subs {
		if !sub.wants(event.GameID) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			slow = append(slow, id)
		}
	}
	b.mu.RUnlock()

	for _, id := range slow {
		log.Printf("Dropping slow subscriber %s", id)
		b.Unsubscribe(id)
	}
}
