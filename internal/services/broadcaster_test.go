package services_test

import (
	"testing"

	"fairplay-backend/internal/models"
	"fairplay-backend/internal/services"
)

func TestBroadcasterFiltersByGame(t *testing.T) {
	b := services.NewBroadcaster(4)
	dice := b.Subscribe("dice", []int64{2})
	all := b.Subscribe("all", nil)

	b.Publish(models.RoundEvent{GameID: 1})
	b.Publish(models.RoundEvent{GameID: 2})

	if got := len(dice); got != 1 {
		t.Errorf("Game subscriber should get 1 event, got %d", got)
	}
	if got := len(all); got != 2 {
		t.Errorf("Catch-all subscriber should get 2 events, got %d", got)
	}

	again := b.Subscribe("dice", []int64{1})
	if again != dice {
		t.Error("Resubscribing should keep the channel")
	}
	b.Publish(models.RoundEvent{GameID: 1})
	if got := len(dice); got != 2 {
		t.Errorf("Resubscribed games should apply, got %d queued", got)
	}
}

func TestBroadcasterDropsSlowSubscriber(t *testing.T) {
	b := services.NewBroadcaster(1)
	slow := b.Subscribe("slow", nil)

	b.Publish(models.RoundEvent{GameID: 1})
	b.Publish(models.RoundEvent{GameID: 1})

	if b.Subscribers() != 0 {
		t.Fatalf("Slow subscriber should be dropped, %d left", b.Subscribers())
	}
	<-slow
	if _, ok := <-slow; ok {
		t.Error("Dropped subscriber channel should be closed")
	}

	b.Unsubscribe("slow")
	b.Publish(models.RoundEvent{GameID: 1})
}
