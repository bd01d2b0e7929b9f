package stream

import (
	"testing"

	"github.com/medhelp-app/medhelp/services/notification-service/internal/storage"
)

func TestHubDeliversToSubscriber(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("u1")
	defer cancel()

	n := storage.Notification{ID: 7, UserID: "u1", Title: "Appointment confirmed"}
	if got := hub.Publish(n); got != 1 {
		t.Fatalf("delivered = %d, want 1", got)
	}

	select {
	case received := <-ch:
		if received.ID != 7 || received.Title != "Appointment confirmed" {
			t.Fatalf("unexpected notification: %+v", received)
		}
	default:
		t.Fatal("expected buffered notification")
	}
}

func TestHubScopesByUser(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("u1")
	defer cancel()

	if got := hub.Publish(storage.Notification{ID: 1, UserID: "u2"}); got != 0 {
		t.Fatalf("delivered = %d, want 0 for another user", got)
	}
}

func TestHubCancelRemovesSubscriber(t *testing.T) {
	hub := NewHub()
	_, cancel := hub.Subscribe("u1")
	cancel()

	if got := hub.Publish(storage.Notification{ID: 1, UserID: "u1"}); got != 0 {
		t.Fatalf("delivered = %d after cancel, want 0", got)
	}
}

func TestHubDropsWhenSubscriberIsFull(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe("u1")
	defer cancel()

	for i := 0; i < subscriberBuffer; i++ {
		if got := hub.Publish(storage.Notification{ID: int64(i), UserID: "u1"}); got != 1 {
			t.Fatalf("publish %d: delivered = %d, want 1", i, got)
		}
	}
	// Buffer is full now; the overflow publish must not block.
	if got := hub.Publish(storage.Notification{ID: 99, UserID: "u1"}); got != 0 {
		t.Fatalf("delivered = %d on full buffer, want 0", got)
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}
}
