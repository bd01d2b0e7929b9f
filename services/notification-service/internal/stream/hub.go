// Package stream fans freshly stored notifications out to connected
// SSE subscribers. Delivery is best-effort: the database is the source
// of truth and slow consumers are dropped rather than blocking the
// dispatcher.
package stream

import (
	"sync"

	"github.com/medhelp-app/medhelp/services/notification-service/internal/storage"
)

const subscriberBuffer = 16

type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[chan storage.Notification]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[chan storage.Notification]struct{})}
}

// Subscribe registers a listener for one user's notifications. The
// returned cancel func must be called when the consumer goes away.
func (h *Hub) Subscribe(userID string) (<-chan storage.Notification, func()) {
	ch := make(chan storage.Notification, subscriberBuffer)

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[chan storage.Notification]struct{})
		h.subs[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[userID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, userID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Publish hands a stored notification to the user's live subscribers.
// A subscriber whose buffer is full misses this one; it will see it on
// the next list poll. Returns the number of deliveries.
func (h *Hub) Publish(n storage.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs[n.UserID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}
