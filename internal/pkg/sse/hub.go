package sse

import (
	"sync"
)

// Event is a server-sent event addressed to one account.
type Event struct {
	AccountID string
	Event     string
	Data      interface{}
}

// Hub fans events out to the open streams of each account.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
	}
}

// Subscribe registers a stream for an account and returns the event
// channel together with a cleanup function the caller must invoke.
func (h *Hub) Subscribe(accountID string) (chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, 10)

	if h.subscribers[accountID] == nil {
		h.subscribers[accountID] = make(map[chan Event]struct{})
	}
	h.subscribers[accountID][ch] = struct{}{}

	cleanup := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subscribers[accountID], ch)
		close(ch)
		if len(h.subscribers[accountID]) == 0 {
			delete(h.subscribers, accountID)
		}
	}

	return ch, cleanup
}

// Publish sends an event to every open stream of one account.
func (h *Hub) Publish(accountID string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[accountID]; ok {
		for ch := range subs {
			select {
			case ch <- event:
			default:
				// Drop instead of blocking a slow consumer.
			}
		}
	}
}

// PublishToMany sends the same event to several accounts.
func (h *Hub) PublishToMany(accountIDs []string, event Event) {
	for _, accountID := range accountIDs {
		eventCopy := event
		eventCopy.AccountID = accountID
		h.Publish(accountID, eventCopy)
	}
}

// SubscriberCount returns the number of open streams for an account.
func (h *Hub) SubscriberCount(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if subs, ok := h.subscribers[accountID]; ok {
		return len(subs)
	}
	return 0
}
