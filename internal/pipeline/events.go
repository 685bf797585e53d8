package pipeline

import (
	"sync"
	"time"

	"github.com/gudapatin/sentalpha/internal/contracts"
)

// Event is one structured observation from a pipeline run:
// which stage, for which company and quarter, with what outcome.
// The API layer streams these to websocket observers.
type Event struct {
	RunID   string          `json:"run_id"`
	Company string          `json:"company"`
	Quarter string          `json:"quarter,omitempty"`
	Stage   contracts.Stage `json:"stage"`
	Outcome string          `json:"outcome"` // "ok", "skipped", "failed"
	Reason  string          `json:"reason,omitempty"`
	At      time.Time       `json:"at"`
}

// Hub fans pipeline events out to subscribers. Publishing never
// blocks: a slow subscriber drops events rather than stalling a run.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewHub creates an event hub
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new observer channel
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 64)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch
}

// Unsubscribe removes an observer and closes its channel
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers an event to all subscribers without blocking
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber buffer full, drop
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
