package services

import (
	"sync"

	"spinwheel/internal/models"
)

// Event types published on the hub.
const (
	EventFrame   = "frame"
	EventSettled = "settled"
	EventPrizes  = "prizes"
)

// subscriberBuffer is the number of events a slow subscriber may lag behind.
const subscriberBuffer = 64

// Event is one message for stream subscribers.
type Event struct {
	Type     string         `json:"type"`
	SpinID   string         `json:"spinId,omitempty"`
	Rotation float64        `json:"rotation"`
	Click    bool           `json:"click,omitempty"`
	Result   *SpinResult    `json:"result,omitempty"`
	Prizes   []models.Prize `json:"prizes,omitempty"`
}

// Hub fans events out to subscribers. Publishing never blocks: a full
// subscriber loses its oldest event.
type Hub struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a new subscriber. The returned func unsubscribes and
// closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Publish delivers ev to every subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		// drop the oldest event to make room
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
