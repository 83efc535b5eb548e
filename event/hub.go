// Package event provides a small bounded broadcast hub. Subscribers
// that fall behind lose events rather than block the publisher, which
// keeps call handling independent of slow listeners.
package event

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultBufferSize is the per-subscriber channel capacity used when
// NewHub is given a non-positive size.
const DefaultBufferSize = 16

// Hub fans events out to subscribers. Publish never blocks; a full
// subscriber channel drops the event for that subscriber only.
type Hub[T any] struct {
	mu      sync.Mutex
	subs    map[uint64]chan T
	nextID  uint64
	bufSize int
	closed  bool
	dropped uint64
}

// NewHub creates a hub with the given per-subscriber buffer size.
func NewHub[T any](bufSize int) *Hub[T] {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &Hub[T]{
		subs:    make(map[uint64]chan T),
		bufSize: bufSize,
	}
}

// Subscribe registers a listener. The returned cancel function
// unregisters it and closes the channel. A closed hub returns a closed
// channel.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan T, h.bufSize)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if sub, ok := h.subs[id]; ok {
			delete(h.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with buffer room.
func (h *Hub[T]) Publish(ev T) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.dropped++
			logrus.WithFields(logrus.Fields{
				"function":      "Hub.Publish",
				"total_dropped": h.dropped,
			}).Debug("Subscriber buffer full, event dropped")
		}
	}
}

// Dropped returns how many events were dropped across all subscribers.
func (h *Hub[T]) Dropped() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}

// Close unregisters and closes all subscriber channels. Further
// publishes are no-ops.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
