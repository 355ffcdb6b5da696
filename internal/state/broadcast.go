// internal/state/broadcast.go
package state

import (
	"sync"
)

// Broadcaster fans webhook deliveries out to connected SSE clients. Each
// subscriber gets a buffered channel; a subscriber that falls behind misses
// deliveries rather than blocking the webhook path.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan StoredDelivery]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[chan StoredDelivery]struct{}),
	}
}

// Subscribe registers a client. The returned cancel function must be called
// when the client disconnects; it closes the channel.
func (b *Broadcaster) Subscribe() (<-chan StoredDelivery, func()) {
	ch := make(chan StoredDelivery, 16)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers to every subscriber without blocking.
func (b *Broadcaster) Publish(delivery StoredDelivery) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- delivery:
		default:
		}
	}
}

// Subscribers returns the current subscriber count.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
