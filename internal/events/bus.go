package events

import (
	"sync"

	"github.com/micro-nova/btplayer/internal/models"
)

const subBufferSize = 8

// Bus is a non-blocking publish-subscribe bus for player status snapshots.
// Subscribers that are slow to consume will have snapshots dropped rather
// than blocking the orchestration loop.
type Bus struct {
	mu   sync.Mutex
	subs map[string]chan models.Status
	last models.Status
}

// NewBus creates a new status bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]chan models.Status),
		last: models.DefaultStatus(),
	}
}

// Subscribe creates a new subscription with the given ID.
// Call Unsubscribe when done to clean up.
func (b *Bus) Subscribe(id string) <-chan models.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan models.Status, subBufferSize)
	b.subs[id] = ch
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends a snapshot to all subscribers. Identical consecutive
// snapshots are not re-sent.
func (b *Bus) Publish(st models.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st == b.last {
		return
	}
	b.last = st
	for _, ch := range b.subs {
		select {
		case ch <- st:
		default:
			// Drop if subscriber is slow
		}
	}
}

// Last returns the most recently published snapshot.
func (b *Bus) Last() models.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// SubscriberCount returns the current number of subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
