package events

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// DefaultCapacity is the number of slots in a channel created with a
// non-positive capacity. It is also the minimum.
const DefaultCapacity = 20

var (
	// ErrFull is returned by Post when every slot is taken. The event is dropped.
	ErrFull = errors.New("events: channel full")
	// ErrEmpty is returned by TryReceive when nothing is pending.
	ErrEmpty = errors.New("events: channel empty")
	// ErrTimeout is returned by WaitReceive when no event arrived in time.
	ErrTimeout = errors.New("events: receive timed out")
)

// Channel is a bounded FIFO with many producers and a single consumer.
// Post never blocks, so it is safe to call from pin edge handlers and audio
// callbacks while the orchestration loop is receiving.
type Channel struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewChannel creates a channel with the given number of slots. Capacities
// below DefaultCapacity are raised to it.
func NewChannel(capacity int) *Channel {
	if capacity < DefaultCapacity {
		capacity = DefaultCapacity
	}
	return &Channel{ch: make(chan Event, capacity)}
}

// Post enqueues e without blocking. It returns ErrFull and drops e when the
// channel is at capacity; callers log and move on.
func (c *Channel) Post(e Event) error {
	select {
	case c.ch <- e:
		return nil
	default:
		c.dropped.Add(1)
		return ErrFull
	}
}

// TryReceive returns the oldest pending event, or ErrEmpty.
func (c *Channel) TryReceive() (Event, error) {
	select {
	case e := <-c.ch:
		return e, nil
	default:
		return Event{}, ErrEmpty
	}
}

// WaitReceive blocks until an event is available or timeout elapses.
func (c *Channel) WaitReceive(timeout time.Duration) (Event, error) {
	return c.WaitReceiveContext(context.Background(), timeout)
}

// WaitReceiveContext is WaitReceive that also returns early with ctx.Err()
// when ctx is cancelled.
func (c *Channel) WaitReceiveContext(ctx context.Context, timeout time.Duration) (Event, error) {
	// Fast path keeps a timer off the heap when work is already queued.
	select {
	case e := <-c.ch:
		return e, nil
	default:
	}
	if timeout <= 0 {
		return Event{}, ErrTimeout
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e := <-c.ch:
		return e, nil
	case <-timer.C:
		return Event{}, ErrTimeout
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

// Pending returns the number of queued events.
func (c *Channel) Pending() int { return len(c.ch) }

// Cap returns the number of slots.
func (c *Channel) Cap() int { return cap(c.ch) }

// Dropped returns how many events Post has rejected since creation.
func (c *Channel) Dropped() uint64 { return c.dropped.Load() }
