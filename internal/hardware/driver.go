// Package hardware provides the pin and bus abstractions used by the player.
// It defines the Pin interface, periph.io backed implementations for real
// boards, and thread-safe mocks for tests and development.
package hardware

import (
	"sync"
	"time"

	"periph.io/x/host/v3"
)

// Level is the electrical level read from a pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Pin is a digital input sampled by the debounce engine.
// Read must be cheap and must not block.
type Pin interface {
	Read() Level
}

// EdgePin is a Pin that can also wait for a level change. The debounce
// engine uses it only as a wake-up hint; levels are still sampled on its tick.
type EdgePin interface {
	Pin
	WaitForEdge(timeout time.Duration) bool
}

var (
	hostOnce sync.Once
	hostErr  error
)

// InitHost initializes the periph.io host drivers exactly once.
// It must be called before opening GPIO pins or I2C buses.
func InitHost() error {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	return hostErr
}
