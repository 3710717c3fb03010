package hardware

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// GPIOPin is a button input wired active-low with the internal pull-up
// enabled, so an open switch reads High and a closed one reads Low.
type GPIOPin struct {
	name string
	pin  gpio.PinIO
}

// OpenButtonPin configures the named GPIO (e.g. "GPIO26") as a pulled-up
// input with both-edge detection.
func OpenButtonPin(name string) (*GPIOPin, error) {
	if err := InitHost(); err != nil {
		return nil, fmt.Errorf("gpio: host init failed: %w", err)
	}

	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio: failed to open %s", name)
	}

	if err := p.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("gpio: configure %s as input: %w", name, err)
	}

	slog.Debug("gpio: button pin configured", "pin", name, "level", Level(p.Read()))
	return &GPIOPin{name: name, pin: p}, nil
}

// Read samples the current level.
func (g *GPIOPin) Read() Level {
	return Level(g.pin.Read())
}

// WaitForEdge blocks until the level changes or timeout elapses.
func (g *GPIOPin) WaitForEdge(timeout time.Duration) bool {
	return g.pin.WaitForEdge(timeout)
}

// Name returns the pin name it was opened with.
func (g *GPIOPin) Name() string { return g.name }

// Close disables edge detection and releases the pin.
func (g *GPIOPin) Close() error {
	return g.pin.Halt()
}
