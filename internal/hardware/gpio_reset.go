package hardware

import (
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

// PulseReset drives an active-low reset line, used by SSD1306 modules that
// expose RES. The controller needs at least 3µs low; it then takes a few
// milliseconds before it accepts commands.
func PulseReset(pinName string) error {
	if err := InitHost(); err != nil {
		return fmt.Errorf("gpio: host init failed: %w", err)
	}

	rst := gpioreg.ByName(pinName)
	if rst == nil {
		return fmt.Errorf("gpio: failed to open %s (reset)", pinName)
	}

	if err := rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("gpio: failed to assert reset: %w", err)
	}
	time.Sleep(1 * time.Millisecond)

	if err := rst.Out(gpio.High); err != nil {
		return fmt.Errorf("gpio: failed to release reset: %w", err)
	}
	time.Sleep(10 * time.Millisecond)

	slog.Debug("gpio: display reset complete", "pin", pinName)
	return nil
}
