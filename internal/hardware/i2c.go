package hardware

import (
	"fmt"
	"io"
	"log/slog"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
)

// I2CSpeed is the bus clock used for the display. The SSD1306 is specified
// up to 400 kHz.
const I2CSpeed = 400 * physic.KiloHertz

// OpenI2C opens the named I2C bus ("" selects the first one available) and
// returns a connection to the device at addr. The returned Closer releases
// the bus.
func OpenI2C(busName string, addr uint16) (conn.Conn, io.Closer, error) {
	if err := InitHost(); err != nil {
		return nil, nil, fmt.Errorf("i2c: host init failed: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, nil, fmt.Errorf("i2c: open bus %q: %w", busName, err)
	}

	if err := bus.SetSpeed(I2CSpeed); err != nil {
		// Some adapters have a fixed clock; the default is usable.
		slog.Warn("i2c: could not set bus speed", "bus", bus.String(), "err", err)
	}

	slog.Info("i2c: bus opened", "bus", bus.String(), "addr", fmt.Sprintf("0x%02x", addr))
	return &i2c.Dev{Bus: bus, Addr: addr}, bus, nil
}
