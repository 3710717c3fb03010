package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Duration is a time.Duration stored in JSON as a string such as "20ms".
// Bare numbers are read as milliseconds.
type Duration time.Duration

func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("config: duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var ms float64
	if err := json.Unmarshal(b, &ms); err != nil {
		return fmt.Errorf("config: duration %s: want a string or milliseconds", b)
	}
	*d = Duration(ms * float64(time.Millisecond))
	return nil
}

// ButtonPins names the GPIO lines of the three buttons.
type ButtonPins struct {
	Prev string `json:"prev"`
	Play string `json:"play"`
	Next string `json:"next"`
}

// Config is the on-disk device configuration.
type Config struct {
	Buttons      ButtonPins `json:"buttons"`
	Debounce     Duration   `json:"debounce"`
	DebounceTick Duration   `json:"debounce_tick"`

	PlaybackTick   Duration `json:"playback_tick"`
	RenderInterval Duration `json:"render_interval"`
	EventCapacity  int      `json:"event_capacity"`
	NextPolicy     string   `json:"next_policy"`     // wrap | saturate
	PositionSource string   `json:"position_source"` // decoder | tick
	Volume         int      `json:"volume"`

	I2CBus             string   `json:"i2c_bus"`
	DisplayAddr        uint16   `json:"display_addr"`
	DisplayResetPin    string   `json:"display_reset_pin,omitempty"`
	Contrast           int      `json:"contrast"`
	BusTransfersPerSec float64  `json:"bus_transfers_per_sec"`
	DisplayIdle        Duration `json:"display_idle"`
	ErrorBanner        Duration `json:"error_banner"`
	InfoBanner         Duration `json:"info_banner"`

	MusicDir   string `json:"music_dir"`
	TrackLimit int    `json:"track_limit"`

	BluetoothAddress string   `json:"bluetooth_address,omitempty"`
	LinkPoll         Duration `json:"link_poll"`

	APIAddr string `json:"api_addr"`
	MDNS    bool   `json:"mdns"`
}

// Default returns the stock configuration of the player board.
func Default() Config {
	return Config{
		Buttons:        ButtonPins{Prev: "GPIO26", Play: "GPIO27", Next: "GPIO14"},
		Debounce:       Duration(20 * time.Millisecond),
		DebounceTick:   Duration(time.Millisecond),
		PlaybackTick:   Duration(50 * time.Millisecond),
		RenderInterval: Duration(100 * time.Millisecond),
		EventCapacity:  20,
		NextPolicy:     "wrap",
		PositionSource: "decoder",
		Volume:         80,

		DisplayAddr: 0x3C,
		Contrast:    0xCF,
		DisplayIdle: Duration(time.Minute),
		ErrorBanner: Duration(3 * time.Second),
		InfoBanner:  Duration(2 * time.Second),

		MusicDir:   "/var/lib/btplayer/music",
		TrackLimit: 100,

		LinkPoll: Duration(2 * time.Second),

		APIAddr: ":8080",
		MDNS:    true,
	}
}
