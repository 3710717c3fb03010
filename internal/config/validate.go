package config

import (
	"fmt"
	"log/slog"
	"time"
)

const minEventCapacity = 20

// Validate fills zero values from Default and clamps out-of-range values.
// Unknown policy names are an error.
func (c *Config) Validate() error {
	def := Default()

	if c.Buttons.Prev == "" {
		c.Buttons.Prev = def.Buttons.Prev
	}
	if c.Buttons.Play == "" {
		c.Buttons.Play = def.Buttons.Play
	}
	if c.Buttons.Next == "" {
		c.Buttons.Next = def.Buttons.Next
	}
	positive(&c.Debounce, def.Debounce, "debounce")
	positive(&c.DebounceTick, def.DebounceTick, "debounce_tick")
	positive(&c.PlaybackTick, def.PlaybackTick, "playback_tick")
	positive(&c.RenderInterval, def.RenderInterval, "render_interval")
	positive(&c.ErrorBanner, def.ErrorBanner, "error_banner")
	positive(&c.InfoBanner, def.InfoBanner, "info_banner")
	positive(&c.LinkPoll, def.LinkPoll, "link_poll")
	if c.DisplayIdle < 0 {
		c.DisplayIdle = 0
	}

	if c.EventCapacity < minEventCapacity {
		if c.EventCapacity != 0 {
			slog.Warn("config: event_capacity raised", "from", c.EventCapacity, "to", minEventCapacity)
		}
		c.EventCapacity = minEventCapacity
	}
	c.Volume = clamp(c.Volume, 0, 100)
	c.Contrast = clamp(c.Contrast, 0, 255)
	if c.DisplayAddr == 0 {
		c.DisplayAddr = def.DisplayAddr
	}
	if c.BusTransfersPerSec < 0 {
		c.BusTransfersPerSec = 0
	}
	if c.TrackLimit < 0 {
		c.TrackLimit = 0
	}
	if c.MusicDir == "" {
		c.MusicDir = def.MusicDir
	}

	switch c.NextPolicy {
	case "":
		c.NextPolicy = def.NextPolicy
	case "wrap", "saturate":
	default:
		return fmt.Errorf("config: next_policy %q: want wrap or saturate", c.NextPolicy)
	}
	switch c.PositionSource {
	case "":
		c.PositionSource = def.PositionSource
	case "decoder", "tick":
	default:
		return fmt.Errorf("config: position_source %q: want decoder or tick", c.PositionSource)
	}
	return nil
}

func positive(d *Duration, def Duration, name string) {
	if *d > 0 {
		return
	}
	if *d < 0 {
		slog.Warn("config: negative duration replaced", "field", name, "value", time.Duration(*d))
	}
	*d = def
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
