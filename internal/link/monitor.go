// Package link tracks the wireless audio link to the speaker.
package link

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/micro-nova/btplayer/internal/events"
)

// DefaultInterval is the BlueZ polling period.
const DefaultInterval = 2 * time.Second

// Monitor polls a Querier and posts LinkConnected, LinkDisconnected and
// LinkError events on changes.
type Monitor struct {
	q        Querier
	out      events.Poster
	address  string
	interval time.Duration

	mu        sync.Mutex
	connected bool
	device    Device
	failing   bool
}

// NewMonitor watches for a connected audio device. If address is set only
// that device counts.
func NewMonitor(q Querier, out events.Poster, address string, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{q: q, out: out, address: address, interval: interval}
}

// Connected reports the link state seen by the last poll.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Device returns the connected device, zero when there is none.
func (m *Monitor) Device() Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.device
}

// Run polls until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Poll(ctx)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx)
		}
	}
}

// Poll runs one query and posts whatever changed.
func (m *Monitor) Poll(ctx context.Context) {
	devices, err := m.q.Devices(ctx)

	m.mu.Lock()
	var posts []events.Event
	if err != nil {
		if !m.failing {
			slog.Warn("link: query failed", "err", err)
			posts = append(posts, events.Event{Kind: events.LinkError})
		}
		m.failing = true
		if m.connected {
			m.connected = false
			m.device = Device{}
			posts = append(posts, events.Event{Kind: events.LinkDisconnected})
		}
	} else {
		m.failing = false
		d, up := m.pick(devices)
		if up != m.connected {
			m.connected = up
			m.device = d
			if up {
				slog.Info("link: connected", "device", d.Name, "address", d.Address)
				posts = append(posts, events.Event{Kind: events.LinkConnected})
			} else {
				slog.Info("link: disconnected")
				posts = append(posts, events.Event{Kind: events.LinkDisconnected})
			}
		}
	}
	m.mu.Unlock()

	for _, ev := range posts {
		if err := m.out.Post(ev); err != nil {
			slog.Warn("link: event dropped", "event", ev, "err", err)
		}
	}
}

func (m *Monitor) pick(devices []Device) (Device, bool) {
	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	for _, d := range devices {
		if !d.Connected {
			continue
		}
		if m.address != "" {
			if strings.EqualFold(d.Address, m.address) {
				return d, true
			}
			continue
		}
		if d.AudioSink {
			return d, true
		}
	}
	return Device{}, false
}

// Static is a link that never changes, for builds without Bluetooth.
type Static bool

func (s Static) Connected() bool { return bool(s) }
