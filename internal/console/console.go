// Package console mirrors the log stream to a serial UART so a headless
// player can be debugged with a USB-serial cable.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.bug.st/serial"
)

// DefaultBaud is the console line rate.
const DefaultBaud = 115200

// Port is a serial console. Writes never block the caller on a failed port:
// after the first error the port is marked broken and further output is
// discarded.
type Port struct {
	mu     sync.Mutex
	w      io.WriteCloser
	broken bool
}

// Open opens the serial device at baud (8N1).
func Open(dev string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	p, err := serial.Open(dev, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("console: open %s: %w", dev, err)
	}
	return New(p), nil
}

// New wraps an already open writer.
func New(w io.WriteCloser) *Port {
	return &Port{w: w}
}

// Write implements io.Writer.
func (p *Port) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.broken {
		return len(b), nil
	}
	if _, err := p.w.Write(b); err != nil {
		p.broken = true
		return len(b), nil
	}
	return len(b), nil
}

// Broken reports whether a write has failed.
func (p *Port) Broken() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.broken
}

// Close closes the underlying port.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Close()
}

// Tee fans a record out to every handler that is enabled for its level.
type Tee []slog.Handler

// Enabled implements slog.Handler.
func (t Tee) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

// Handle implements slog.Handler.
func (t Tee) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (t Tee) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(Tee, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

// WithGroup implements slog.Handler.
func (t Tee) WithGroup(name string) slog.Handler {
	out := make(Tee, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}
