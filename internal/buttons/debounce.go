// Package buttons debounces the front-panel buttons. Each button runs an
// independent two-state machine sampled once per engine tick; only confirmed
// state changes leave the engine, as events on the event channel.
package buttons

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/micro-nova/btplayer/internal/events"
	"github.com/micro-nova/btplayer/internal/hardware"
)

// Button identifies one of the front-panel buttons.
type Button int

const (
	Prev Button = iota
	Play
	Next

	NumButtons = 3
)

func (b Button) String() string {
	switch b {
	case Prev:
		return "prev"
	case Play:
		return "play"
	case Next:
		return "next"
	default:
		return fmt.Sprintf("button(%d)", int(b))
	}
}

// Kind returns the event kind posted for b.
func (b Button) Kind() events.Kind {
	return events.ButtonPrev + events.Kind(b)
}

// FromKind maps a button event kind back to its Button.
func FromKind(k events.Kind) (Button, bool) {
	if !k.IsButton() {
		return 0, false
	}
	return Button(k - events.ButtonPrev), true
}

// Parse maps a button name ("prev", "play", "next") to a Button.
func Parse(name string) (Button, bool) {
	switch name {
	case "prev":
		return Prev, true
	case "play":
		return Play, true
	case "next":
		return Next, true
	}
	return 0, false
}

// State is the debounced state of a button.
type State uint8

const (
	Released State = iota
	Pressed
)

func (s State) String() string {
	if s == Pressed {
		return "pressed"
	}
	return "released"
}

// Param returns the event parameter carrying s.
func (s State) Param() uint32 {
	if s == Pressed {
		return events.ParamPressed
	}
	return events.ParamReleased
}

// DefaultWindow is the debounce window in ticks (20 ms at 1 tick/ms).
const DefaultWindow = 20

// WindowTicks converts a debounce duration into whole ticks of period,
// rounding up so the window is never shorter than requested.
func WindowTicks(debounce, period time.Duration) int {
	if period <= 0 || debounce <= 0 {
		return DefaultWindow
	}
	n := int((debounce + period - 1) / period)
	if n < 1 {
		n = 1
	}
	return n
}

type buttonState struct {
	raw            State
	confirmed      State
	lastTransition uint64
}

// Engine samples the button pins and posts confirmed press/release events.
// All state updates, whether triggered by the periodic tick or an edge
// wake-up, go through one mutex-guarded routine.
type Engine struct {
	mu      sync.Mutex
	pins    [NumButtons]hardware.Pin
	buttons [NumButtons]buttonState
	window  uint64
	tick    uint64
	out     events.Poster
	lost    uint64
}

// New creates an engine reading pins, posting to out, with a debounce window
// of window ticks (non-positive selects DefaultWindow).
func New(pins [NumButtons]hardware.Pin, out events.Poster, window int) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{
		pins:   pins,
		window: uint64(window),
		out:    out,
	}
}

// Tick samples every pin at the current tick, commits any state that has
// been stable for the window, and advances the tick counter.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampleLocked()
	e.tick++
}

// Sample samples every pin without advancing time. Edge handlers call it so
// a transition is timestamped as soon as it is seen.
func (e *Engine) Sample() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sampleLocked()
}

func (e *Engine) sampleLocked() {
	now := e.tick
	for i := range e.buttons {
		if e.pins[i] == nil {
			continue
		}
		raw := Released
		if e.pins[i].Read() == hardware.Low {
			raw = Pressed
		}

		b := &e.buttons[i]
		if raw != b.raw {
			b.raw = raw
			b.lastTransition = now
		}
		if b.raw == b.confirmed || now-b.lastTransition < e.window {
			continue
		}

		b.confirmed = b.raw
		btn := Button(i)
		ev := events.Event{Kind: btn.Kind(), Param: b.confirmed.Param()}
		if err := e.out.Post(ev); err != nil {
			e.lost++
			if errors.Is(err, events.ErrFull) {
				slog.Warn("buttons: event channel full, notification lost",
					"button", btn, "state", b.confirmed, "tick", now)
			} else {
				slog.Warn("buttons: post failed", "button", btn, "err", err)
			}
			continue
		}
		slog.Debug("buttons: confirmed", "button", btn, "state", b.confirmed, "tick", now)
	}
}

// Run drives Tick every period until ctx is cancelled. Pins that implement
// hardware.EdgePin additionally trigger an immediate Sample on each edge.
func (e *Engine) Run(ctx context.Context, period time.Duration) {
	wake := make(chan struct{}, 1)
	var wg sync.WaitGroup
	for _, p := range e.pins {
		ep, ok := p.(hardware.EdgePin)
		if !ok {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			watchEdges(ctx, ep, wake)
		}()
	}
	defer wg.Wait()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		case <-wake:
			e.Sample()
		}
	}
}

func watchEdges(ctx context.Context, p hardware.EdgePin, wake chan<- struct{}) {
	for ctx.Err() == nil {
		if !p.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		select {
		case wake <- struct{}{}:
		default:
		}
	}
}

// Confirmed returns the debounced state of b.
func (e *Engine) Confirmed(b Button) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if b < 0 || b >= NumButtons {
		return Released
	}
	return e.buttons[b].confirmed
}

// Ticks returns the number of completed ticks.
func (e *Engine) Ticks() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tick
}

// Lost returns how many confirmed changes could not be posted.
func (e *Engine) Lost() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lost
}
