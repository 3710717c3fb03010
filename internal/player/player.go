// Package player runs the orchestration loop: the single consumer of the
// event channel and the single driver of playback and render ticks.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/micro-nova/btplayer/internal/buttons"
	"github.com/micro-nova/btplayer/internal/events"
	"github.com/micro-nova/btplayer/internal/models"
	"github.com/micro-nova/btplayer/internal/playback"
	"github.com/micro-nova/btplayer/internal/ui"
)

var (
	ErrLinkLost   = errors.New("player: speaker disconnected")
	ErrAudioFault = errors.New("player: audio output failed")
)

// Display is the power control of the screen.
type Display interface {
	Sleep() error
	Wake() error
	Asleep() bool
}

// Library lists the available tracks.
type Library interface {
	ListTracks(limit int) ([]string, error)
}

// Link reports the wireless link state.
type Link interface {
	Connected() bool
}

// Config holds loop timing.
type Config struct {
	Tick           time.Duration
	RenderInterval time.Duration
	// DisplayIdle puts the display to sleep after this long without a
	// button press. Zero disables it.
	DisplayIdle time.Duration
	TrackLimit  int
}

// Deps are the components the loop drives. UI and Display may be nil when
// the device runs without a screen; Library, Link and Bus are optional.
type Deps struct {
	Channel    *events.Channel
	Controller *playback.Controller
	UI         *ui.UI
	Display    Display
	Library    Library
	Link       Link
	Bus        *events.Bus
	Now        func() time.Time
}

// Player is the orchestration loop.
type Player struct {
	cfg Config
	Deps

	lastRender   time.Time
	lastActivity time.Time
	underruns    uint64
}

// New creates the loop. Nothing runs until Run or Step.
func New(cfg Config, deps Deps) *Player {
	if cfg.Tick <= 0 {
		cfg.Tick = playback.DefaultTick
	}
	if cfg.RenderInterval <= 0 {
		cfg.RenderInterval = 100 * time.Millisecond
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	p := &Player{cfg: cfg, Deps: deps}
	p.lastActivity = p.Now()
	return p
}

// LoadLibrary refreshes the controller's track list from the library.
func (p *Player) LoadLibrary() (int, error) {
	if p.Library == nil {
		return 0, nil
	}
	tracks, err := p.Library.ListTracks(p.cfg.TrackLimit)
	if err != nil {
		return 0, fmt.Errorf("player: load library: %w", err)
	}
	p.Controller.SetTracks(tracks)
	return len(tracks), nil
}

// Run loops until ctx is done. Events are handled as they arrive; playback
// and rendering advance once per tick.
func (p *Player) Run(ctx context.Context) error {
	next := p.Now()
	for {
		now := p.Now()
		if !now.Before(next) {
			p.Step()
			next = next.Add(p.cfg.Tick)
			if next.Before(now) {
				next = now.Add(p.cfg.Tick)
			}
		}
		ev, err := p.Channel.WaitReceiveContext(ctx, next.Sub(p.Now()))
		switch {
		case err == nil:
			p.handle(ev)
		case errors.Is(err, events.ErrTimeout):
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

// Step runs one loop iteration: drain all pending events, one playback
// update, a render if due, and a status publish.
func (p *Player) Step() {
	for {
		ev, err := p.Channel.TryReceive()
		if err != nil {
			break
		}
		p.handle(ev)
	}

	p.Controller.Update()

	now := p.Now()
	if p.UI != nil && !p.asleep() {
		if p.UI.RenderPending() || now.Sub(p.lastRender) >= p.cfg.RenderInterval {
			if n, err := p.UI.Render(); err != nil {
				slog.Debug("player: render incomplete", "sent", n, "err", err)
			}
			p.lastRender = now
		}
	}
	p.checkIdle(now)
	p.publish()
}

func (p *Player) handle(ev events.Event) {
	slog.Debug("player: event", "event", ev)
	switch {
	case ev.Kind.IsButton():
		if ev.Param != events.ParamPressed {
			return
		}
		b, _ := buttons.FromKind(ev.Kind)
		p.press(b)
		return
	}

	switch ev.Kind {
	case events.PlaybackPlay:
		if st := p.Controller.State(); st != playback.Playing && st != playback.Loading {
			p.command(playback.TogglePlayPause)
		}
	case events.PlaybackPause:
		if p.Controller.State() == playback.Playing {
			p.command(playback.TogglePlayPause)
		}
	case events.PlaybackNext:
		p.command(playback.Next)
	case events.PlaybackPrev:
		p.command(playback.Previous)
	case events.PlaybackStop:
		p.command(playback.Stop)

	case events.AudioReady:
		slog.Info("player: audio output ready")
	case events.AudioUnderrun:
		p.underruns++
		slog.Debug("player: audio underrun", "total", p.underruns)
	case events.AudioError:
		p.Controller.Fail(ErrAudioFault)

	case events.LinkConnected:
		p.info("Speaker connected")
	case events.LinkDisconnected:
		switch p.Controller.State() {
		case playback.Loading, playback.Playing, playback.Paused:
			p.Controller.Fail(ErrLinkLost)
		default:
			p.info("Speaker disconnected")
		}
	case events.LinkError:
		p.alert("Bluetooth unavailable")

	case events.DisplayRedraw:
		p.redraw()
	case events.DisplayStateChange:
		if ev.Param == events.ParamDisplayWake {
			p.wake()
		} else {
			p.sleep()
		}

	case events.StorageLoaded:
		n, err := p.LoadLibrary()
		if err != nil {
			slog.Warn("player: library reload failed", "err", err)
			p.alert("Storage error")
			return
		}
		p.info(fmt.Sprintf("%d tracks", n))
	case events.StorageNotFound:
		p.alert("No storage")
	case events.StorageError:
		p.alert("Storage error")

	default:
		slog.Warn("player: unhandled event", "event", ev)
	}
}

// press maps a confirmed button press to a command. A press that wakes the
// display does nothing else.
func (p *Player) press(b buttons.Button) {
	p.lastActivity = p.Now()
	if p.asleep() {
		p.wake()
		return
	}
	switch b {
	case buttons.Prev:
		p.command(playback.Previous)
	case buttons.Next:
		p.command(playback.Next)
	case buttons.Play:
		if p.Controller.State() == playback.Error {
			p.command(playback.Stop)
		} else {
			p.command(playback.TogglePlayPause)
		}
	}
}

func (p *Player) command(c playback.Command) {
	p.Controller.Execute(c)
}

func (p *Player) info(msg string) {
	if p.UI != nil {
		p.UI.ShowInfo(msg)
	}
}

func (p *Player) alert(msg string) {
	slog.Warn("player: " + msg)
	if p.UI != nil {
		p.UI.ShowError(msg)
	}
}

func (p *Player) asleep() bool {
	return p.Display != nil && p.Display.Asleep()
}

func (p *Player) checkIdle(now time.Time) {
	if p.cfg.DisplayIdle <= 0 || p.Display == nil || p.Display.Asleep() {
		return
	}
	if p.Controller.State() == playback.Error {
		return
	}
	if now.Sub(p.lastActivity) >= p.cfg.DisplayIdle {
		p.sleep()
	}
}

func (p *Player) sleep() {
	if p.Display == nil || p.Display.Asleep() {
		return
	}
	if err := p.Display.Sleep(); err != nil {
		slog.Warn("player: display sleep failed", "err", err)
		return
	}
	slog.Debug("player: display asleep")
}

func (p *Player) wake() {
	p.lastActivity = p.Now()
	if p.Display == nil || !p.Display.Asleep() {
		return
	}
	if err := p.Display.Wake(); err != nil {
		slog.Warn("player: display wake failed", "err", err)
		return
	}
	p.redraw()
}

func (p *Player) redraw() {
	if p.UI == nil || p.asleep() {
		return
	}
	if err := p.UI.Redraw(); err != nil {
		slog.Warn("player: redraw failed", "err", err)
	}
	p.lastRender = p.Now()
}

// Status returns the externally visible state.
func (p *Player) Status() models.Status {
	snap := p.Controller.Snapshot()
	st := models.Status{
		State:      snap.State.String(),
		Track:      snap.Track,
		TrackIndex: snap.TrackIndex,
		TrackCount: snap.TrackCount,
		PositionMS: snap.PositionMS,
		DurationMS: snap.DurationMS,
		Volume:     snap.Volume,
		Dropped:    p.Channel.Dropped(),
	}
	if snap.Err != nil {
		st.Error = snap.Err.Error()
	}
	if p.Link != nil {
		st.Linked = p.Link.Connected()
	}
	return st
}

func (p *Player) publish() {
	if p.Bus != nil {
		p.Bus.Publish(p.Status())
	}
}
