// Package ui composes the player screen on the display engine.
package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/micro-nova/btplayer/internal/display"
	"github.com/micro-nova/btplayer/internal/playback"
)

const (
	DefaultErrorFor = 3 * time.Second
	DefaultInfoFor  = 2 * time.Second
)

// Surface is the drawing and flushing capability of the display.
type Surface interface {
	FillRect(x, y, w, h int, c display.Color)
	Rect(x, y, w, h int, c display.Color)
	HLine(x, y, w int, c display.Color)
	Text(x, y int, s string, c display.Color) int
	TextWidth(s string) int
	Clear()
	FlushPartial() (int, error)
	FlushFull() error
}

// Source provides the playback state to draw.
type Source interface {
	Snapshot() playback.Snapshot
}

// Options tunes banners and the status line.
type Options struct {
	ErrorFor time.Duration
	InfoFor  time.Duration
	// Linked reports the wireless link state; nil hides the indicator.
	Linked func() bool
	// Now is the clock banners expire against; nil means time.Now.
	Now func() time.Time
}

type banner struct {
	msg   string
	until time.Time
}

// UI draws the player screen. It implements playback.Observer.
type UI struct {
	surf Surface
	src  Source
	opts Options

	mu      sync.Mutex
	err     banner
	info    banner
	pending bool
	state   playback.State
}

// New creates a UI drawing the state of src on surf.
func New(surf Surface, src Source, opts Options) *UI {
	if opts.ErrorFor <= 0 {
		opts.ErrorFor = DefaultErrorFor
	}
	if opts.InfoFor <= 0 {
		opts.InfoFor = DefaultInfoFor
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &UI{surf: surf, src: src, opts: opts}
}

// ShowError displays msg in a banner until ErrorFor has elapsed.
func (u *UI) ShowError(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.err = banner{msg: msg, until: u.opts.Now().Add(u.opts.ErrorFor)}
	u.pending = true
}

// ShowInfo displays msg in the footer until InfoFor has elapsed.
func (u *UI) ShowInfo(msg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.info = banner{msg: msg, until: u.opts.Now().Add(u.opts.InfoFor)}
	u.pending = true
}

// PlaybackStateChanged records the new state; entering Error raises the error
// banner.
func (u *UI) PlaybackStateChanged(s playback.State) {
	u.mu.Lock()
	u.state = s
	u.mu.Unlock()
	if s == playback.Error {
		msg := "playback error"
		if err := u.src.Snapshot().Err; err != nil {
			msg = err.Error()
		}
		u.ShowError(msg)
	}
}

// RequestRender asks for a render at the next opportunity.
func (u *UI) RequestRender() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.pending = true
}

// RenderPending reports whether a render was requested since the last one.
// It also turns true when a banner expires.
func (u *UI) RenderPending() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	now := u.opts.Now()
	return u.pending || expired(u.err, now) || expired(u.info, now)
}

func expired(b banner, now time.Time) bool {
	return b.msg != "" && !now.Before(b.until)
}

// Banner returns the visible error and info messages.
func (u *UI) Banner() (errMsg, infoMsg string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.expireLocked()
	return u.err.msg, u.info.msg
}

func (u *UI) expireLocked() {
	now := u.opts.Now()
	if expired(u.err, now) {
		u.err = banner{}
	}
	if expired(u.info, now) {
		u.info = banner{}
	}
}

// Render composes the frame and sends the changed blocks. Blocks that fail
// stay dirty for the next render.
func (u *UI) Render() (int, error) {
	u.compose()
	return u.surf.FlushPartial()
}

// Redraw composes the frame from scratch and sends all of it.
func (u *UI) Redraw() error {
	u.surf.Clear()
	u.compose()
	return u.surf.FlushFull()
}

func (u *UI) compose() {
	snap := u.src.Snapshot()
	u.mu.Lock()
	u.expireLocked()
	errMsg, infoMsg := u.err.msg, u.info.msg
	u.pending = false
	u.mu.Unlock()

	s := u.surf
	s.FillRect(0, 0, display.Width, display.Height, display.Off)

	title := snap.Track
	if title == "" {
		title = "No track"
	}
	s.Text(0, rowTitle, fit(s, title, display.Width-iconSize-2), display.On)
	drawIcon(s, display.Width-iconSize, 1, snap.State)
	s.HLine(0, rowDivider, display.Width, display.On)

	line := snap.State.String()
	if snap.TrackCount > 0 {
		line = fmt.Sprintf("%d/%d %s", snap.TrackIndex+1, snap.TrackCount, line)
	}
	if u.opts.Linked != nil {
		link := "--"
		if u.opts.Linked() {
			link = "BT"
		}
		s.Text(display.Width-s.TextWidth(link), rowInfo, link, display.On)
	}
	s.Text(0, rowInfo, line, display.On)

	drawProgress(s, snap.PositionMS, snap.DurationMS)

	s.Text(0, rowTime, clock(snap.PositionMS)+"/"+clock(snap.DurationMS), display.On)
	if snap.Volume >= 0 {
		vol := fmt.Sprintf("V%d", snap.Volume)
		s.Text(display.Width-s.TextWidth(vol), rowTime, vol, display.On)
	}

	if infoMsg != "" {
		s.Text(0, rowFooter, fit(s, infoMsg, display.Width), display.On)
	} else {
		drawHints(s)
	}

	if errMsg != "" {
		drawError(s, errMsg)
	}
}

// fit truncates s to at most w pixels.
func fit(s Surface, text string, w int) string {
	if s.TextWidth(text) <= w {
		return text
	}
	r := []rune(text)
	for len(r) > 0 && s.TextWidth(string(r)+"~") > w {
		r = r[:len(r)-1]
	}
	return string(r) + "~"
}

func clock(ms uint32) string {
	sec := ms / 1000
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}
