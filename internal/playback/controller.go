// Package playback implements the playback state machine: the single owner
// of the current state, track index and position.
//
// Commands are intents. Execute records the latest one and Update honours at
// most one per tick, then runs the internal step of the current state
// (finishing a load, feeding the sink, advancing the position).
package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

var (
	ErrNoTracks        = errors.New("playback: no tracks")
	ErrSinkUnavailable = errors.New("playback: audio sink not connected")
)

// DefaultTick is the orchestration period the position increment assumes.
const DefaultTick = 50 * time.Millisecond

// Decoder produces interleaved 16-bit PCM from a named track.
type Decoder interface {
	Open(name string) error
	// DecodeNext fills buf and returns the number of samples written. It
	// returns io.EOF once the stream is exhausted.
	DecodeNext(buf []int16) (int, error)
	DurationMS() uint32
	PositionMS() uint32
	SampleRate() int
	Channels() int
	Close() error
}

// Sink consumes PCM.
type Sink interface {
	Connected() bool
	Feed(samples []int16) error
	SetVolume(percent int) error
}

// Observer is told about every committed state change.
type Observer interface {
	PlaybackStateChanged(s State)
	RequestRender()
}

// Config tunes the controller.
type Config struct {
	Tick     time.Duration
	Next     NextPolicy
	Position PositionSource
	// SinkRate and SinkChannels describe the output format. A loaded track
	// in another format is played unconverted and logged. Zero skips the check.
	SinkRate     int
	SinkChannels int
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	return c
}

// Controller is the playback state machine. It is safe for concurrent use;
// readers only ever see committed state.
type Controller struct {
	mu  sync.Mutex
	cfg Config
	dec Decoder
	snk Sink
	obs Observer

	state   State
	pending Command
	tracks  []string
	index   int

	openTrack string // track the decoder holds, "" when closed
	reopen    bool   // next load must restart the track
	position  uint32
	duration  uint32
	volume    int
	lastErr   error
	buf       []int16

	changes []State // committed while locked, delivered after unlock
}

// New creates a controller in Idle. obs may be nil.
func New(cfg Config, dec Decoder, snk Sink, obs Observer) *Controller {
	return &Controller{
		cfg:    cfg.withDefaults(),
		dec:    dec,
		snk:    snk,
		obs:    obs,
		volume: -1,
	}
}

// SetObserver replaces the observer.
func (c *Controller) SetObserver(obs Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.obs = obs
}

// Execute records cmd as the pending intent, replacing any earlier one.
func (c *Controller) Execute(cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != None && cmd != c.pending {
		slog.Debug("playback: pending command replaced", "old", c.pending, "new", cmd)
	}
	c.pending = cmd
}

// Pending returns the intent that the next Update will honour.
func (c *Controller) Pending() Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Update runs one orchestration tick. A tick that commits a command does not
// also run the internal step, so every transition is observable.
func (c *Controller) Update() {
	c.mu.Lock()
	cmd := c.pending
	c.pending = None
	if cmd == None || !c.apply(cmd) {
		c.step()
	}
	changes, obs := c.changes, c.obs
	c.changes = nil
	c.mu.Unlock()

	notify(obs, changes)
}

// Fail drives the machine to Error. Only Stop leaves it.
func (c *Controller) Fail(err error) {
	c.mu.Lock()
	c.fail(err)
	changes, obs := c.changes, c.obs
	c.changes = nil
	c.mu.Unlock()

	notify(obs, changes)
}

func notify(obs Observer, changes []State) {
	if obs == nil {
		return
	}
	for _, s := range changes {
		obs.PlaybackStateChanged(s)
		obs.RequestRender()
	}
}

// apply honours cmd and reports whether it changed state.
func (c *Controller) apply(cmd Command) bool {
	if cmd == Stop {
		c.closeDecoder()
		c.position = 0
		return c.enter(Idle)
	}
	switch c.state {
	case Idle:
		if cmd == TogglePlayPause {
			c.reopen = true
			return c.enter(Loading)
		}
	case Paused:
		switch cmd {
		case TogglePlayPause:
			return c.enter(Loading)
		case Next, Previous:
			return c.skip(cmd)
		}
	case Playing:
		switch cmd {
		case TogglePlayPause:
			return c.enter(Paused)
		case Next, Previous:
			return c.skip(cmd)
		}
	}
	slog.Debug("playback: command ignored", "state", c.state, "cmd", cmd)
	return false
}

func (c *Controller) skip(cmd Command) bool {
	n := len(c.tracks)
	switch {
	case cmd == Previous:
		if c.index > 0 {
			c.index--
		}
	case n == 0:
	case c.index+1 < n:
		c.index++
	case c.cfg.Next == NextWrap:
		c.index = 0
	}
	c.reopen = true
	return c.enter(Loading)
}

func (c *Controller) step() {
	switch c.state {
	case Loading:
		c.load()
	case Playing:
		c.play()
	}
}

func (c *Controller) load() {
	if len(c.tracks) == 0 {
		c.fail(ErrNoTracks)
		return
	}
	if c.snk != nil && !c.snk.Connected() {
		c.fail(ErrSinkUnavailable)
		return
	}
	track := c.tracks[c.index]
	if track != c.openTrack || c.reopen {
		c.closeDecoder()
		if err := c.dec.Open(track); err != nil {
			c.fail(fmt.Errorf("playback: open %s: %w", track, err))
			return
		}
		c.openTrack = track
		c.position = 0
		c.duration = c.dec.DurationMS()
		c.buf = c.buf[:0]
		slog.Info("playback: track loaded", "track", track, "index", c.index, "duration_ms", c.duration)
		c.checkFormat(track)
	}
	c.reopen = false
	c.enter(Playing)
}

func (c *Controller) checkFormat(track string) {
	rate, ch := c.dec.SampleRate(), c.dec.Channels()
	if (c.cfg.SinkRate > 0 && rate != c.cfg.SinkRate) || (c.cfg.SinkChannels > 0 && ch != c.cfg.SinkChannels) {
		slog.Warn("playback: track format differs from output, playing unconverted",
			"track", track,
			"rate", rate,
			"channels", ch,
			"output_rate", c.cfg.SinkRate,
			"output_channels", c.cfg.SinkChannels,
		)
	}
}

// play feeds one tick of audio and advances the position.
func (c *Controller) play() {
	eof := false
	if want := c.samplesPerTick(); want > 0 {
		if cap(c.buf) < want {
			c.buf = make([]int16, want)
		}
		buf := c.buf[:want]
		n, err := c.dec.DecodeNext(buf)
		switch {
		case errors.Is(err, io.EOF):
			eof = true
		case err != nil:
			c.fail(fmt.Errorf("playback: decode: %w", err))
			return
		}
		if n > 0 && c.snk != nil {
			if err := c.snk.Feed(buf[:n]); err != nil {
				c.fail(fmt.Errorf("playback: feed: %w", err))
				return
			}
		}
	}

	if c.cfg.Position == PositionTick {
		c.position += uint32(c.cfg.Tick / time.Millisecond)
	} else {
		c.position = c.dec.PositionMS()
	}

	if eof || (c.duration > 0 && c.position > c.duration) {
		c.advance()
	}
}

func (c *Controller) samplesPerTick() int {
	rate, ch := c.dec.SampleRate(), c.dec.Channels()
	if rate <= 0 || ch <= 0 {
		return 0
	}
	return int(int64(rate) * int64(c.cfg.Tick) / int64(time.Second) * int64(ch))
}

// advance moves to the next track at the end of the current one. Past the
// last track it wraps, or stops when the policy saturates.
func (c *Controller) advance() {
	c.reopen = true
	if c.index+1 < len(c.tracks) {
		c.index++
	} else if c.cfg.Next == NextWrap {
		c.index = 0
	} else {
		slog.Info("playback: end of playlist")
		c.closeDecoder()
		c.position = 0
		c.enter(Idle)
		return
	}
	slog.Debug("playback: auto-advance", "index", c.index)
	c.enter(Loading)
}

func (c *Controller) fail(err error) {
	c.lastErr = err
	c.closeDecoder()
	if c.enter(Error) {
		slog.Warn("playback: error", "err", err)
	}
}

func (c *Controller) closeDecoder() {
	if c.openTrack == "" {
		return
	}
	if err := c.dec.Close(); err != nil {
		slog.Warn("playback: decoder close failed", "err", err)
	}
	c.openTrack = ""
}

func (c *Controller) enter(s State) bool {
	if s == c.state {
		return false
	}
	slog.Debug("playback: transition", "from", c.state, "to", s)
	c.state = s
	if s != Error {
		c.lastErr = nil
	}
	c.changes = append(c.changes, s)
	return true
}

// SetTracks replaces the track list. The index follows the open track to its
// new position; if that track is gone the index is clamped and the next load
// reopens.
func (c *Controller) SetTracks(tracks []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = append([]string(nil), tracks...)
	if c.openTrack != "" {
		if i := slices.Index(c.tracks, c.openTrack); i >= 0 {
			c.index = i
			return
		}
		c.reopen = true
	}
	if c.index >= len(c.tracks) {
		c.index = max(len(c.tracks)-1, 0)
	}
}

// SetVolume clamps percent to 0..100 and forwards it to the sink.
func (c *Controller) SetVolume(percent int) error {
	percent = min(max(percent, 0), 100)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snk != nil {
		if err := c.snk.SetVolume(percent); err != nil {
			return fmt.Errorf("playback: set volume: %w", err)
		}
	}
	c.volume = percent
	return nil
}

// Volume returns the last volume set, or -1 if none was.
func (c *Controller) Volume() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) PositionMS() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Controller) DurationMS() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

func (c *Controller) TrackIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

func (c *Controller) TrackCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tracks)
}

// Track returns the name at the current index, "" with no tracks.
func (c *Controller) Track() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.index < len(c.tracks) {
		return c.tracks[c.index]
	}
	return ""
}

// LastError returns the error that put the machine in Error, or nil.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	State      State
	Track      string
	TrackIndex int
	TrackCount int
	PositionMS uint32
	DurationMS uint32
	Volume     int
	Err        error
}

// Snapshot returns every reader's value under one lock.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:      c.state,
		TrackIndex: c.index,
		TrackCount: len(c.tracks),
		PositionMS: c.position,
		DurationMS: c.duration,
		Volume:     c.volume,
		Err:        c.lastErr,
	}
	if c.index < len(c.tracks) {
		s.Track = c.tracks[c.index]
	}
	return s
}
