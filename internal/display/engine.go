// Package display drives a 128x64 SSD1306 OLED over a narrow I2C link.
//
// The Engine owns an off-screen framebuffer laid out like the controller's
// GDDRAM (128 columns by 8 pages, one byte is 8 vertical pixels) and a dirty
// map with one flag per 8x8 block. Drawing only touches memory; FlushPartial
// sends just the dirty blocks and FlushFull resends everything.
//
// An Engine is not safe for concurrent use. It is owned by the render loop.
package display

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/time/rate"
	"periph.io/x/conn/v3"
)

const (
	Width  = 128
	Height = 64
	Pages  = Height / 8

	// BlockSize is the edge of a dirty block in pixels. A block is 8 columns
	// of one page, so it is exactly 8 framebuffer bytes.
	BlockSize       = 8
	BlocksPerPage   = Width / BlockSize
	FramebufferSize = Width * Pages
)

// Color is a monochrome pixel value.
type Color bool

const (
	Off Color = false
	On  Color = true
)

// ErrNotInitialized is returned by bus operations before a successful Init.
var ErrNotInitialized = errors.New("display: not initialized")

// Options tunes an Engine.
type Options struct {
	// Contrast programmed at Init. Zero selects DefaultContrast.
	Contrast byte
	// TransfersPerSecond caps block transfers across flushes so rendering
	// never saturates the bus. Zero means unlimited.
	TransfersPerSecond float64
	// Burst is the limiter bucket size; at least one frame's worth of
	// changed blocks is sensible. Zero selects BlocksPerPage * Pages.
	Burst int
}

// Stats counts bus activity since the engine was created.
type Stats struct {
	Transfers int // successful block or page transfers
	Failures  int // failed transfers
	Bytes     int // framebuffer bytes sent
	Deferred  int // dirty blocks left for later by the bandwidth budget
}

// Engine is the display driver. See the package documentation.
type Engine struct {
	bus     conn.Conn
	fb      [FramebufferSize]byte
	shadow  [FramebufferSize]byte // what the panel is known to hold
	dirty   [Pages]uint16         // bit b set: block b of the page differs from the panel
	stale   [Pages]uint16         // bit b set: panel content of the block is unknown
	touched [Pages]uint16         // blocks written since the last commit
	limiter *rate.Limiter
	face    font.Face

	contrast    byte
	initialized bool
	asleep      bool
	stats       Stats
}

// New creates an engine talking to bus. Nothing is sent until Init.
func New(bus conn.Conn, opts Options) *Engine {
	e := &Engine{
		bus:      bus,
		face:     basicfont.Face7x13,
		contrast: opts.Contrast,
	}
	if e.contrast == 0 {
		e.contrast = DefaultContrast
	}
	if opts.TransfersPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = BlocksPerPage * Pages
		}
		e.limiter = rate.NewLimiter(rate.Limit(opts.TransfersPerSecond), burst)
	}
	// The panel powers up with random RAM.
	for p := range e.stale {
		e.stale[p] = 0xFFFF
		e.dirty[p] = 0xFFFF
	}
	return e
}

// Init configures the controller and clears its RAM. Any bus failure here is
// returned; the caller decides whether to continue without a display.
func (e *Engine) Init() error {
	if err := e.command(initSequence(e.contrast)...); err != nil {
		return fmt.Errorf("display: init: %w", err)
	}
	e.initialized = true
	e.asleep = false

	if err := e.FlushFull(); err != nil {
		e.initialized = false
		return fmt.Errorf("display: init clear: %w", err)
	}
	slog.Info("display: initialized", "bus", e.bus.String(), "width", Width, "height", Height)
	return nil
}

// Initialized reports whether Init succeeded.
func (e *Engine) Initialized() bool { return e.initialized }

func (e *Engine) command(cmds ...byte) error {
	buf := make([]byte, 0, len(cmds)+1)
	buf = append(buf, ctrlCommand)
	buf = append(buf, cmds...)
	return e.bus.Tx(buf, nil)
}

func (e *Engine) data(b []byte) error {
	buf := make([]byte, 0, len(b)+1)
	buf = append(buf, ctrlData)
	buf = append(buf, b...)
	return e.bus.Tx(buf, nil)
}

// Clear zeroes the framebuffer and marks every block dirty, so the next
// flush rewrites the whole panel.
func (e *Engine) Clear() {
	e.fb = [FramebufferSize]byte{}
	for p := range e.stale {
		e.stale[p] = 0xFFFF
		e.dirty[p] = 0xFFFF
		e.touched[p] = 0
	}
}

// FlushPartial transmits every dirty block and clears its flag. A failed
// transfer keeps its flag so the next refresh retries it. When a bandwidth
// budget is set and exhausted the remaining blocks are deferred the same way.
// It returns the number of blocks sent and all transfer errors joined.
func (e *Engine) FlushPartial() (int, error) {
	if !e.initialized {
		return 0, ErrNotInitialized
	}
	e.commit()

	var errs []error
	sent := 0
	for page := 0; page < Pages; page++ {
		mask := e.dirty[page]
		for blk := 0; mask != 0 && blk < BlocksPerPage; blk++ {
			bit := uint16(1) << blk
			if mask&bit == 0 {
				continue
			}
			mask &^= bit
			if e.limiter != nil && !e.limiter.Allow() {
				deferred := e.DirtyCount() - len(errs)
				e.stats.Deferred += deferred
				slog.Debug("display: bus budget exhausted, deferring", "blocks", deferred)
				return sent, errors.Join(errs...)
			}
			if err := e.sendBlock(page, blk); err != nil {
				e.stats.Failures++
				errs = append(errs, fmt.Errorf("display: block %d/%d: %w", page, blk, err))
				continue
			}
			sent++
		}
	}
	if len(errs) > 0 {
		slog.Debug("display: partial flush had failures", "sent", sent, "failed", len(errs))
	}
	return sent, errors.Join(errs...)
}

func (e *Engine) sendBlock(page, blk int) error {
	c0 := byte(blk * BlockSize)
	if err := e.command(cmdColumnAddr, c0, c0+BlockSize-1, cmdPageAddr, byte(page), byte(page)); err != nil {
		return err
	}
	off := page*Width + blk*BlockSize
	if err := e.data(e.fb[off : off+BlockSize]); err != nil {
		// The column pointer has moved an unknown amount.
		e.stale[page] |= 1 << blk
		return err
	}
	copy(e.shadow[off:off+BlockSize], e.fb[off:off+BlockSize])
	e.stale[page] &^= 1 << blk
	e.dirty[page] &^= 1 << blk
	e.stats.Transfers++
	e.stats.Bytes += BlockSize
	return nil
}

// FlushFull transmits the whole framebuffer page by page and clears the dirty
// map for every page that went through. Pages that failed stay dirty and are
// treated as unknown on the panel.
func (e *Engine) FlushFull() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	e.commit()

	var errs []error
	for page := 0; page < Pages; page++ {
		if err := e.sendPage(page); err != nil {
			e.stats.Failures++
			e.stale[page] = 0xFFFF
			e.dirty[page] = 0xFFFF
			errs = append(errs, fmt.Errorf("display: page %d: %w", page, err))
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) sendPage(page int) error {
	if err := e.command(cmdColumnAddr, 0, Width-1, cmdPageAddr, byte(page), byte(page)); err != nil {
		return err
	}
	off := page * Width
	if err := e.data(e.fb[off : off+Width]); err != nil {
		return err
	}
	copy(e.shadow[off:off+Width], e.fb[off:off+Width])
	e.stale[page] = 0
	e.dirty[page] = 0
	e.stats.Transfers++
	e.stats.Bytes += Width
	return nil
}

// Sleep turns the panel off. RAM and the framebuffer are untouched.
func (e *Engine) Sleep() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if err := e.command(cmdDisplayOff); err != nil {
		return fmt.Errorf("display: sleep: %w", err)
	}
	e.asleep = true
	return nil
}

// Wake turns the panel back on.
func (e *Engine) Wake() error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if err := e.command(cmdDisplayOn); err != nil {
		return fmt.Errorf("display: wake: %w", err)
	}
	e.asleep = false
	return nil
}

// Asleep reports whether Sleep was the last power command to succeed.
func (e *Engine) Asleep() bool { return e.asleep }

// SetContrast programs the panel contrast (0-255).
func (e *Engine) SetContrast(v byte) error {
	if !e.initialized {
		return ErrNotInitialized
	}
	if err := e.command(cmdSetContrast, v); err != nil {
		return fmt.Errorf("display: set contrast: %w", err)
	}
	e.contrast = v
	return nil
}

// Contrast returns the last contrast programmed.
func (e *Engine) Contrast() byte { return e.contrast }

// Bytes returns a copy of the framebuffer.
func (e *Engine) Bytes() []byte {
	out := make([]byte, FramebufferSize)
	copy(out, e.fb[:])
	return out
}

// Dirty reports whether block (col, page) has unflushed changes. col is the
// block column, 0..BlocksPerPage-1.
func (e *Engine) Dirty(col, page int) bool {
	if col < 0 || col >= BlocksPerPage || page < 0 || page >= Pages {
		return false
	}
	e.commit()
	return e.dirty[page]&(1<<col) != 0
}

// DirtyCount returns the number of dirty blocks.
func (e *Engine) DirtyCount() int {
	e.commit()
	n := 0
	for _, m := range e.dirty {
		for ; m != 0; m &= m - 1 {
			n++
		}
	}
	return n
}

// Stats returns bus counters.
func (e *Engine) Stats() Stats { return e.stats }

// commit recomputes dirty flags for blocks written since the last commit.
// A block is dirty when it differs from the panel or the panel is unknown.
func (e *Engine) commit() {
	for page, mask := range e.touched {
		for blk := 0; mask != 0; blk++ {
			bit := uint16(1) << blk
			if mask&bit == 0 {
				continue
			}
			mask &^= bit
			off := page*Width + blk*BlockSize
			if e.stale[page]&bit != 0 || !bytes.Equal(e.fb[off:off+BlockSize], e.shadow[off:off+BlockSize]) {
				e.dirty[page] |= bit
			} else {
				e.dirty[page] &^= bit
			}
		}
		e.touched[page] = 0
	}
}
