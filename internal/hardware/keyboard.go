package hardware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// ErrQuit is returned by KeyPins.Run when the user asks to quit.
var ErrQuit = errors.New("keyboard: quit requested")

// DefaultKeyHold is how long a key press holds its virtual pin low. It has
// to outlast the debounce window for the press to register.
const DefaultKeyHold = 80 * time.Millisecond

// KeyPins turns terminal key presses into three virtual active-low button
// pins (prev, play, next) for development without a button board.
//
//	a or ,   prev
//	s or ␣   play/pause
//	d or .   next
//	q or ^C  quit
type KeyPins struct {
	mu    sync.Mutex
	until [3]time.Time
	hold  time.Duration
	now   func() time.Time
}

// NewKeyPins creates virtual pins that stay low for hold after each key.
func NewKeyPins(hold time.Duration) *KeyPins {
	if hold <= 0 {
		hold = DefaultKeyHold
	}
	return &KeyPins{hold: hold, now: time.Now}
}

// Pin returns the virtual pin for button index i (0 prev, 1 play, 2 next).
func (k *KeyPins) Pin(i int) Pin {
	return keyPin{k: k, idx: i}
}

// Press holds pin i low for the configured hold time.
func (k *KeyPins) Press(i int) {
	if i < 0 || i >= len(k.until) {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.until[i] = k.now().Add(k.hold)
}

func (k *KeyPins) level(i int) Level {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.now().Before(k.until[i]) {
		return Low
	}
	return High
}

// HandleKey applies a single key byte. It returns ErrQuit for the quit keys.
func (k *KeyPins) HandleKey(b byte) error {
	switch b {
	case 'a', 'A', ',':
		k.Press(0)
	case 's', 'S', ' ':
		k.Press(1)
	case 'd', 'D', '.':
		k.Press(2)
	case 'q', 'Q', 3:
		return ErrQuit
	}
	return nil
}

// Run reads keys from r until ctx is cancelled, r fails, or a quit key is read.
// It returns as soon as ctx is done. A Read already blocked on r stays parked
// in a helper goroutine until r yields or is closed.
func (k *KeyPins) Run(ctx context.Context, r io.Reader) error {
	type chunk struct {
		b   []byte
		err error
	}
	reads := make(chan chunk)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		buf := make([]byte, 16)
		for {
			n, err := r.Read(buf)
			c := chunk{b: append([]byte(nil), buf[:n]...), err: err}
			select {
			case reads <- c:
			case <-stop:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-reads:
			for _, b := range c.b {
				if kerr := k.HandleKey(b); kerr != nil {
					return kerr
				}
			}
			if c.err != nil {
				if errors.Is(c.err, io.EOF) {
					return nil
				}
				return fmt.Errorf("keyboard: read: %w", c.err)
			}
		}
	}
}

// RawStdin switches stdin to raw mode so single key presses are delivered
// without Enter. The returned function restores the terminal.
func RawStdin() (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("keyboard: stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("keyboard: make raw: %w", err)
	}
	slog.Info("keyboard: virtual buttons active", "prev", "a", "play", "s", "next", "d", "quit", "q")
	return func() {
		if err := term.Restore(fd, state); err != nil {
			slog.Warn("keyboard: restore terminal failed", "err", err)
		}
	}, nil
}

type keyPin struct {
	k   *KeyPins
	idx int
}

func (p keyPin) Read() Level { return p.k.level(p.idx) }
