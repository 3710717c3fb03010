package hardware_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/micro-nova/btplayer/internal/hardware"
)

func TestKeyPinsPressHoldsLow(t *testing.T) {
	k := hardware.NewKeyPins(50 * time.Millisecond)
	play := k.Pin(1)
	if play.Read() != hardware.High {
		t.Fatal("play pin should start high")
	}
	if err := k.HandleKey('s'); err != nil {
		t.Fatalf("HandleKey: %v", err)
	}
	if play.Read() != hardware.Low {
		t.Error("play pin should be low right after the key")
	}
	if k.Pin(0).Read() != hardware.High || k.Pin(2).Read() != hardware.High {
		t.Error("other pins should stay high")
	}
	time.Sleep(70 * time.Millisecond)
	if play.Read() != hardware.High {
		t.Error("play pin should return high after the hold time")
	}
}

func TestKeyPinsRunQuit(t *testing.T) {
	k := hardware.NewKeyPins(time.Second)
	err := k.Run(context.Background(), strings.NewReader("adq"))
	if !errors.Is(err, hardware.ErrQuit) {
		t.Fatalf("Run error = %v, want ErrQuit", err)
	}
	if k.Pin(0).Read() != hardware.Low || k.Pin(2).Read() != hardware.Low {
		t.Error("keys before q should have pressed prev and next")
	}
	if k.Pin(1).Read() != hardware.High {
		t.Error("play should not be pressed")
	}
}

func TestKeyPinsRunEOF(t *testing.T) {
	k := hardware.NewKeyPins(0)
	if err := k.Run(context.Background(), strings.NewReader("x")); err != nil {
		t.Errorf("Run at EOF error = %v, want nil", err)
	}
}

func TestKeyPinsRunReturnsOnCancelWhileReadBlocks(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	k := hardware.NewKeyPins(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- k.Run(ctx, pr) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run after cancel error = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel while Read was blocked")
	}
}
