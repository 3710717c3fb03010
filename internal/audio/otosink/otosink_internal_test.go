package otosink

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/micro-nova/btplayer/internal/events"
)

func fullChannel(t *testing.T) *events.Channel {
	t.Helper()
	ch := events.NewChannel(0)
	for i := 0; i < ch.Cap(); i++ {
		if err := ch.Post(events.Event{Kind: events.DisplayRedraw}); err != nil {
			t.Fatal(err)
		}
	}
	return ch
}

func TestReadPostsOneUnderrunPerDrySpell(t *testing.T) {
	ch := events.NewChannel(0)
	s := &Sink{out: ch, limit: 64}

	p := make([]byte, 8)
	s.Read(p)
	s.Read(p)
	if got := s.Underruns(); got != 1 {
		t.Fatalf("underruns = %d, want 1", got)
	}
	if ev, err := ch.TryReceive(); err != nil || ev.Kind != events.AudioUnderrun {
		t.Fatalf("posted %v, %v; want audio-underrun", ev, err)
	}

	if err := s.Feed([]int16{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	s.Read(p)
	s.Read(p)
	if got := s.Underruns(); got != 2 {
		t.Errorf("underruns = %d, want 2 after a second dry spell", got)
	}
}

func TestReadLogsDroppedUnderrun(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	ch := fullChannel(t)
	s := &Sink{out: ch, limit: 64}
	s.Read(make([]byte, 8))

	if !strings.Contains(buf.String(), "otosink: underrun event dropped") {
		t.Errorf("dropped underrun not logged; got %q", buf.String())
	}
	if ch.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", ch.Dropped())
	}
}

func TestFeedTrimsOldestAudio(t *testing.T) {
	s := &Sink{limit: 4}
	if err := s.Feed([]int16{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	p := make([]byte, 4)
	s.Read(p)
	// Only the newest two samples fit.
	if p[0] != 2 || p[2] != 3 {
		t.Errorf("queue = %v, want samples 2 and 3", p)
	}
}
