package buttons_test

import (
	"context"
	"testing"
	"time"

	"github.com/micro-nova/btplayer/internal/buttons"
	"github.com/micro-nova/btplayer/internal/events"
	"github.com/micro-nova/btplayer/internal/hardware"
)

type tickEvent struct {
	tick int
	ev   events.Event
}

type rig struct {
	pins [buttons.NumButtons]*hardware.MockPin
	ch   *events.Channel
	eng  *buttons.Engine
	tick int
	got  []tickEvent
}

func newRig(t *testing.T, window int) *rig {
	t.Helper()
	r := &rig{ch: events.NewChannel(0)}
	var pins [buttons.NumButtons]hardware.Pin
	for i := range r.pins {
		r.pins[i] = hardware.NewMockPin()
		pins[i] = r.pins[i]
	}
	r.eng = buttons.New(pins, r.ch, window)
	return r
}

// run ticks the engine n times with button b at level l, collecting events
// with the tick number they appeared on.
func (r *rig) run(b buttons.Button, l hardware.Level, n int) {
	r.pins[b].Set(l)
	for i := 0; i < n; i++ {
		r.eng.Tick()
		for {
			ev, err := r.ch.TryReceive()
			if err != nil {
				break
			}
			r.got = append(r.got, tickEvent{tick: r.tick, ev: ev})
		}
		r.tick++
	}
}

func TestPlayHeldScenario(t *testing.T) {
	r := newRig(t, 20)

	r.run(buttons.Play, hardware.Low, 25)
	r.run(buttons.Play, hardware.High, 30)

	if len(r.got) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(r.got), r.got)
	}
	press, release := r.got[0], r.got[1]
	if press.ev.Kind != events.ButtonPlay || press.ev.Param != events.ParamPressed {
		t.Errorf("first event = %v, want button-play pressed", press.ev)
	}
	if press.tick != 20 {
		t.Errorf("press confirmed at tick %d, want 20", press.tick)
	}
	if release.ev.Kind != events.ButtonPlay || release.ev.Param != events.ParamReleased {
		t.Errorf("second event = %v, want button-play released", release.ev)
	}
	if release.tick != 45 {
		t.Errorf("release confirmed at tick %d, want 45", release.tick)
	}
	if r.eng.Confirmed(buttons.Play) != buttons.Released {
		t.Error("play should be confirmed released")
	}
}

func TestShortBounceNeverSurfaces(t *testing.T) {
	for bounce := 1; bounce < 20; bounce++ {
		r := newRig(t, 20)
		for cycle := 0; cycle < 5; cycle++ {
			r.run(buttons.Next, hardware.Low, bounce)
			r.run(buttons.Next, hardware.High, bounce)
		}
		r.run(buttons.Next, hardware.High, 40)
		if len(r.got) != 0 {
			t.Errorf("bounce of %d ticks produced events: %+v", bounce, r.got)
		}
		if r.eng.Confirmed(buttons.Next) != buttons.Released {
			t.Errorf("bounce of %d ticks changed confirmed state", bounce)
		}
	}
}

func TestStableLevelEmitsExactlyOnce(t *testing.T) {
	for _, hold := range []int{20, 21, 50, 200} {
		r := newRig(t, 20)
		r.run(buttons.Prev, hardware.Low, hold+1)
		if len(r.got) != 1 {
			t.Fatalf("hold %d: got %d events, want 1", hold, len(r.got))
		}
		if r.got[0].tick != 20 {
			t.Errorf("hold %d: event at tick %d, want 20", hold, r.got[0].tick)
		}
		if r.got[0].ev.Kind != events.ButtonPrev {
			t.Errorf("hold %d: kind = %v, want button-prev", hold, r.got[0].ev.Kind)
		}
	}
}

func TestBounceRestartsWindow(t *testing.T) {
	r := newRig(t, 20)
	r.run(buttons.Play, hardware.Low, 15)
	r.run(buttons.Play, hardware.High, 2)
	r.run(buttons.Play, hardware.Low, 30)

	if len(r.got) != 1 {
		t.Fatalf("got %d events, want 1", len(r.got))
	}
	// Last transition at tick 17, so the press is confirmed at 37.
	if r.got[0].tick != 37 {
		t.Errorf("press at tick %d, want 37", r.got[0].tick)
	}
}

func TestButtonsAreIndependent(t *testing.T) {
	r := newRig(t, 20)
	r.pins[buttons.Prev].Set(hardware.Low)
	r.run(buttons.Next, hardware.Low, 25)

	if len(r.got) != 2 {
		t.Fatalf("got %d events, want 2", len(r.got))
	}
	kinds := map[events.Kind]bool{}
	for _, g := range r.got {
		kinds[g.ev.Kind] = true
		if g.tick != 20 {
			t.Errorf("%v at tick %d, want 20", g.ev.Kind, g.tick)
		}
	}
	if !kinds[events.ButtonPrev] || !kinds[events.ButtonNext] {
		t.Errorf("missing kinds: %v", kinds)
	}
	if r.eng.Confirmed(buttons.Play) != buttons.Released {
		t.Error("play should be untouched")
	}
}

type fullPoster struct{ calls int }

func (f *fullPoster) Post(events.Event) error {
	f.calls++
	return events.ErrFull
}

func TestFullChannelStillCommits(t *testing.T) {
	out := &fullPoster{}
	pin := hardware.NewMockPin()
	eng := buttons.New([buttons.NumButtons]hardware.Pin{nil, pin, nil}, out, 5)

	pin.Set(hardware.Low)
	for i := 0; i < 10; i++ {
		eng.Tick()
	}

	if eng.Confirmed(buttons.Play) != buttons.Pressed {
		t.Error("confirmed state should commit even when the post fails")
	}
	if out.calls != 1 {
		t.Errorf("Post called %d times, want 1 (no retry)", out.calls)
	}
	if eng.Lost() != 1 {
		t.Errorf("Lost() = %d, want 1", eng.Lost())
	}
}

func TestSampleDoesNotAdvanceTime(t *testing.T) {
	r := newRig(t, 3)
	r.pins[buttons.Play].Set(hardware.Low)
	for i := 0; i < 10; i++ {
		r.eng.Sample()
	}
	if r.eng.Ticks() != 0 {
		t.Errorf("Ticks() = %d after Sample, want 0", r.eng.Ticks())
	}
	if r.ch.Pending() != 0 {
		t.Error("Sample alone must not confirm a press")
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	ch := events.NewChannel(0)
	pin := hardware.NewMockPin()
	eng := buttons.New([buttons.NumButtons]hardware.Pin{pin, nil, nil}, ch, 2)
	pin.Set(hardware.Low)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		eng.Run(ctx, time.Millisecond)
		close(done)
	}()

	ev, err := ch.WaitReceive(2 * time.Second)
	if err != nil {
		t.Fatalf("WaitReceive: %v", err)
	}
	if ev.Kind != events.ButtonPrev || ev.Param != events.ParamPressed {
		t.Errorf("got %v, want button-prev pressed", ev)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not exit after cancel")
	}
}

func TestWindowTicks(t *testing.T) {
	tests := []struct {
		debounce, period time.Duration
		want             int
	}{
		{20 * time.Millisecond, time.Millisecond, 20},
		{20 * time.Millisecond, 5 * time.Millisecond, 4},
		{21 * time.Millisecond, 5 * time.Millisecond, 5},
		{0, time.Millisecond, buttons.DefaultWindow},
	}
	for _, tt := range tests {
		if got := buttons.WindowTicks(tt.debounce, tt.period); got != tt.want {
			t.Errorf("WindowTicks(%v, %v) = %d, want %d", tt.debounce, tt.period, got, tt.want)
		}
	}
}

func TestButtonKinds(t *testing.T) {
	for _, b := range []buttons.Button{buttons.Prev, buttons.Play, buttons.Next} {
		got, ok := buttons.FromKind(b.Kind())
		if !ok || got != b {
			t.Errorf("FromKind(%v.Kind()) = %v, %v", b, got, ok)
		}
		parsed, ok := buttons.Parse(b.String())
		if !ok || parsed != b {
			t.Errorf("Parse(%q) = %v, %v", b.String(), parsed, ok)
		}
	}
	if _, ok := buttons.FromKind(events.PlaybackNext); ok {
		t.Error("FromKind accepted a non-button kind")
	}
}
