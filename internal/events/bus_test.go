package events_test

import (
	"testing"
	"time"

	"github.com/micro-nova/btplayer/internal/events"
	"github.com/micro-nova/btplayer/internal/models"
)

func TestBusSubscribePublish(t *testing.T) {
	bus := events.NewBus()

	ch := bus.Subscribe("test1")

	st := models.DefaultStatus()
	st.State = "playing"
	st.Track = "song.mp3"

	bus.Publish(st)

	select {
	case got := <-ch:
		if got.Track != "song.mp3" {
			t.Errorf("got track %q, want %q", got.Track, "song.mp3")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for status")
	}
}

func TestBusSkipsUnchangedStatus(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("dup")

	// Same as the bus's initial snapshot, so nothing is delivered.
	bus.Publish(models.DefaultStatus())

	select {
	case got := <-ch:
		t.Fatalf("unexpected delivery %+v", got)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBusUnsubscribe(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("test-unsub")

	bus.Unsubscribe("test-unsub")

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed after unsubscribe")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := events.NewBus()
	ch := bus.Subscribe("slow-reader")

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			st := models.DefaultStatus()
			st.PositionMS = uint32(i + 1)
			bus.Publish(st)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Publish blocked for too long (should drop)")
	}

	if got := bus.Last().PositionMS; got != 20 {
		t.Errorf("Last().PositionMS = %d, want 20", got)
	}
	bus.Unsubscribe("slow-reader")
	_ = ch
}

func TestBusSubscriberCount(t *testing.T) {
	bus := events.NewBus()
	if n := bus.SubscriberCount(); n != 0 {
		t.Errorf("expected 0 subscribers, got %d", n)
	}
	bus.Subscribe("s1")
	bus.Subscribe("s2")
	if n := bus.SubscriberCount(); n != 2 {
		t.Errorf("expected 2 subscribers, got %d", n)
	}
	bus.Unsubscribe("s1")
	if n := bus.SubscriberCount(); n != 1 {
		t.Errorf("expected 1 subscriber, got %d", n)
	}
}
