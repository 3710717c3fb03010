package display_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/micro-nova/btplayer/internal/display"
	"github.com/micro-nova/btplayer/internal/hardware"
)

func newEngine(t *testing.T, opts display.Options) (*display.Engine, *hardware.MockConn) {
	t.Helper()
	bus := hardware.NewMockConn()
	e := display.New(bus, opts)
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	bus.Reset()
	return e, bus
}

// dataWrites returns the payload of every GDDRAM write.
func dataWrites(bus *hardware.MockConn) [][]byte {
	var out [][]byte
	for _, w := range bus.Writes() {
		if len(w) > 0 && w[0] == 0x40 {
			out = append(out, w[1:])
		}
	}
	return out
}

func TestInitSendsConfigurationAndClears(t *testing.T) {
	bus := hardware.NewMockConn()
	e := display.New(bus, display.Options{})
	if err := e.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	writes := bus.Writes()
	if len(writes) == 0 || writes[0][0] != 0x00 || writes[0][1] != 0xAE {
		t.Fatalf("first write = % x, want command stream starting with display off", writes[0])
	}
	last := writes[0][len(writes[0])-1]
	if last != 0xAF {
		t.Errorf("init sequence ends with %#x, want display on", last)
	}
	data := bytes.Join(dataWrites(bus), nil)
	if len(data) != display.FramebufferSize {
		t.Fatalf("init cleared %d bytes, want %d", len(data), display.FramebufferSize)
	}
	if e.DirtyCount() != 0 {
		t.Errorf("DirtyCount after Init = %d, want 0", e.DirtyCount())
	}
}

func TestInitFailureIsReported(t *testing.T) {
	bus := hardware.NewMockConn()
	bus.SetFailWrite(true)
	e := display.New(bus, display.Options{})
	if err := e.Init(); err == nil {
		t.Fatal("Init succeeded on a failing bus")
	}
	if e.Initialized() {
		t.Error("engine reports initialized after failed Init")
	}
	if _, err := e.FlushPartial(); !errors.Is(err, display.ErrNotInitialized) {
		t.Errorf("FlushPartial err = %v, want ErrNotInitialized", err)
	}
}

func TestPixelMarksOnlyItsBlock(t *testing.T) {
	e, _ := newEngine(t, display.Options{})
	e.Pixel(17, 42, display.On)

	if !e.Dirty(2, 5) {
		t.Error("block (2,5) not dirty after pixel (17,42)")
	}
	if n := e.DirtyCount(); n != 1 {
		t.Errorf("DirtyCount = %d, want 1", n)
	}
	if e.PixelAt(17, 42) != display.On {
		t.Error("pixel not set")
	}
}

func TestFlushPartialIsIdempotent(t *testing.T) {
	e, bus := newEngine(t, display.Options{})
	e.FillRect(10, 10, 20, 5, display.On)

	sent, err := e.FlushPartial()
	if err != nil {
		t.Fatalf("FlushPartial: %v", err)
	}
	if sent == 0 {
		t.Fatal("first flush sent nothing")
	}
	if e.DirtyCount() != 0 {
		t.Errorf("DirtyCount after flush = %d", e.DirtyCount())
	}

	before := bus.TxCount()
	sent, err = e.FlushPartial()
	if err != nil || sent != 0 {
		t.Errorf("second flush = (%d, %v), want (0, nil)", sent, err)
	}
	if bus.TxCount() != before {
		t.Errorf("second flush made %d transfers", bus.TxCount()-before)
	}
}

func TestRedrawingSameContentStaysClean(t *testing.T) {
	e, _ := newEngine(t, display.Options{})
	e.Pixel(5, 5, display.On)
	if _, err := e.FlushPartial(); err != nil {
		t.Fatal(err)
	}

	e.Pixel(5, 5, display.On)
	e.Pixel(6, 5, display.On)
	e.Pixel(6, 5, display.Off)
	if n := e.DirtyCount(); n != 0 {
		t.Errorf("DirtyCount = %d after net-zero change, want 0", n)
	}
}

func TestFlushFullMatchesFramebuffer(t *testing.T) {
	e, bus := newEngine(t, display.Options{})
	e.Text(0, 0, "HELLO", display.On)
	e.Rect(0, 30, 128, 10, display.On)
	e.Pixel(127, 63, display.On)

	if err := e.FlushFull(); err != nil {
		t.Fatalf("FlushFull: %v", err)
	}
	got := bytes.Join(dataWrites(bus), nil)
	if !bytes.Equal(got, e.Bytes()) {
		t.Error("bytes on the bus differ from the framebuffer")
	}
	if e.DirtyCount() != 0 {
		t.Errorf("DirtyCount after FlushFull = %d", e.DirtyCount())
	}
}

func TestClearMarksEverythingDirty(t *testing.T) {
	e, _ := newEngine(t, display.Options{})
	e.Clear()
	if n := e.DirtyCount(); n != display.Pages*display.BlocksPerPage {
		t.Errorf("DirtyCount after Clear = %d, want all", n)
	}
	for _, b := range e.Bytes() {
		if b != 0 {
			t.Fatal("framebuffer not zeroed")
		}
	}
}

func TestOutOfRangeDrawingIsClipped(t *testing.T) {
	e, _ := newEngine(t, display.Options{})
	e.Pixel(-1, 0, display.On)
	e.Pixel(0, -1, display.On)
	e.Pixel(display.Width, 0, display.On)
	e.Pixel(0, display.Height, display.On)
	e.HLine(-10, 100, 50, display.On)
	e.Text(200, 0, "off screen", display.On)
	if n := e.DirtyCount(); n != 0 {
		t.Errorf("DirtyCount = %d after out-of-range drawing", n)
	}

	e.FillRect(120, 60, 20, 20, display.On)
	if e.PixelAt(127, 63) != display.On {
		t.Error("visible part of clipped rect not drawn")
	}
	if n := e.DirtyCount(); n != 1 {
		t.Errorf("DirtyCount = %d, want 1", n)
	}
}

func TestFailedTransferStaysDirty(t *testing.T) {
	e, bus := newEngine(t, display.Options{})
	e.Pixel(0, 0, display.On)
	e.Pixel(64, 0, display.On)

	// Block (0,0) sends command then data; fail its data write.
	bus.FailNth(1)
	sent, err := e.FlushPartial()
	if err == nil {
		t.Fatal("FlushPartial reported no error")
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}
	if !e.Dirty(0, 0) {
		t.Error("failed block lost its dirty flag")
	}
	if e.Dirty(8, 0) {
		t.Error("successful block still dirty")
	}

	sent, err = e.FlushPartial()
	if err != nil || sent != 1 {
		t.Errorf("retry = (%d, %v), want (1, nil)", sent, err)
	}
	if e.DirtyCount() != 0 {
		t.Error("retry left blocks dirty")
	}
}

func TestFailedBlockIsResentEvenIfReverted(t *testing.T) {
	e, bus := newEngine(t, display.Options{})
	e.Pixel(0, 0, display.On)
	bus.FailNth(1)
	if _, err := e.FlushPartial(); err == nil {
		t.Fatal("expected failure")
	}
	// The panel may hold garbage now, so reverting must not clean the block.
	e.Pixel(0, 0, display.Off)
	if !e.Dirty(0, 0) {
		t.Error("block with unknown panel content reported clean")
	}
}

func TestBandwidthBudgetDefersBlocks(t *testing.T) {
	e, _ := newEngine(t, display.Options{TransfersPerSecond: 0.001, Burst: 3})
	for x := 0; x < display.Width; x += display.BlockSize {
		e.Pixel(x, 0, display.On)
	}
	sent, err := e.FlushPartial()
	if err != nil {
		t.Fatalf("FlushPartial: %v", err)
	}
	if sent != 3 {
		t.Errorf("sent = %d, want burst of 3", sent)
	}
	if n := e.DirtyCount(); n != display.BlocksPerPage-3 {
		t.Errorf("DirtyCount = %d, want %d deferred", n, display.BlocksPerPage-3)
	}
	if e.Stats().Deferred == 0 {
		t.Error("Deferred counter not updated")
	}
}

func TestPowerAndContrast(t *testing.T) {
	e, bus := newEngine(t, display.Options{})
	if err := e.Sleep(); err != nil {
		t.Fatal(err)
	}
	if !e.Asleep() {
		t.Error("not asleep after Sleep")
	}
	if err := e.Wake(); err != nil {
		t.Fatal(err)
	}
	if err := e.SetContrast(0x10); err != nil {
		t.Fatal(err)
	}
	want := [][]byte{{0x00, 0xAE}, {0x00, 0xAF}, {0x00, 0x81, 0x10}}
	got := bus.Writes()
	if len(got) != len(want) {
		t.Fatalf("writes = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("write %d = % x, want % x", i, got[i], want[i])
		}
	}
	if e.Contrast() != 0x10 {
		t.Errorf("Contrast = %#x", e.Contrast())
	}
}

func TestTextAdvance(t *testing.T) {
	e, _ := newEngine(t, display.Options{})
	if w := e.Text(0, 0, "abc", display.On); w != 21 {
		t.Errorf("advance = %d, want 21", w)
	}
	if w := e.TextWidth("abcd"); w != 28 {
		t.Errorf("TextWidth = %d, want 28", w)
	}
	if e.DirtyCount() == 0 {
		t.Error("text drew nothing")
	}
}
