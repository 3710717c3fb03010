package hardware_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/micro-nova/btplayer/internal/hardware"
)

func TestMockPinDefaultsHigh(t *testing.T) {
	p := hardware.NewMockPin()
	if got := p.Read(); got != hardware.High {
		t.Errorf("Read() = %v, want high", got)
	}
	p.Set(hardware.Low)
	if got := p.Read(); got != hardware.Low {
		t.Errorf("Read() after Set(Low) = %v, want low", got)
	}
	if p.Reads() != 2 {
		t.Errorf("Reads() = %d, want 2", p.Reads())
	}
}

func TestMockConnRecordsWrites(t *testing.T) {
	m := hardware.NewMockConn()
	if err := m.Tx([]byte{0x00, 0xAE}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if err := m.Tx([]byte{0x40, 1, 2, 3}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	w := m.Writes()
	if len(w) != 2 {
		t.Fatalf("Writes() len = %d, want 2", len(w))
	}
	if !bytes.Equal(w[1], []byte{0x40, 1, 2, 3}) {
		t.Errorf("second write = % x", w[1])
	}
}

func TestMockConnFailWrite(t *testing.T) {
	m := hardware.NewMockConn()
	m.SetFailWrite(true)
	err := m.Tx([]byte{0x00}, nil)
	var hwErr hardware.HardwareError
	if !errors.As(err, &hwErr) {
		t.Fatalf("Tx error = %v, want HardwareError", err)
	}
	if len(m.Writes()) != 0 {
		t.Error("failed write should not be recorded as a success")
	}
	if m.TxCount() != 1 {
		t.Errorf("TxCount() = %d, want 1", m.TxCount())
	}
}

func TestMockConnFailNth(t *testing.T) {
	m := hardware.NewMockConn()
	m.FailNth(1)
	if err := m.Tx([]byte{1}, nil); err != nil {
		t.Fatalf("first Tx: %v", err)
	}
	if err := m.Tx([]byte{2}, nil); err == nil {
		t.Fatal("second Tx should fail")
	}
	if err := m.Tx([]byte{3}, nil); err != nil {
		t.Fatalf("third Tx: %v", err)
	}
	if len(m.Writes()) != 2 {
		t.Errorf("Writes() len = %d, want 2", len(m.Writes()))
	}
}

func TestMockConnFailAfter(t *testing.T) {
	m := hardware.NewMockConn()
	m.SetFailAfter(2)
	for i := 0; i < 4; i++ {
		err := m.Tx([]byte{byte(i)}, nil)
		if (i < 2) != (err == nil) {
			t.Errorf("Tx #%d error = %v", i, err)
		}
	}
}
