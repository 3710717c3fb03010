package hardware

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3"
)

// MockPin is a thread-safe Pin whose level is set by the test.
// It starts High, which is a released button on active-low wiring.
type MockPin struct {
	mu    sync.Mutex
	level Level
	reads int
}

// NewMockPin creates a MockPin at the High level.
func NewMockPin() *MockPin {
	return &MockPin{level: High}
}

// Set changes the level returned by subsequent reads.
func (p *MockPin) Set(l Level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = l
}

func (p *MockPin) Read() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	return p.level
}

// Reads returns how many times the pin has been sampled.
func (p *MockPin) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

// MockConn is a thread-safe in-memory bus connection that records every
// write. It implements periph's conn.Conn so it can stand in for an i2c.Dev.
type MockConn struct {
	mu        sync.Mutex
	writes    [][]byte
	failWrite bool
	failAfter int // fail every write once this many have succeeded; <0 disables
	failAt    map[int]bool
}

// NewMockConn creates a MockConn that accepts every write.
func NewMockConn() *MockConn {
	return &MockConn{failAfter: -1, failAt: make(map[int]bool)}
}

// SetFailWrite configures the mock to fail all writes.
func (m *MockConn) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// SetFailAfter makes every write after the first n successful ones fail.
// A negative n disables it.
func (m *MockConn) SetFailAfter(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAfter = n
}

// FailNth makes the n-th Tx call (0-based, counted from now) fail once.
func (m *MockConn) FailNth(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAt[len(m.writes)+n] = true
}

// Tx records w. Reads are not supported by the display and r must be empty.
func (m *MockConn) Tx(w, r []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := len(m.writes)
	if m.failWrite || m.failAt[idx] || (m.failAfter >= 0 && m.successes() >= m.failAfter) {
		delete(m.failAt, idx)
		m.writes = append(m.writes, nil)
		return ErrHardware(fmt.Sprintf("mock: write %d failed", idx))
	}
	if len(r) != 0 {
		return ErrHardware("mock: reads not supported")
	}
	cp := make([]byte, len(w))
	copy(cp, w)
	m.writes = append(m.writes, cp)
	return nil
}

func (m *MockConn) successes() int {
	n := 0
	for _, w := range m.writes {
		if w != nil {
			n++
		}
	}
	return n
}

func (m *MockConn) String() string { return "mock-i2c" }

func (m *MockConn) Duplex() conn.Duplex { return conn.Half }

// Writes returns copies of every successful write, in order.
func (m *MockConn) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, 0, len(m.writes))
	for _, w := range m.writes {
		if w != nil {
			out = append(out, append([]byte(nil), w...))
		}
	}
	return out
}

// TxCount returns the number of Tx calls, failed ones included.
func (m *MockConn) TxCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

// Reset forgets all recorded writes and failure plans.
func (m *MockConn) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
	m.failWrite = false
	m.failAfter = -1
	m.failAt = make(map[int]bool)
}

// HardwareError is returned when a hardware operation fails.
type HardwareError struct {
	msg string
}

func (e HardwareError) Error() string { return e.msg }

// ErrHardware creates a new hardware error.
func ErrHardware(msg string) error { return HardwareError{msg: msg} }

var _ conn.Conn = (*MockConn)(nil)
