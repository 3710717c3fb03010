package audio

import (
	"errors"
	"sync"
)

// ErrDisconnected is returned by Feed on a sink without a connection.
var ErrDisconnected = errors.New("audio: sink not connected")

// NullSink discards audio. It counts what it is fed and can be told to fail,
// which makes it the sink for mock mode and tests.
type NullSink struct {
	mu        sync.Mutex
	connected bool
	samples   int
	feedErr   error
	volume    int
}

// NewNullSink creates a connected NullSink.
func NewNullSink() *NullSink {
	return &NullSink{connected: true, volume: -1}
}

func (s *NullSink) SetConnected(c bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = c
}

// SetFeedError makes every Feed return err until it is set to nil.
func (s *NullSink) SetFeedError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feedErr = err
}

func (s *NullSink) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *NullSink) Feed(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feedErr != nil {
		return s.feedErr
	}
	if !s.connected {
		return ErrDisconnected
	}
	s.samples += len(samples)
	return nil
}

func (s *NullSink) SetVolume(percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = percent
	return nil
}

// Samples returns the number of samples accepted so far.
func (s *NullSink) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}

// Volume returns the last volume set, -1 if never set.
func (s *NullSink) Volume() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Link reports whether the wireless link to the speaker is up.
type Link interface {
	Connected() bool
}

// Sink is what LinkedSink forwards to.
type Sink interface {
	Connected() bool
	Feed(samples []int16) error
	SetVolume(percent int) error
}

// LinkedSink gates an output sink on the wireless link state, so playback
// only starts when the speaker is connected.
type LinkedSink struct {
	link Link
	out  Sink
}

func NewLinkedSink(link Link, out Sink) *LinkedSink {
	return &LinkedSink{link: link, out: out}
}

func (s *LinkedSink) Connected() bool {
	return s.link.Connected() && s.out.Connected()
}

func (s *LinkedSink) Feed(samples []int16) error {
	if !s.link.Connected() {
		return ErrDisconnected
	}
	return s.out.Feed(samples)
}

func (s *LinkedSink) SetVolume(percent int) error {
	return s.out.SetVolume(percent)
}
