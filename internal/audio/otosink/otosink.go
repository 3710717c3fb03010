// Package otosink plays PCM on the local sound card through oto.
//
// It lives apart from package audio so tests and headless builds never need
// cgo or an ALSA device.
package otosink

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"github.com/micro-nova/btplayer/internal/events"
)

// DefaultBufferMS is how much audio Feed may queue ahead of the device.
const DefaultBufferMS = 500

// Sink is an audio.Sink backed by an oto player. The player pulls from an
// internal queue; when the queue runs dry it plays silence and posts one
// AudioUnderrun event per dry spell.
type Sink struct {
	ctx    *oto.Context
	player *oto.Player
	out    events.Poster

	mu       sync.Mutex
	queue    []byte
	limit    int
	starved  bool
	underrun atomic.Uint64
}

// New opens the default output device with 16-bit little endian samples.
func New(sampleRate, channels int, out events.Poster) (*Sink, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("otosink: %w", err)
	}
	<-ready

	s := &Sink{
		ctx:   ctx,
		out:   out,
		limit: sampleRate * channels * 2 * DefaultBufferMS / 1000,
	}
	s.player = ctx.NewPlayer(s)
	s.player.Play()
	slog.Info("otosink: output ready", "rate", sampleRate, "channels", channels)
	return s, nil
}

// Read feeds the oto player. It never blocks.
func (s *Sink) Read(p []byte) (int, error) {
	s.mu.Lock()
	n := copy(p, s.queue)
	s.queue = s.queue[n:]
	dry := n < len(p)
	first := dry && !s.starved
	s.starved = dry
	s.mu.Unlock()

	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	if first {
		s.underrun.Add(1)
		if s.out != nil {
			if err := s.out.Post(events.Event{Kind: events.AudioUnderrun}); err != nil {
				slog.Debug("otosink: underrun event dropped", "err", err)
			}
		}
	}
	return len(p), nil
}

// Connected always reports true: the sound card does not come and go.
func (s *Sink) Connected() bool { return true }

// Feed queues samples. When the queue is full the oldest audio is dropped.
func (s *Sink) Feed(samples []int16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range samples {
		s.queue = binary.LittleEndian.AppendUint16(s.queue, uint16(v))
	}
	if over := len(s.queue) - s.limit; over > 0 {
		over += over % 2
		s.queue = append(s.queue[:0], s.queue[over:]...)
	}
	return nil
}

func (s *Sink) SetVolume(percent int) error {
	percent = min(max(percent, 0), 100)
	s.player.SetVolume(float64(percent) / 100)
	return nil
}

// Underruns returns the number of dry spells so far.
func (s *Sink) Underruns() uint64 { return s.underrun.Load() }

// Close stops playback.
func (s *Sink) Close() error {
	return s.player.Close()
}
