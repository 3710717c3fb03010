// Package audio holds the decoder and sink collaborators of the playback
// controller.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

var (
	ErrNotOpen     = errors.New("audio: decoder not open")
	ErrUnsupported = errors.New("audio: unsupported format")
)

// Source is the byte stream of one open track. storage.Dir implements it.
type Source interface {
	Open(name string) error
	io.ReadSeeker
	Close() error
}

type format uint8

const (
	formatNone format = iota
	formatMP3
	formatWAV
)

// Supported reports whether name has an extension FileDecoder can play.
func Supported(name string) bool {
	return formatOf(name) != formatNone
}

func formatOf(name string) format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp3":
		return formatMP3
	case ".wav":
		return formatWAV
	}
	return formatNone
}

// FileDecoder decodes MP3 (go-mp3) and WAV (go-audio/wav) tracks to
// interleaved 16-bit PCM. Position is derived from decoded frames.
type FileDecoder struct {
	src Source

	kind     format
	mp3      *mp3.Decoder
	wav      *wav.Decoder
	ibuf     *goaudio.IntBuffer
	raw      []byte
	depth    int
	rate     int
	channels int
	duration uint32
	frames   int64 // per-channel samples decoded since Open
}

// NewFileDecoder creates a decoder reading tracks through src.
func NewFileDecoder(src Source) *FileDecoder {
	return &FileDecoder{src: src}
}

// Open closes any current track and opens name.
func (d *FileDecoder) Open(name string) error {
	if d.kind != formatNone {
		_ = d.Close()
	}
	kind := formatOf(name)
	if kind == formatNone {
		return fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	if err := d.src.Open(name); err != nil {
		return fmt.Errorf("audio: open %s: %w", name, err)
	}

	var err error
	switch kind {
	case formatMP3:
		err = d.openMP3()
	case formatWAV:
		err = d.openWAV()
	}
	if err != nil {
		_ = d.src.Close()
		return fmt.Errorf("audio: %s: %w", name, err)
	}
	d.kind = kind
	d.frames = 0
	return nil
}

func (d *FileDecoder) openMP3() error {
	dec, err := mp3.NewDecoder(d.src)
	if err != nil {
		return fmt.Errorf("mp3: %w", err)
	}
	// go-mp3 always produces 16-bit little endian stereo.
	d.mp3 = dec
	d.rate = dec.SampleRate()
	d.channels = 2
	d.depth = 16
	d.duration = 0
	if n := dec.Length(); n > 0 && d.rate > 0 {
		d.duration = uint32(n / 4 * 1000 / int64(d.rate))
	}
	return nil
}

func (d *FileDecoder) openWAV() error {
	dec := wav.NewDecoder(d.src)
	if !dec.IsValidFile() {
		return errors.New("wav: not a valid wav file")
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d-bit wav", ErrUnsupported, dec.BitDepth)
	}
	if err := dec.FwdToPCM(); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	d.wav = dec
	d.rate = int(dec.SampleRate)
	d.channels = int(dec.NumChans)
	d.depth = int(dec.BitDepth)
	d.duration = 0
	if dur, err := dec.Duration(); err == nil {
		d.duration = uint32(dur / time.Millisecond)
	}
	d.ibuf = &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: d.channels, SampleRate: d.rate},
	}
	return nil
}

// DecodeNext fills buf with interleaved samples. It returns io.EOF when the
// track has no more audio.
func (d *FileDecoder) DecodeNext(buf []int16) (int, error) {
	var n int
	var err error
	switch d.kind {
	case formatMP3:
		n, err = d.decodeMP3(buf)
	case formatWAV:
		n, err = d.decodeWAV(buf)
	default:
		return 0, ErrNotOpen
	}
	if d.channels > 0 {
		d.frames += int64(n / d.channels)
	}
	return n, err
}

func (d *FileDecoder) decodeMP3(buf []int16) (int, error) {
	want := len(buf) * 2
	if cap(d.raw) < want {
		d.raw = make([]byte, want)
	}
	raw := d.raw[:want]
	got, err := io.ReadFull(d.mp3, raw)
	n := got / 2
	for i := 0; i < n; i++ {
		buf[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		if n > 0 {
			return n, nil
		}
		return 0, io.EOF
	}
	return n, fmt.Errorf("audio: mp3: %w", err)
}

func (d *FileDecoder) decodeWAV(buf []int16) (int, error) {
	if cap(d.ibuf.Data) < len(buf) {
		d.ibuf.Data = make([]int, len(buf))
	}
	d.ibuf.Data = d.ibuf.Data[:len(buf)]
	n, err := d.wav.PCMBuffer(d.ibuf)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("audio: wav: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	for i, v := range d.ibuf.Data[:n] {
		buf[i] = to16(v, d.depth)
	}
	return n, nil
}

func to16(v, depth int) int16 {
	switch depth {
	case 8:
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	}
	return int16(v)
}

func (d *FileDecoder) DurationMS() uint32 { return d.duration }

// PositionMS is the timestamp of the last decoded frame.
func (d *FileDecoder) PositionMS() uint32 {
	if d.rate <= 0 {
		return 0
	}
	return uint32(d.frames * 1000 / int64(d.rate))
}

func (d *FileDecoder) SampleRate() int { return d.rate }
func (d *FileDecoder) Channels() int   { return d.channels }

// Close releases the current track. Closing a closed decoder is a no-op.
func (d *FileDecoder) Close() error {
	if d.kind == formatNone {
		return nil
	}
	d.kind = formatNone
	d.mp3 = nil
	d.wav = nil
	d.rate, d.channels, d.duration, d.frames = 0, 0, 0, 0
	return d.src.Close()
}
