// Package events carries typed notifications between pin handlers, polling
// tasks and the orchestration loop, and fans player status out to API clients.
package events

import "fmt"

// Kind identifies what an Event is about. Values are grouped by the
// component that posts them.
type Kind uint8

const (
	ButtonPrev Kind = 0x10
	ButtonPlay Kind = 0x11
	ButtonNext Kind = 0x12

	PlaybackPlay  Kind = 0x20
	PlaybackPause Kind = 0x21
	PlaybackNext  Kind = 0x22
	PlaybackPrev  Kind = 0x23
	PlaybackStop  Kind = 0x24

	AudioReady    Kind = 0x30
	AudioUnderrun Kind = 0x31
	AudioError    Kind = 0x32

	LinkConnected    Kind = 0x40
	LinkDisconnected Kind = 0x41
	LinkError        Kind = 0x42

	DisplayRedraw      Kind = 0x50
	DisplayStateChange Kind = 0x51

	StorageLoaded   Kind = 0x60
	StorageNotFound Kind = 0x61
	StorageError    Kind = 0x62
)

var kindNames = map[Kind]string{
	ButtonPrev:         "button-prev",
	ButtonPlay:         "button-play",
	ButtonNext:         "button-next",
	PlaybackPlay:       "playback-play",
	PlaybackPause:      "playback-pause",
	PlaybackNext:       "playback-next",
	PlaybackPrev:       "playback-prev",
	PlaybackStop:       "playback-stop",
	AudioReady:         "audio-ready",
	AudioUnderrun:      "audio-underrun",
	AudioError:         "audio-error",
	LinkConnected:      "link-connected",
	LinkDisconnected:   "link-disconnected",
	LinkError:          "link-error",
	DisplayRedraw:      "display-redraw",
	DisplayStateChange: "display-state-change",
	StorageLoaded:      "storage-loaded",
	StorageNotFound:    "storage-not-found",
	StorageError:       "storage-error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(0x%02x)", uint8(k))
}

// IsButton reports whether k is one of the button kinds.
func (k Kind) IsButton() bool { return k >= ButtonPrev && k <= ButtonNext }

// Button event parameters.
const (
	ParamReleased uint32 = 0
	ParamPressed  uint32 = 1
)

// Display state change parameters.
const (
	ParamDisplaySleep uint32 = 0
	ParamDisplayWake  uint32 = 1
)

// Event is a tagged notification with a single 32-bit parameter.
// It is passed by value; the channel never shares storage with a poster.
type Event struct {
	Kind  Kind
	Param uint32
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d)", e.Kind, e.Param)
}

// Poster is implemented by anything events can be posted to.
type Poster interface {
	Post(Event) error
}
