package playback

import "fmt"

// State is the playback state. The zero value is Idle.
type State uint8

const (
	Idle State = iota
	Loading
	Playing
	Paused
	Error
)

var stateNames = [...]string{"idle", "loading", "playing", "paused", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// Command is a user intent. None means no pending intent.
type Command uint8

const (
	None Command = iota
	Next
	Previous
	TogglePlayPause
	Stop
)

var commandNames = [...]string{"none", "next", "previous", "toggle", "stop"}

func (c Command) String() string {
	if int(c) < len(commandNames) {
		return commandNames[c]
	}
	return fmt.Sprintf("command(%d)", c)
}

// ParseCommand accepts the command names plus the short forms used by the
// HTTP API.
func ParseCommand(s string) (Command, error) {
	switch s {
	case "next":
		return Next, nil
	case "prev", "previous":
		return Previous, nil
	case "toggle", "play", "pause":
		return TogglePlayPause, nil
	case "stop":
		return Stop, nil
	}
	return None, fmt.Errorf("playback: unknown command %q", s)
}

// NextPolicy decides what Next does on the last track.
type NextPolicy uint8

const (
	// NextWrap moves from the last track to the first.
	NextWrap NextPolicy = iota
	// NextSaturate stays on the last track.
	NextSaturate
)

func (p NextPolicy) String() string {
	if p == NextSaturate {
		return "saturate"
	}
	return "wrap"
}

func ParseNextPolicy(s string) (NextPolicy, error) {
	switch s {
	case "", "wrap":
		return NextWrap, nil
	case "saturate":
		return NextSaturate, nil
	}
	return NextWrap, fmt.Errorf("playback: unknown next policy %q", s)
}

// PositionSource selects how the play position advances.
type PositionSource uint8

const (
	// PositionDecoder reads the timestamp of the last decoded frame.
	PositionDecoder PositionSource = iota
	// PositionTick adds a fixed increment per update. Only useful while a
	// real decoder is not available.
	PositionTick
)

func (p PositionSource) String() string {
	if p == PositionTick {
		return "tick"
	}
	return "decoder"
}

func ParsePositionSource(s string) (PositionSource, error) {
	switch s {
	case "", "decoder":
		return PositionDecoder, nil
	case "tick":
		return PositionTick, nil
	}
	return PositionDecoder, fmt.Errorf("playback: unknown position source %q", s)
}
