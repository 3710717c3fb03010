// Package models holds the value types shared between the player core and
// its outer surfaces (HTTP API, SSE).
package models

// Status is a snapshot of the player as seen by API clients.
type Status struct {
	State      string `json:"state"`
	Track      string `json:"track"`
	TrackIndex int    `json:"track_index"`
	TrackCount int    `json:"track_count"`
	PositionMS uint32 `json:"position_ms"`
	DurationMS uint32 `json:"duration_ms"`
	Volume     int    `json:"volume"`
	Linked     bool   `json:"linked"`
	Error      string `json:"error,omitempty"`
	Dropped    uint64 `json:"dropped_events"`
}

// DefaultStatus returns the status of a freshly started player.
func DefaultStatus() Status {
	return Status{
		State:      "idle",
		TrackIndex: 0,
		Volume:     80,
	}
}
