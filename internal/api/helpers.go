// Package api implements the debug and remote-control HTTP API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/micro-nova/btplayer/internal/events"
	"github.com/micro-nova/btplayer/internal/models"
)

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	player Player
	out    events.Poster
	events EventBus
}

// Player is what the handlers read state from.
type Player interface {
	Status() models.Status
}

// EventBus is the interface for subscribing to status snapshots.
type EventBus interface {
	Subscribe(id string) <-chan models.Status
	Unsubscribe(id string)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an AppError as a JSON response.
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if appErr, ok := err.(*models.AppError); ok {
		w.WriteHeader(appErr.Status)
		_ = json.NewEncoder(w).Encode(appErr)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(models.ErrInternal(err.Error()))
}

// post queues evs in order. A full channel is reported as 503; the events
// already queued stay queued.
func (h *Handlers) post(evs ...events.Event) error {
	for _, ev := range evs {
		if err := h.out.Post(ev); err != nil {
			return models.ErrUnavailable("event queue full, try again")
		}
	}
	return nil
}
