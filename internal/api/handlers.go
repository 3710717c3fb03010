package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/micro-nova/btplayer/internal/buttons"
	"github.com/micro-nova/btplayer/internal/events"
	"github.com/micro-nova/btplayer/internal/models"
)

var playbackKinds = map[string]events.Kind{
	"play":     events.PlaybackPlay,
	"pause":    events.PlaybackPause,
	"next":     events.PlaybackNext,
	"prev":     events.PlaybackPrev,
	"previous": events.PlaybackPrev,
	"stop":     events.PlaybackStop,
}

func (h *Handlers) getStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.player.Status())
}

// pressButton simulates a debounced press and release of a device button.
func (h *Handlers) pressButton(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "button")
	b, ok := buttons.Parse(name)
	if !ok {
		writeError(w, models.ErrNotFound("unknown button "+name))
		return
	}
	err := h.post(
		events.Event{Kind: b.Kind(), Param: events.ParamPressed},
		events.Event{Kind: b.Kind(), Param: events.ParamReleased},
	)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) playbackCmd(w http.ResponseWriter, r *http.Request) {
	cmd := chi.URLParam(r, "cmd")
	kind, ok := playbackKinds[cmd]
	if !ok {
		writeError(w, models.ErrBadRequest("unknown playback command "+cmd))
		return
	}
	if err := h.post(events.Event{Kind: kind}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) redraw(w http.ResponseWriter, r *http.Request) {
	if err := h.post(events.Event{Kind: events.DisplayRedraw}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handlers) displayPower(w http.ResponseWriter, r *http.Request) {
	var param uint32
	switch chi.URLParam(r, "power") {
	case "sleep":
		param = events.ParamDisplaySleep
	case "wake":
		param = events.ParamDisplayWake
	default:
		writeError(w, models.ErrNotFound("unknown display action"))
		return
	}
	if err := h.post(events.Event{Kind: events.DisplayStateChange, Param: param}); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
