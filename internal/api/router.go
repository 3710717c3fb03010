package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/micro-nova/btplayer/internal/auth"
	"github.com/micro-nova/btplayer/internal/events"
)

// NewRouter creates the HTTP router. Commands are posted to out, the same
// channel the buttons feed, so remote control and the device agree on order.
func NewRouter(player Player, out events.Poster, authSvc *auth.Service, bus EventBus) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{player: player, out: out, events: bus}

	r.Group(func(r chi.Router) {
		r.Use(authSvc.Middleware)

		r.Get("/api", h.getStatus)
		r.Get("/api/status", h.getStatus)

		r.Post("/api/buttons/{button}", h.pressButton)
		r.Post("/api/playback/{cmd}", h.playbackCmd)
		r.Post("/api/display/redraw", h.redraw)
		r.Post("/api/display/{power}", h.displayPower)

		r.Get("/api/subscribe", h.sseEvents)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
