package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// WebSocket authenticates with a single-use ticket in the query.
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.require(auth.PermJunctionRead)).Group(func(r chi.Router) {
				r.Get("/metrics", s.handleMetrics)
				r.Post("/auth/ws-ticket", s.handleWSTicket)

				r.Get("/junctions", s.handleListJunctions)
				r.Get("/junctions/{id}", s.handleGetJunction)
				r.Get("/preemptions", s.handleListPreemptions)
				r.Get("/corridors", s.handleListCorridors)
				r.Get("/vehicle-types", s.handleListVehicleTypes)
				r.Get("/events", s.handleListEvents)
			})

			r.With(s.require(auth.PermOverrideOperate)).Group(func(r chi.Router) {
				r.Post("/junctions/{id}/override", s.handleActivateOverride)
				r.Delete("/junctions/{id}/override", s.handleCancelOverride)
			})

			r.With(s.require(auth.PermPreemptionDispatch)).Group(func(r chi.Router) {
				r.Post("/preemptions", s.handleActivatePreemption)
				r.Delete("/preemptions/{id}", s.handleCancelPreemption)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"junctions": len(s.engine.Snapshots()),
	})
}
