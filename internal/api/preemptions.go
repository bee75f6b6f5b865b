package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/command"
)

// handleListPreemptions returns the active preemption requests.
func (s *Server) handleListPreemptions(w http.ResponseWriter, _ *http.Request) {
	active := s.engine.ActivePreemptions()
	writeJSON(w, http.StatusOK, map[string]any{
		"preemptions": active,
		"count":       len(active),
	})
}

// handleActivatePreemption clears a route for an emergency vehicle. The
// route is an explicit junction list or a corridor ID.
func (s *Server) handleActivatePreemption(w http.ResponseWriter, r *http.Request) {
	var cmd command.PreemptionCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if cmd.RequestID == "" {
		cmd.RequestID = requestIDFrom(r)
	}
	cmd.Source = commandSource(r)

	p, err := s.commands.Preempt(cmd)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// handleCancelPreemption withdraws a preemption from every junction it
// still holds.
func (s *Server) handleCancelPreemption(w http.ResponseWriter, r *http.Request) {
	err := s.commands.CancelPreemption(requestIDFrom(r), chi.URLParam(r, "id"), commandSource(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
