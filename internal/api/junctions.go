package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/command"
)

// junctionView is a snapshot with the junction's display name.
type junctionView struct {
	Name string `json:"name,omitempty"`
	arbitration.Snapshot
}

// overrideRequest is the body of POST /junctions/{id}/override.
type overrideRequest struct {
	RequestID       string `json:"request_id,omitempty"`
	Action          string `json:"action"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
}

func (s *Server) view(snap arbitration.Snapshot) junctionView {
	v := junctionView{Snapshot: snap}
	if s.catalogue != nil {
		if j, err := s.catalogue.Junction(snap.JunctionID); err == nil {
			v.Name = j.Name
		}
	}
	return v
}

// handleListJunctions returns snapshots of every junction.
func (s *Server) handleListJunctions(w http.ResponseWriter, _ *http.Request) {
	snapshots := s.engine.Snapshots()
	views := make([]junctionView, 0, len(snapshots))
	for _, snap := range snapshots {
		views = append(views, s.view(snap))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"junctions": views,
		"count":     len(views),
	})
}

// handleGetJunction returns one junction's snapshot.
func (s *Server) handleGetJunction(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.JunctionState(chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.view(snap))
}

// handleActivateOverride places an operator override on the junction.
// The junction comes from the path; any junction_id in the body is ignored.
func (s *Server) handleActivateOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if req.RequestID == "" {
		req.RequestID = requestIDFrom(r)
	}

	ov, err := s.commands.Override(command.OverrideCommand{
		RequestID:       req.RequestID,
		JunctionID:      chi.URLParam(r, "id"),
		Action:          req.Action,
		DurationSeconds: req.DurationSeconds,
		Source:          commandSource(r),
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ov)
}

// handleCancelOverride withdraws the junction's active override.
func (s *Server) handleCancelOverride(w http.ResponseWriter, r *http.Request) {
	err := s.commands.CancelOverride(requestIDFrom(r), chi.URLParam(r, "id"), commandSource(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestIDFrom returns the request ID set by requestIDMiddleware.
func requestIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyRequestID).(string) //nolint:errcheck // empty when absent
	return id
}
