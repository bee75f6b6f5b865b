package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/journal"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/junction"
)

// ErrCodeUnavailable reports an optional component that is not configured.
const ErrCodeUnavailable = "unavailable"

// handleListCorridors returns the named emergency corridors.
func (s *Server) handleListCorridors(w http.ResponseWriter, _ *http.Request) {
	corridors := []junction.Corridor{}
	if s.catalogue != nil {
		corridors = s.catalogue.Corridors()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"corridors": corridors,
		"count":     len(corridors),
	})
}

// handleListVehicleTypes returns the vehicle type to class mapping.
func (s *Server) handleListVehicleTypes(w http.ResponseWriter, _ *http.Request) {
	types := []junction.VehicleType{}
	if s.catalogue != nil {
		types = s.catalogue.VehicleTypes()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vehicle_types": types,
		"count":         len(types),
	})
}

// handleListEvents queries the control event journal.
//
// Query parameters: junction_id, type, preemption_id, override_id,
// since (RFC 3339), limit, offset.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event journal not configured")
		return
	}

	q := r.URL.Query()
	filter := journal.Filter{
		JunctionID:   q.Get("junction_id"),
		Type:         arbitration.EventType(q.Get("type")),
		PreemptionID: q.Get("preemption_id"),
		OverrideID:   q.Get("override_id"),
	}

	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeBadRequest(w, "since must be an RFC 3339 timestamp")
			return
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("listing control events failed", "error", err)
		writeInternalError(w, "failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
