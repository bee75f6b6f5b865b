package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/command"
)

// Error is the JSON error envelope.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Transport error codes. Engine rejections use the command package codes
// (busy, preemption_denied, ...).
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeInternal       = "internal_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes the error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeEngineError maps an engine rejection to its HTTP status, keeping
// the collaborator-facing code from the command package.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, engineStatus(err), command.ErrorCode(err), err.Error())
}

func engineStatus(err error) int {
	switch {
	case errors.Is(err, arbitration.ErrUnknownJunction), errors.Is(err, arbitration.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, arbitration.ErrBusy), errors.Is(err, arbitration.ErrPreemptionDenied):
		return http.StatusConflict
	case errors.Is(err, arbitration.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
