package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/specdesk/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps domain errors onto status codes. Anything unrecognised is
// logged and reported as an internal error.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case apperr.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidStatus),
		errors.Is(err, apperr.ErrSkippedStage),
		errors.Is(err, apperr.ErrInvalidProject):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// decodeBody reads a JSON request body of at most 1 MiB into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}
