package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mappa/internal/core"
	"mappa/internal/ingest"
)

// writeJSON renders v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError renders the API error contract: {"detail": "..."}.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeServiceError maps domain sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidCategory):
		writeError(w, http.StatusUnprocessableEntity, "Category name must not be empty")
	case errors.Is(err, core.ErrUnknownCategory):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, core.ErrRowNotFound):
		writeError(w, http.StatusBadRequest, "Invalid row index")
	case errors.Is(err, core.ErrFileNotFound):
		writeError(w, http.StatusNotFound, "No file uploaded. Please upload a CSV first.")
	case errors.Is(err, core.ErrCorrectionPending):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrSuggestionUnavailable):
		writeError(w, http.StatusServiceUnavailable, "Suggestion backend unavailable")
	case errors.Is(err, ingest.ErrEmptyFile):
		writeError(w, http.StatusBadRequest, "Uploaded file contains no data rows")
	case errors.Is(err, ingest.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, "Unsupported file type. Upload a .csv or .xlsx file.")
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// methodNotAllowed rejects the request, advertising the allowed method.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
