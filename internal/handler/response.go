package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"campus-market/internal/domain"
	"campus-market/internal/marketplace"
	"campus-market/internal/observability"
)

const maxUploadMemory = 32 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps a service error onto a status code. Anything
// unexpected is logged and reported as a 500 without detail.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		writeError(w, http.StatusNotFound, "Item not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "You do not own one or more of these items")
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidMethod),
		errors.Is(err, domain.ErrInvalidCategory),
		errors.Is(err, domain.ErrInvalidCampus),
		errors.Is(err, domain.ErrInvalidSortMode),
		errors.Is(err, marketplace.ErrInvalidImage):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		observability.FromContext(r.Context()).Error("Request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
