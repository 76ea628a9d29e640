package handler

import (
	"encoding/json"
	"net/http"

	"campus-market/internal/domain"
	"campus-market/internal/marketplace"
	"campus-market/internal/middleware"
)

// MyListingsHandler serves the caller's own listings and batch changes to them.
type MyListingsHandler struct {
	catalog *marketplace.CatalogService
}

func NewMyListingsHandler(catalog *marketplace.CatalogService) *MyListingsHandler {
	return &MyListingsHandler{catalog: catalog}
}

// BatchRequest applies Method to every listing in IDs, or to none.
type BatchRequest struct {
	Method string   `json:"method"`
	IDs    []string `json:"ids"`
}

// List handles GET /mylistings
func (h *MyListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	items, err := h.catalog.MyListings(r.Context(), session)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Listing{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"items":  items,
	})
}

// Batch handles POST /mylistings/
func (h *MyListingsHandler) Batch(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	method, err := domain.ParseMethod(req.Method)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	if err := h.catalog.Batch(r.Context(), session, method, req.IDs); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
