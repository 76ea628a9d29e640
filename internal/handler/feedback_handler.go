package handler

import (
	"net/http"

	"campus-market/internal/domain"
	"campus-market/internal/marketplace"
	"campus-market/internal/middleware"
)

type FeedbackHandler struct {
	catalog *marketplace.CatalogService
}

func NewFeedbackHandler(catalog *marketplace.CatalogService) *FeedbackHandler {
	return &FeedbackHandler{catalog: catalog}
}

// Create handles the multipart POST /feedback
func (h *FeedbackHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidForm.Error())
		return
	}

	form := &domain.FeedbackForm{Description: r.FormValue("description")}
	if err := h.catalog.SendFeedback(r.Context(), session, form, uploadsFrom(r)); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success"})
}
