package handler

import (
	"net/http"
	"strconv"
	"strings"

	"campus-market/internal/domain"
	"campus-market/internal/marketplace"
	"campus-market/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// ItemHandler serves the public listing feed and listing edits.
type ItemHandler struct {
	catalog *marketplace.CatalogService
}

func NewItemHandler(catalog *marketplace.CatalogService) *ItemHandler {
	return &ItemHandler{catalog: catalog}
}

// ItemsResponse is one page of the feed.
type ItemsResponse struct {
	Status               string           `json:"status"`
	Items                []domain.Listing `json:"items"`
	TotalItems           int              `json:"total_items"`
	TotalItemsByCategory map[string]int   `json:"total_items_cat"`
}

// List handles GET /items?search=&category=&campus=&page=&sort_by=
func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilters(r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	page, err := h.catalog.Search(r.Context(), f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ItemsResponse{
		Status:               "success",
		Items:                page.Items,
		TotalItems:           page.TotalCount,
		TotalItemsByCategory: page.TotalCountByCategory,
	})
}

// Get handles GET /items/{id}
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.catalog.Item(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Create handles the multipart POST /items/
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	form, uploads, err := parseListingForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	l, err := h.catalog.Create(r.Context(), session, form, uploads)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "success", "id": l.ID})
}

// Update handles the multipart POST /items/{id}
func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.GetSession(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	form, uploads, err := parseListingForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	l, err := h.catalog.Update(r.Context(), session, chi.URLParam(r, "id"), form, uploads)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "id": l.ID})
}

func parseFilters(r *http.Request) (domain.Filters, error) {
	q := r.URL.Query()
	f := domain.Filters{Search: strings.TrimSpace(q.Get("search")), Page: 1}

	if v := q.Get("category"); v != "" {
		c, err := domain.ParseCategory(v)
		if err != nil {
			return f, err
		}
		f.Category = c
	}
	if v := q.Get("campus"); v != "" {
		c, err := domain.ParseCampus(v)
		if err != nil {
			return f, err
		}
		f.Campus = c
	}
	if v := q.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return f, domain.ErrInvalidInput
		}
		f.Page = page
	}
	sort, err := domain.ParseSortMode(q.Get("sort_by"))
	if err != nil {
		return f, err
	}
	f.Sort = sort
	return f, nil
}

func parseListingForm(r *http.Request) (*domain.ListingForm, []marketplace.Upload, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, nil, errInvalidForm
	}

	form := &domain.ListingForm{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Hostel:      r.FormValue("hostel"),
		Contact:     r.FormValue("contact"),
	}
	if v := r.FormValue("price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, errInvalidPrice
		}
		form.Price = price
	}
	return form, uploadsFrom(r), nil
}
