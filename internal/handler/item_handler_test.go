package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"campus-market/internal/domain"
	"campus-market/internal/marketplace"
	"campus-market/internal/repository/memory"
	"campus-market/internal/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

type catalogFixture struct {
	listings *memory.ListingRepository
	feedback *memory.FeedbackRepository
	catalog  *marketplace.CatalogService
	router   chi.Router
	session  *domain.ServerSession
}

// newCatalogFixture routes every handler with the session already in the
// context, as Auth would leave it.
func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	images, err := marketplace.NewImageStore(t.TempDir(), "/media")
	require.NoError(t, err)

	f := &catalogFixture{
		listings: memory.NewListingRepository(),
		feedback: memory.NewFeedbackRepository(),
		session:  testutil.NewTestServerSession(),
	}
	f.catalog = marketplace.NewCatalogService(f.listings, f.feedback, images)

	items := NewItemHandler(f.catalog)
	mine := NewMyListingsHandler(f.catalog)
	feedback := NewFeedbackHandler(f.catalog)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withSession(r, f.session))
		})
	})
	r.Get("/api/items", items.List)
	r.Post("/api/items/", items.Create)
	r.Get("/api/items/{id}", items.Get)
	r.Post("/api/items/{id}", items.Update)
	r.Get("/api/mylistings", mine.List)
	r.Post("/api/mylistings/", mine.Batch)
	r.Post("/api/feedback", feedback.Create)
	f.router = r
	return f
}

func (f *catalogFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *catalogFixture) seed(t *testing.T, opts ...func(*testutil.ListingOptions)) domain.Listing {
	t.Helper()
	l := testutil.NewTestListing(opts...)
	require.NoError(t, f.listings.Create(context.Background(), &l))
	return l
}

func listingFields() map[string]string {
	return map[string]string{
		"title":    "Casio fx-991EX",
		"price":    "900",
		"category": "Electronics",
		"hostel":   "Budh Bhawan",
		"contact":  "9876543210",
	}
}

func TestItemHandler_List(t *testing.T) {
	f := newCatalogFixture(t)
	f.seed(t, testutil.WithTitle("Drafter"), testutil.WithCategory("Stationery"))
	f.seed(t, testutil.WithTitle("Cycle"), testutil.WithCategory("Cycles"))
	f.seed(t, testutil.WithTitle("Goa drafter"), testutil.WithCategory("Stationery"), testutil.WithCampus(domain.CampusGoa))

	w := f.serve(httptest.NewRequest(http.MethodGet, "/api/items?search=drafter&campus=Pilani&page=1&sort_by=price_asc", nil))

	testutil.AssertStatusCode(t, w, http.StatusOK)
	resp := testutil.DecodeJSON[ItemsResponse](t, w)
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, 1, resp.TotalItems)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Drafter", resp.Items[0].Title)
}

func TestItemHandler_List_BadQuery(t *testing.T) {
	f := newCatalogFixture(t)

	for _, q := range []string{"page=0", "page=abc", "category=Vehicles", "campus=Mars", "sort_by=random"} {
		t.Run(q, func(t *testing.T) {
			w := f.serve(httptest.NewRequest(http.MethodGet, "/api/items?"+q, nil))
			testutil.AssertStatusCode(t, w, http.StatusBadRequest)
		})
	}
}

func TestItemHandler_Get(t *testing.T) {
	f := newCatalogFixture(t)
	l := f.seed(t)

	w := f.serve(httptest.NewRequest(http.MethodGet, "/api/items/"+l.ID, nil))
	testutil.AssertStatusCode(t, w, http.StatusOK)
	detail := testutil.DecodeJSON[domain.ItemDetail](t, w)
	assert.Equal(t, l.ID, detail.Details.ID)

	w = f.serve(httptest.NewRequest(http.MethodGet, "/api/items/missing", nil))
	testutil.AssertJSONError(t, w, http.StatusNotFound, "Item not found")
}

func TestItemHandler_Create(t *testing.T) {
	f := newCatalogFixture(t)

	req := testutil.NewMultipartRequest(t, http.MethodPost, "/api/items/", listingFields(), map[string][]byte{"calc.png": pngBytes})
	w := f.serve(req)

	testutil.AssertStatusCode(t, w, http.StatusCreated)
	body := testutil.DecodeJSON[map[string]string](t, w)
	require.NotEmpty(t, body["id"])

	stored, err := f.listings.GetByID(context.Background(), body["id"])
	require.NoError(t, err)
	assert.Equal(t, "Casio fx-991EX", stored.Title)
	assert.Equal(t, 900.0, stored.Price)
	assert.Equal(t, f.session.Email, stored.SellerEmail)
	assert.Equal(t, f.session.Campus, stored.Campus)
	assert.Len(t, stored.Images, 1)
}

func TestItemHandler_Create_Invalid(t *testing.T) {
	f := newCatalogFixture(t)

	tests := []struct {
		name   string
		mutate func(map[string]string)
		files  map[string][]byte
	}{
		{"missing_title", func(m map[string]string) { delete(m, "title") }, nil},
		{"bad_price", func(m map[string]string) { m["price"] = "cheap" }, nil},
		{"bad_category", func(m map[string]string) { m["category"] = "Pets" }, nil},
		{"not_an_image", func(map[string]string) {}, map[string][]byte{"notes.txt": []byte("hello")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := listingFields()
			tt.mutate(fields)

			w := f.serve(testutil.NewMultipartRequest(t, http.MethodPost, "/api/items/", fields, tt.files))

			testutil.AssertStatusCode(t, w, http.StatusBadRequest)
		})
	}

	w := f.serve(testutil.NewJSONRequest(t, http.MethodPost, "/api/items/", map[string]string{"title": "x"}))
	testutil.AssertJSONError(t, w, http.StatusBadRequest, "invalid multipart form")
}

func TestItemHandler_Update(t *testing.T) {
	f := newCatalogFixture(t)
	mine := f.seed(t, testutil.WithSeller(f.session.Email))
	theirs := f.seed(t, testutil.WithSeller("someone@pilani.bits-pilani.ac.in"))

	w := f.serve(testutil.NewMultipartRequest(t, http.MethodPost, "/api/items/"+mine.ID, listingFields(), nil))
	testutil.AssertStatusCode(t, w, http.StatusOK)

	stored, err := f.listings.GetByID(context.Background(), mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Casio fx-991EX", stored.Title)

	w = f.serve(testutil.NewMultipartRequest(t, http.MethodPost, "/api/items/"+theirs.ID, listingFields(), nil))
	testutil.AssertJSONError(t, w, http.StatusForbidden, "do not own")

	w = f.serve(testutil.NewMultipartRequest(t, http.MethodPost, "/api/items/missing", listingFields(), nil))
	testutil.AssertStatusCode(t, w, http.StatusNotFound)
}
