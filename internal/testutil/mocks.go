// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the campus-market client and reference API.
package testutil

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"campus-market/internal/domain"
	"campus-market/internal/market"
	"campus-market/internal/service"
)

// Common test errors
var (
	ErrMockNetwork = errors.New("mock: connection refused")
)

// StatusError builds the error the API client returns for a non-2xx reply.
func StatusError(status int, message string) error {
	return &market.APIError{StatusCode: status, Message: message}
}

// CSRFRejected is the 403 the API sends for a stale anti-forgery token.
func CSRFRejected() error {
	return StatusError(http.StatusForbidden, "CSRF Failed: CSRF token incorrect.")
}

// Call records one call made against MockMarketAPI
type Call struct {
	Op     string
	Token  string
	Method domain.Method
	IDs    []string
}

// MockMarketAPI implements service.MarketAPI for testing. Mutations look up
// TokenErrors by the token they carry; a token without an entry is
// accepted and the change is applied to Listings, so a later MyListings
// reflects it.
type MockMarketAPI struct {
	mu sync.Mutex

	// Function overrides - set these to customize behavior
	ListItemsFunc        func(ctx context.Context, f domain.Filters) (*market.ItemsResponse, error)
	GetItemFunc          func(ctx context.Context, id string) (*domain.ItemDetail, error)
	MyListingsFunc       func(ctx context.Context) ([]domain.Listing, error)
	ExchangeIdentityFunc func(ctx context.Context, idToken string) (*domain.Identity, error)

	// TokenErrors maps an anti-forgery token to the error a mutation
	// carrying it fails with.
	TokenErrors map[string]error

	// In-memory server state
	Listings []domain.Listing
	Campus   domain.Campus

	calls []Call
}

// NewMockMarketAPI creates a new MockMarketAPI serving listings
func NewMockMarketAPI(listings ...domain.Listing) *MockMarketAPI {
	return &MockMarketAPI{
		TokenErrors: make(map[string]error),
		Listings:    listings,
		Campus:      domain.CampusPilani,
	}
}

func (m *MockMarketAPI) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *MockMarketAPI) tokenError(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.TokenErrors[token]
}

// Calls returns every call made so far, in order
func (m *MockMarketAPI) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// TokensTried returns the tokens carried by calls named op, in order
func (m *MockMarketAPI) TokensTried(op string) []string {
	var tokens []string
	for _, c := range m.Calls() {
		if c.Op == op {
			tokens = append(tokens, c.Token)
		}
	}
	return tokens
}

// CallCount returns how many calls named op were made
func (m *MockMarketAPI) CallCount(op string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (m *MockMarketAPI) ListItems(ctx context.Context, f domain.Filters) (*market.ItemsResponse, error) {
	m.record(Call{Op: "ListItems"})
	if m.ListItemsFunc != nil {
		return m.ListItemsFunc(ctx, f)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	items := append([]domain.Listing(nil), m.Listings...)
	byCat := make(map[string]int)
	for _, l := range items {
		byCat[l.Category]++
	}
	return &market.ItemsResponse{Status: "success", Items: items, TotalItems: len(items), TotalItemsByCategory: byCat}, nil
}

func (m *MockMarketAPI) GetItem(ctx context.Context, id string) (*domain.ItemDetail, error) {
	m.record(Call{Op: "GetItem", IDs: []string{id}})
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.Listings {
		if l.ID == id {
			return &domain.ItemDetail{Details: l, SimilarItems: []domain.Listing{}}, nil
		}
	}
	return nil, StatusError(http.StatusNotFound, "Item not found")
}

func (m *MockMarketAPI) MyListings(ctx context.Context) ([]domain.Listing, error) {
	m.record(Call{Op: "MyListings"})
	if m.MyListingsFunc != nil {
		return m.MyListingsFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Listing(nil), m.Listings...), nil
}

func (m *MockMarketAPI) BatchMutate(ctx context.Context, token string, method domain.Method, ids []string) error {
	m.record(Call{Op: "BatchMutate", Token: token, Method: method, IDs: append([]string(nil), ids...)})
	if err := m.tokenError(token); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}
	kept := m.Listings[:0:0]
	for _, l := range m.Listings {
		if selected[l.ID] {
			switch method {
			case domain.MethodDelete:
				continue
			case domain.MethodMarkSold:
				l.Sold = true
			case domain.MethodMarkUnsold, domain.MethodRepost:
				l.Sold = false
			}
		}
		kept = append(kept, l)
	}
	m.Listings = kept
	return nil
}

func (m *MockMarketAPI) SubmitListing(ctx context.Context, token, id string, form *domain.ListingForm) (string, error) {
	op := "CreateListing"
	if id != "" {
		op = "UpdateListing"
	}
	m.record(Call{Op: op, Token: token, IDs: nonEmpty(id)})
	if err := m.tokenError(token); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		id = nextID("item")
		m.Listings = append(m.Listings, domain.Listing{ID: id, Title: form.Title, Price: form.Price, Category: form.Category})
		return id, nil
	}
	for i := range m.Listings {
		if m.Listings[i].ID == id {
			m.Listings[i].Title = form.Title
			m.Listings[i].Price = form.Price
		}
	}
	return id, nil
}

func (m *MockMarketAPI) SendFeedback(ctx context.Context, token string, form *domain.FeedbackForm) error {
	m.record(Call{Op: "SendFeedback", Token: token})
	return m.tokenError(token)
}

func (m *MockMarketAPI) ExchangeIdentity(ctx context.Context, idToken string) (*domain.Identity, error) {
	m.record(Call{Op: "ExchangeIdentity"})
	if m.ExchangeIdentityFunc != nil {
		return m.ExchangeIdentityFunc(ctx, idToken)
	}
	return &domain.Identity{Email: "test@pilani.bits-pilani.ac.in", Name: "Test User"}, nil
}

func (m *MockMarketAPI) ResolveCampus(ctx context.Context, token string) (domain.Campus, error) {
	m.record(Call{Op: "ResolveCampus", Token: token})
	if err := m.tokenError(token); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Campus, nil
}

func (m *MockMarketAPI) Logout(ctx context.Context, token string) error {
	m.record(Call{Op: "Logout", Token: token})
	return m.tokenError(token)
}

func nonEmpty(id string) []string {
	if id == "" {
		return nil
	}
	return []string{id}
}

// StaticTokens is a service.TokenSource that always yields the same tokens
type StaticTokens []string

func (s StaticTokens) Resolve() []string {
	return append([]string{}, s...)
}

// MockSessionStore implements domain.SessionStore in memory
type MockSessionStore struct {
	mu sync.Mutex

	Session *domain.Session
	SaveErr error

	clears int
	saves  int
}

// NewMockSessionStore creates a store holding session, which may be nil
func NewMockSessionStore(session *domain.Session) *MockSessionStore {
	return &MockSessionStore{Session: session}
}

func (m *MockSessionStore) Load() (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Session == nil {
		return nil, domain.ErrSessionNotFound
	}
	s := *m.Session
	return &s, nil
}

func (m *MockSessionStore) Save(session *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	s := *session
	m.Session = &s
	m.saves++
	return nil
}

func (m *MockSessionStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Session = nil
	m.clears++
	return nil
}

// Clears returns how many times Clear was called
func (m *MockSessionStore) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Saves returns how many times Save succeeded
func (m *MockSessionStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// MockCookieClearer counts Clear calls
type MockCookieClearer struct {
	mu     sync.Mutex
	clears int
}

func (m *MockCookieClearer) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	return nil
}

// Clears returns how many times Clear was called
func (m *MockCookieClearer) Clears() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clears
}

// Recorder is a service.Notifier that keeps every notification
type Recorder struct {
	mu    sync.Mutex
	items []service.Notification
}

func (r *Recorder) Notify(n service.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// Notifications returns a copy of what has been recorded so far
func (r *Recorder) Notifications() []service.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]service.Notification(nil), r.items...)
}
