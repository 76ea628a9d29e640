package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"campus-market/internal/domain"
)

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// ListingOptions allows customizing listing fixture creation
type ListingOptions struct {
	ID          string
	Title       string
	Price       float64
	Category    string
	Campus      domain.Campus
	SellerEmail string
	Sold        bool
	CreatedAt   time.Time
}

// NewTestListing creates a test listing with sensible defaults
// Pass options to override specific fields
func NewTestListing(opts ...func(*ListingOptions)) domain.Listing {
	o := &ListingOptions{
		ID:          nextID("item"),
		Price:       500,
		Category:    "Books",
		Campus:      domain.CampusPilani,
		SellerEmail: "seller@pilani.bits-pilani.ac.in",
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.Title == "" {
		o.Title = "Listing " + o.ID
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	return domain.Listing{
		ID:          o.ID,
		Title:       o.Title,
		Description: "Test listing",
		Price:       o.Price,
		Images:      []string{},
		Hostel:      "Test Bhawan",
		Category:    o.Category,
		Campus:      o.Campus,
		Sold:        o.Sold,
		Contact:     "9876543210",
		SellerName:  "Test Seller",
		SellerEmail: o.SellerEmail,
		CreatedAt:   o.CreatedAt,
	}
}

// Listing option functions

// WithListingID sets the listing ID
func WithListingID(id string) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.ID = id
	}
}

// WithTitle sets the title
func WithTitle(title string) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.Title = title
	}
}

// WithPrice sets the price
func WithPrice(price float64) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.Price = price
	}
}

// WithCategory sets the category
func WithCategory(category string) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.Category = category
	}
}

// WithCampus sets the campus
func WithCampus(campus domain.Campus) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.Campus = campus
	}
}

// WithSeller sets the seller email
func WithSeller(email string) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.SellerEmail = email
	}
}

// WithSold marks the listing sold
func WithSold() func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.Sold = true
	}
}

// WithCreatedAt sets the creation time
func WithCreatedAt(t time.Time) func(*ListingOptions) {
	return func(o *ListingOptions) {
		o.CreatedAt = t
	}
}

// NewTestListings creates count listings with default values
func NewTestListings(count int, opts ...func(*ListingOptions)) []domain.Listing {
	listings := make([]domain.Listing, count)
	for i := range listings {
		listings[i] = NewTestListing(opts...)
	}
	return listings
}

// NewTestSession creates a complete client session
func NewTestSession(campus domain.Campus) *domain.Session {
	return &domain.Session{
		Identity: domain.Identity{Email: nextID("student") + "@pilani.bits-pilani.ac.in", Name: "Test Student"},
		Campus:   campus,
		IssuedAt: time.Now().UTC(),
	}
}

// NewTestForm creates a listing form that passes validation
func NewTestForm() *domain.ListingForm {
	return &domain.ListingForm{
		Title:       "Engineering Drawing kit",
		Description: "Mini drafter and set squares",
		Price:       450,
		Category:    "Stationery",
		Hostel:      "Krishna Bhawan",
		Contact:     "9876543210",
	}
}

// ResetIDCounter resets the ID counter (useful for deterministic tests)
func ResetIDCounter() {
	idCounter.Store(0)
}

// ServerSessionOptions allows customizing server session fixture creation
type ServerSessionOptions struct {
	Token     string
	CSRFToken string
	Email     string
	ExpiresAt time.Time
}

// NewTestServerSession creates a server-side session that expires in an
// hour. The campus follows from the email.
func NewTestServerSession(opts ...func(*ServerSessionOptions)) *domain.ServerSession {
	o := &ServerSessionOptions{
		Token:     nextID("session"),
		CSRFToken: nextID("csrf"),
		Email:     "f20230001@pilani.bits-pilani.ac.in",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	for _, opt := range opts {
		opt(o)
	}

	campus, err := domain.CampusFromEmail(o.Email)
	if err != nil {
		campus = domain.CampusPilani
	}

	return &domain.ServerSession{
		Token:     o.Token,
		CSRFToken: o.CSRFToken,
		Identity:  domain.Identity{Email: o.Email, Name: "Test Student"},
		Campus:    campus,
		ExpiresAt: o.ExpiresAt,
		CreatedAt: time.Now(),
	}
}

// Server session option functions

// WithToken sets the session token
func WithToken(token string) func(*ServerSessionOptions) {
	return func(o *ServerSessionOptions) {
		o.Token = token
	}
}

// WithCSRFToken sets the anti-forgery token
func WithCSRFToken(token string) func(*ServerSessionOptions) {
	return func(o *ServerSessionOptions) {
		o.CSRFToken = token
	}
}

// WithEmail sets the session email
func WithEmail(email string) func(*ServerSessionOptions) {
	return func(o *ServerSessionOptions) {
		o.Email = email
	}
}

// WithExpired makes the session already expired
func WithExpired() func(*ServerSessionOptions) {
	return func(o *ServerSessionOptions) {
		o.ExpiresAt = time.Now().Add(-time.Hour)
	}
}
