package domain

import (
	"errors"
	"strings"
	"time"
)

// PageSize is the number of listings the API returns per page.
const PageSize = 20

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPageOutOfRange  = errors.New("page out of range")
	ErrInvalidSortMode = errors.New("invalid sort mode")
	ErrInvalidCategory = errors.New("invalid category")
)

// Categories lists the listing categories in display order.
var Categories = []string{
	"Electronics",
	"Books",
	"Cycles",
	"Clothing",
	"Furniture",
	"Stationery",
	"Sports",
	"Others",
}

// ParseCategory matches s against Categories case-insensitively.
func ParseCategory(s string) (string, error) {
	for _, c := range Categories {
		if strings.EqualFold(c, strings.TrimSpace(s)) {
			return c, nil
		}
	}
	return "", ErrInvalidCategory
}

// Listing is the client's read-only projection of a server-owned item.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Images      []string  `json:"images"`
	Hostel      string    `json:"hostel"`
	Category    string    `json:"category"`
	Campus      Campus    `json:"campus"`
	Sold        bool      `json:"sold"`
	Contact     string    `json:"contact"`
	SellerName  string    `json:"seller_name"`
	SellerEmail string    `json:"seller_email"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemDetail is a single listing plus the server's suggestions.
type ItemDetail struct {
	Details      Listing   `json:"details"`
	SimilarItems []Listing `json:"similar_items"`
}

// ListingForm is the payload for creating or editing a listing. Images are
// local file paths attached as multipart parts.
type ListingForm struct {
	Title       string   `json:"title" validate:"required,min=3,max=100"`
	Description string   `json:"description" validate:"max=1000"`
	Price       float64  `json:"price" validate:"gte=0,lte=1000000"`
	Category    string   `json:"category" validate:"required,category"`
	Hostel      string   `json:"hostel" validate:"required,max=50"`
	Contact     string   `json:"contact" validate:"required,numeric,min=7,max=15"`
	Images      []string `json:"images" validate:"max=5,dive,required,file"`
}

// FormFromListing builds an edit form pre-filled from an existing listing.
// Images are left empty: the server keeps existing images unless new ones
// are uploaded.
func FormFromListing(l Listing) ListingForm {
	return ListingForm{
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Category:    l.Category,
		Hostel:      l.Hostel,
		Contact:     l.Contact,
	}
}

// FeedbackForm is a free-text report with optional screenshots.
type FeedbackForm struct {
	Description string   `json:"description" validate:"required,min=10,max=2000"`
	Images      []string `json:"images" validate:"max=3,dive,required,file"`
}

// SortMode orders the listing feed.
type SortMode string

const (
	SortNewest          SortMode = "newest"
	SortPriceAscending  SortMode = "price_asc"
	SortPriceDescending SortMode = "price_desc"
)

// ParseSortMode accepts the wire value or the long names used by the CLI.
func ParseSortMode(s string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "newest":
		return SortNewest, nil
	case "price_asc", "priceascending", "price-asc":
		return SortPriceAscending, nil
	case "price_desc", "pricedescending", "price-desc":
		return SortPriceDescending, nil
	}
	return "", ErrInvalidSortMode
}

// SoldFilter narrows a fetched page by sold flag. It is applied on the
// client and never sent to the server.
type SoldFilter string

const (
	SoldAll    SoldFilter = ""
	SoldOnly   SoldFilter = "sold"
	UnsoldOnly SoldFilter = "unsold"
)

// Keep reports whether l passes the filter.
func (f SoldFilter) Keep(l Listing) bool {
	switch f {
	case SoldOnly:
		return l.Sold
	case UnsoldOnly:
		return !l.Sold
	}
	return true
}

// Filters are the composable, all-optional parameters of a feed query.
type Filters struct {
	Search   string
	Category string
	Campus   Campus
	Page     int
	Sort     SortMode
	Sold     SoldFilter
}

// Page is one page of the listing feed.
type Page struct {
	Items                []Listing
	TotalCount           int
	TotalCountByCategory map[string]int
	TotalPages           int
}

// TotalPages returns ceil(total / PageSize).
func TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// ClampPage moves page into [1, totalPages]. With no pages at all the only
// valid request is page 1.
func ClampPage(page, totalPages int) int {
	if totalPages < 1 {
		return 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}
