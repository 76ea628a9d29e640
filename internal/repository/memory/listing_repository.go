// Package memory holds the in-memory stores behind the reference API server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/observability"

	"github.com/google/uuid"
)

type ListingRepository struct {
	mu       sync.RWMutex
	listings map[string]*domain.Listing
	now      func() time.Time
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		listings: make(map[string]*domain.Listing),
		now:      time.Now,
	}
}

// Search filters, sorts and pages listings. The sold flag is not a server
// filter; every matching listing is returned.
func (r *ListingRepository) Search(ctx context.Context, f domain.Filters) (*domain.Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	byCategory := make(map[string]int)
	matched := make([]domain.Listing, 0, len(r.listings))

	for _, l := range r.listings {
		if f.Campus != "" && f.Campus != domain.CampusAllCampuses && l.Campus != f.Campus {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Title), search) &&
			!strings.Contains(strings.ToLower(l.Description), search) {
			continue
		}
		byCategory[l.Category]++
		if f.Category != "" && l.Category != f.Category {
			continue
		}
		matched = append(matched, *l)
	}

	sortListings(matched, f.Sort)

	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * domain.PageSize
	items := []domain.Listing{}
	if start < len(matched) {
		end := start + domain.PageSize
		if end > len(matched) {
			end = len(matched)
		}
		items = matched[start:end]
	}

	return &domain.Page{
		Items:                items,
		TotalCount:           len(matched),
		TotalCountByCategory: byCategory,
		TotalPages:           domain.TotalPages(len(matched)),
	}, nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	out := *l
	return &out, nil
}

// Similar returns up to limit unsold listings of the same category and
// campus, newest first.
func (r *ListingRepository) Similar(ctx context.Context, l *domain.Listing, limit int) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	similar := make([]domain.Listing, 0, limit)
	for _, other := range r.listings {
		if other.ID == l.ID || other.Sold || other.Category != l.Category || other.Campus != l.Campus {
			continue
		}
		similar = append(similar, *other)
	}
	sortListings(similar, domain.SortNewest)
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}

func (r *ListingRepository) ListBySeller(ctx context.Context, email string) ([]domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Listing{}
	for _, l := range r.listings {
		if strings.EqualFold(l.SellerEmail, email) {
			out = append(out, *l)
		}
	}
	sortListings(out, domain.SortNewest)
	return out, nil
}

func (r *ListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if _, exists := r.listings[l.ID]; exists {
		return fmt.Errorf("listing %s already exists", l.ID)
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = r.now()
	}
	stored := *l
	r.listings[l.ID] = &stored
	observability.ListingsStored.Set(float64(len(r.listings)))
	return nil
}

// Update replaces the editable fields of an existing listing. Images are
// kept when l carries none.
func (r *ListingRepository) Update(ctx context.Context, l *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.listings[l.ID]
	if !ok {
		return domain.ErrListingNotFound
	}
	existing.Title = l.Title
	existing.Description = l.Description
	existing.Price = l.Price
	existing.Category = l.Category
	existing.Hostel = l.Hostel
	existing.Contact = l.Contact
	if len(l.Images) > 0 {
		existing.Images = append([]string(nil), l.Images...)
	}
	*l = *existing
	return nil
}

func (r *ListingRepository) ApplyBatch(ctx context.Context, sellerEmail string, method domain.Method, ids []string) error {
	if !method.IsBatch() {
		return domain.ErrInvalidMethod
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		l, ok := r.listings[id]
		if !ok || !strings.EqualFold(l.SellerEmail, sellerEmail) {
			return domain.ErrForbidden
		}
	}

	now := r.now()
	for _, id := range ids {
		switch method {
		case domain.MethodDelete:
			delete(r.listings, id)
		case domain.MethodMarkSold:
			r.listings[id].Sold = true
		case domain.MethodMarkUnsold:
			r.listings[id].Sold = false
		case domain.MethodRepost:
			r.listings[id].Sold = false
			r.listings[id].CreatedAt = now
		}
	}
	observability.ListingsStored.Set(float64(len(r.listings)))
	return nil
}

func sortListings(ls []domain.Listing, mode domain.SortMode) {
	sort.SliceStable(ls, func(i, j int) bool {
		switch mode {
		case domain.SortPriceAscending:
			if ls[i].Price != ls[j].Price {
				return ls[i].Price < ls[j].Price
			}
		case domain.SortPriceDescending:
			if ls[i].Price != ls[j].Price {
				return ls[i].Price > ls[j].Price
			}
		}
		if !ls[i].CreatedAt.Equal(ls[j].CreatedAt) {
			return ls[i].CreatedAt.After(ls[j].CreatedAt)
		}
		return ls[i].ID < ls[j].ID
	})
}
