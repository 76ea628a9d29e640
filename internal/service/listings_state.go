package service

import (
	"context"
	"sync"
	"time"

	"campus-market/internal/domain"
)

// ListingsState is the client's copy of "my listings". It is only ever
// replaced wholesale by a refetch; nothing patches it locally.
type ListingsState struct {
	query *QueryExecutor

	mu        sync.RWMutex
	listings  []domain.Listing
	fetchedAt time.Time
	inFlight  map[string]int
}

func NewListingsState(query *QueryExecutor) *ListingsState {
	return &ListingsState{
		query:    query,
		inFlight: make(map[string]int),
	}
}

// Refresh refetches the listings. The result is dropped if ctx finished
// while the call was out.
func (s *ListingsState) Refresh(ctx context.Context) error {
	listings, err := s.query.MyListings(ctx)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = listings
	s.fetchedAt = time.Now()
	return nil
}

// Listings returns the last fetched snapshot.
func (s *ListingsState) Listings() []domain.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Listing(nil), s.listings...)
}

// FetchedAt is when the snapshot was taken; zero before the first fetch.
func (s *ListingsState) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// InFlight reports whether a mutation touching id is running.
func (s *ListingsState) InFlight(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight[id] > 0
}

func (s *ListingsState) markInFlight(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.inFlight[id]++
	}
}

func (s *ListingsState) clearInFlight(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if s.inFlight[id] <= 1 {
			delete(s.inFlight, id)
			continue
		}
		s.inFlight[id]--
	}
}
