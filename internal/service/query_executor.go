package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"campus-market/internal/domain"
	"campus-market/internal/market"
	"campus-market/internal/observability"
)

var ErrQueryFailed = errors.New("could not load listings")

// QueryError is a failed feed query. It keeps the exact filters so the
// caller can offer a manual retry.
type QueryError struct {
	Filters domain.Filters
	Err     error

	exec *QueryExecutor
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", ErrQueryFailed, e.Err)
}

func (e *QueryError) Unwrap() []error {
	return []error{ErrQueryFailed, e.Err}
}

// Retry runs the same query again.
func (e *QueryError) Retry(ctx context.Context) (*domain.Page, error) {
	return e.exec.Query(ctx, e.Filters)
}

// QueryExecutor performs read calls. Reads carry no anti-forgery token and
// are never retried automatically.
type QueryExecutor struct {
	api      MarketAPI
	sessions domain.SessionStore
}

func NewQueryExecutor(api MarketAPI, sessions domain.SessionStore) *QueryExecutor {
	return &QueryExecutor{api: api, sessions: sessions}
}

// Query fetches one page of the feed. f.Page must already be clamped to
// [1, TotalPages]; a page below 1 is rejected without a call.
func (q *QueryExecutor) Query(ctx context.Context, f domain.Filters) (*domain.Page, error) {
	if f.Page < 1 {
		return nil, domain.ErrPageOutOfRange
	}

	resp, err := q.api.ListItems(ctx, f)
	if err != nil {
		if q.authFailure(ctx, "items", err) {
			return nil, domain.ErrSessionExpired
		}
		observability.QueryFailuresTotal.WithLabelValues("items", "transient").Inc()
		observability.FromContext(ctx).Warn("Listing query failed", slog.String("error", err.Error()))
		return nil, &QueryError{Filters: f, Err: err, exec: q}
	}

	items := make([]domain.Listing, 0, len(resp.Items))
	for _, l := range resp.Items {
		if f.Sold.Keep(l) {
			items = append(items, l)
		}
	}

	return &domain.Page{
		Items:                items,
		TotalCount:           resp.TotalItems,
		TotalCountByCategory: resp.TotalItemsByCategory,
		TotalPages:           domain.TotalPages(resp.TotalItems),
	}, nil
}

// MyListings fetches the logged-in user's listings.
func (q *QueryExecutor) MyListings(ctx context.Context) ([]domain.Listing, error) {
	items, err := q.api.MyListings(ctx)
	if err != nil {
		if q.authFailure(ctx, "mylistings", err) {
			return nil, domain.ErrSessionExpired
		}
		observability.QueryFailuresTotal.WithLabelValues("mylistings", "transient").Inc()
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return items, nil
}

// Item fetches a single listing with its similar items.
func (q *QueryExecutor) Item(ctx context.Context, id string) (*domain.ItemDetail, error) {
	detail, err := q.api.GetItem(ctx, id)
	if err != nil {
		var apiErr *market.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, domain.ErrListingNotFound
		}
		if q.authFailure(ctx, "item", err) {
			return nil, domain.ErrSessionExpired
		}
		observability.QueryFailuresTotal.WithLabelValues("item", "transient").Inc()
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return detail, nil
}

// authFailure clears the session when a read was refused for lack of
// credentials.
func (q *QueryExecutor) authFailure(ctx context.Context, query string, err error) bool {
	var apiErr *market.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode != http.StatusUnauthorized && apiErr.StatusCode != http.StatusForbidden {
		return false
	}

	observability.QueryFailuresTotal.WithLabelValues(query, "auth").Inc()
	observability.SessionClearsTotal.WithLabelValues("read_" + query).Inc()
	if clearErr := q.sessions.Clear(); clearErr != nil {
		observability.FromContext(ctx).Error("Failed to clear session", slog.String("error", clearErr.Error()))
	}
	return true
}
