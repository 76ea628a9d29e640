package service

import (
	"context"

	"campus-market/internal/domain"
	"campus-market/internal/market"
)

// MarketAPI is the remote marketplace API. *market.Client implements it.
type MarketAPI interface {
	ListItems(ctx context.Context, f domain.Filters) (*market.ItemsResponse, error)
	GetItem(ctx context.Context, id string) (*domain.ItemDetail, error)
	MyListings(ctx context.Context) ([]domain.Listing, error)
	BatchMutate(ctx context.Context, token string, method domain.Method, ids []string) error
	SubmitListing(ctx context.Context, token, id string, form *domain.ListingForm) (string, error)
	SendFeedback(ctx context.Context, token string, form *domain.FeedbackForm) error
	ExchangeIdentity(ctx context.Context, idToken string) (*domain.Identity, error)
	ResolveCampus(ctx context.Context, token string) (domain.Campus, error)
	Logout(ctx context.Context, token string) error
}

// TokenSource yields the anti-forgery tokens to try, in attempt order.
// *security.TokenResolver implements it.
type TokenSource interface {
	Resolve() []string
}
