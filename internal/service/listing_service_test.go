package service_test

import (
	"context"
	"testing"

	"campus-market/internal/domain"
	"campus-market/internal/service"
	"campus-market/internal/testutil"
	"campus-market/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newListingService(tokens []string, listings ...domain.Listing) (*service.ListingService, *testutil.MockMarketAPI, *testutil.Recorder) {
	api := testutil.NewMockMarketAPI(listings...)
	notes := &testutil.Recorder{}
	sessions := testutil.NewMockSessionStore(testutil.NewTestSession(domain.CampusPilani))
	exec := service.NewMutationExecutor(api, testutil.StaticTokens(tokens), sessions, nil, notes)
	return service.NewListingService(api, exec), api, notes
}

func TestListingService_Create(t *testing.T) {
	svc, api, notes := newListingService([]string{"t1"})

	outcome, err := svc.Create(context.Background(), testutil.NewTestForm())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, outcome)
	assert.Equal(t, 1, api.CallCount("CreateListing"))
	require.Len(t, notes.Notifications(), 1)
}

func TestListingService_InvalidFormNeverSent(t *testing.T) {
	svc, api, notes := newListingService([]string{"t1"})

	form := testutil.NewTestForm()
	form.Title = ""
	form.Category = "Vehicles"

	_, err := svc.Create(context.Background(), form)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var vErr *validation.Errors
	require.ErrorAs(t, err, &vErr)
	assert.NotEmpty(t, vErr.ForField("title"))
	assert.NotEmpty(t, vErr.ForField("category"))

	_, err = svc.Update(context.Background(), "a", form)
	assert.Error(t, err)

	assert.Empty(t, api.Calls())
	assert.Empty(t, notes.Notifications())
}

func TestListingService_Batch(t *testing.T) {
	svc, api, _ := newListingService([]string{"t1"},
		testutil.NewTestListing(testutil.WithListingID("a"), testutil.WithSold()),
	)

	outcome, err := svc.Batch(context.Background(), domain.MethodRepost, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, outcome)
	assert.False(t, api.Listings[0].Sold)

	_, err = svc.Batch(context.Background(), domain.MethodCreate, []string{"a"})
	assert.ErrorIs(t, err, domain.ErrInvalidMethod)
	assert.Equal(t, 1, api.CallCount("BatchMutate"))
}

func TestListingService_SendFeedback(t *testing.T) {
	svc, api, notes := newListingService([]string{"t1"})

	_, err := svc.SendFeedback(context.Background(), &domain.FeedbackForm{Description: "short"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, api.CallCount("SendFeedback"))

	outcome, err := svc.SendFeedback(context.Background(), &domain.FeedbackForm{
		Description: "The search box forgets my category filter.",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, outcome)

	got := notes.Notifications()
	require.Len(t, got, 1)
	assert.Equal(t, "FEEDBACK", got[0].Operation)
	assert.Equal(t, service.LevelSuccess, got[0].Level)
}
