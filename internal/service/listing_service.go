package service

import (
	"context"

	"campus-market/internal/domain"
	"campus-market/internal/validation"
)

// ListingService validates forms and hands the resulting mutations to the
// executor. Nothing that fails validation reaches the network.
type ListingService struct {
	api       MarketAPI
	exec      *MutationExecutor
	validator *validation.Validator
}

func NewListingService(api MarketAPI, exec *MutationExecutor) *ListingService {
	return &ListingService{
		api:       api,
		exec:      exec,
		validator: validation.Global(),
	}
}

func (s *ListingService) Create(ctx context.Context, form *domain.ListingForm) (domain.Outcome, error) {
	if err := s.validator.Struct(form); err != nil {
		return domain.OutcomeNone, err
	}
	return s.exec.Execute(ctx, domain.MutationRequest{Method: domain.MethodCreate, Payload: form})
}

func (s *ListingService) Update(ctx context.Context, id string, form *domain.ListingForm) (domain.Outcome, error) {
	if err := s.validator.Struct(form); err != nil {
		return domain.OutcomeNone, err
	}
	return s.exec.Execute(ctx, domain.MutationRequest{
		Method:    domain.MethodUpdate,
		TargetIDs: []string{id},
		Payload:   form,
	})
}

// Batch applies a batch method to ids as one request with one outcome.
func (s *ListingService) Batch(ctx context.Context, method domain.Method, ids []string) (domain.Outcome, error) {
	if !method.IsBatch() {
		return domain.OutcomeNone, domain.ErrInvalidMethod
	}
	return s.exec.Execute(ctx, domain.MutationRequest{Method: method, TargetIDs: ids})
}

func (s *ListingService) SendFeedback(ctx context.Context, form *domain.FeedbackForm) (domain.Outcome, error) {
	if err := s.validator.Struct(form); err != nil {
		return domain.OutcomeNone, err
	}
	return s.exec.Do(ctx, Operation{
		Name: "FEEDBACK",
		Key:  "FEEDBACK",
		Attempt: func(ctx context.Context, token string) error {
			return s.api.SendFeedback(ctx, token, form)
		},
		SuccessMessage: "Thanks for the feedback!",
	})
}
