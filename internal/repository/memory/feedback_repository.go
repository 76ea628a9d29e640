package memory

import (
	"context"
	"sync"
	"time"

	"campus-market/internal/domain"

	"github.com/google/uuid"
)

type FeedbackRepository struct {
	mu      sync.RWMutex
	reports []domain.Feedback
}

func NewFeedbackRepository() *FeedbackRepository {
	return &FeedbackRepository{}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	r.reports = append(r.reports, *f)
	return nil
}

func (r *FeedbackRepository) List(ctx context.Context) ([]domain.Feedback, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.Feedback(nil), r.reports...), nil
}
