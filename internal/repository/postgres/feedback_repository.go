package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"campus-market/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type FeedbackRepository struct {
	db *sql.DB
}

func NewFeedbackRepository(db *sql.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func (r *FeedbackRepository) Create(ctx context.Context, f *domain.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	if f.Images == nil {
		f.Images = []string{}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feedback (id, email, description, images, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, f.ID, f.Email, f.Description, pq.Array(f.Images), f.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	return nil
}

// List returns every report, oldest first.
func (r *FeedbackRepository) List(ctx context.Context) ([]domain.Feedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, description, images, created_at
		FROM feedback
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var reports []domain.Feedback
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.Email, &f.Description, pq.Array(&f.Images), &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		reports = append(reports, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}
	return reports, nil
}
