package memory

import (
	"context"
	"sync"
	"time"

	"campus-market/internal/domain"
)

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.ServerSession
	now      func() time.Time
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*domain.ServerSession),
		now:      time.Now,
	}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.ServerSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.Token]; exists {
		return domain.ErrSessionExists
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = r.now()
	}
	stored := *session
	r.sessions[session.Token] = &stored
	return nil
}

// GetByToken returns the session if it has not expired.
func (r *SessionRepository) GetByToken(ctx context.Context, token string) (*domain.ServerSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[token]
	if !ok || !s.ExpiresAt.After(r.now()) {
		return nil, domain.ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.ServerSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.Token]; !ok {
		return domain.ErrSessionNotFound
	}
	stored := *session
	r.sessions[session.Token] = &stored
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, token)
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var count int64
	for token, s := range r.sessions {
		if !s.ExpiresAt.After(now) {
			delete(r.sessions, token)
			count++
		}
	}
	return count, nil
}
