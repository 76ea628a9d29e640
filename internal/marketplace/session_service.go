// Package marketplace holds the business rules of the reference API: who
// may log in, what a listing looks like once stored, and who may change it.
package marketplace

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/security"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a server session lives.
const DefaultSessionTTL = 24 * time.Hour

var ErrInvalidCredentials = errors.New("invalid identity token")

type SessionService struct {
	verifier security.IdentityVerifier
	sessions domain.ServerSessionRepository
	tokens   *security.TokenManager
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionService(verifier security.IdentityVerifier, sessions domain.ServerSessionRepository, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{
		verifier: verifier,
		sessions: sessions,
		tokens:   security.NewTokenManager(),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login verifies idToken and opens a session with a fresh anti-forgery
// token. Only BITS mail accounts get in.
func (s *SessionService) Login(ctx context.Context, idToken string) (*domain.ServerSession, error) {
	identity, err := s.verifier.Verify(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	campus, err := domain.CampusFromEmail(identity.Email)
	if err != nil {
		return nil, err
	}

	csrfToken, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	now := s.now()
	session := &domain.ServerSession{
		Token:     uuid.New().String(),
		CSRFToken: csrfToken,
		Identity:  *identity,
		Campus:    campus,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RotateCSRF replaces the session's anti-forgery token. Requests carrying
// the old one are rejected from then on.
func (s *SessionService) RotateCSRF(ctx context.Context, session *domain.ServerSession) (string, error) {
	token, err := s.tokens.Generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate CSRF token: %w", err)
	}
	updated := *session
	updated.CSRFToken = token
	if err := s.sessions.Update(ctx, &updated); err != nil {
		return "", err
	}
	return token, nil
}

func (s *SessionService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// TTL is the lifetime given to new sessions.
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}
