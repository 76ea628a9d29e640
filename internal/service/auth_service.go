package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/observability"
)

var ErrLoginFailed = errors.New("login failed")

// CookieClearer drops the ambient credentials. *file.CookieJar implements it.
type CookieClearer interface {
	Clear() error
}

type AuthService struct {
	api      MarketAPI
	exec     *MutationExecutor
	sessions domain.SessionStore
	cookies  CookieClearer
	now      func() time.Time
}

func NewAuthService(api MarketAPI, exec *MutationExecutor, sessions domain.SessionStore, cookies CookieClearer) *AuthService {
	return &AuthService{
		api:      api,
		exec:     exec,
		sessions: sessions,
		cookies:  cookies,
		now:      time.Now,
	}
}

// Login runs the two-step identity exchange. The first call trades the ID
// token for session cookies; the second, protected by the anti-forgery
// token those cookies carry, asks the server for the campus. The session
// is saved only once both have succeeded.
func (s *AuthService) Login(ctx context.Context, idToken string) (*domain.Session, error) {
	if idToken == "" {
		return nil, domain.ErrInvalidInput
	}

	identity, err := s.api.ExchangeIdentity(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}

	var campus domain.Campus
	outcome, err := s.exec.Do(ctx, Operation{
		Name: "LOGIN",
		Key:  "LOGIN",
		Attempt: func(ctx context.Context, token string) error {
			c, err := s.api.ResolveCampus(ctx, token)
			if err == nil {
				campus = c
			}
			return err
		},
		SuccessMessage: "Logged in as " + identity.Email + ".",
	})
	if err != nil {
		return nil, err
	}
	if outcome != domain.OutcomeSuccess {
		return nil, fmt.Errorf("%w: campus lookup ended %s", ErrLoginFailed, outcome)
	}

	session := &domain.Session{
		Identity: *identity,
		Campus:   campus,
		IssuedAt: s.now().UTC(),
	}
	if err := s.sessions.Save(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	observability.FromContext(observability.WithUserEmail(ctx, identity.Email)).Info("Logged in",
		slog.String("campus", string(campus)),
	)
	return session, nil
}

// Logout ends the server session and then drops local state whatever the
// server said: a user who asks to log out is logged out locally.
func (s *AuthService) Logout(ctx context.Context) (domain.Outcome, error) {
	outcome, err := s.exec.Do(ctx, Operation{
		Name:           "LOGOUT",
		Key:            "LOGOUT",
		Attempt:        s.api.Logout,
		SuccessMessage: "Logged out.",
		EndsSession:    true,
	})
	if errors.Is(err, ErrActionInFlight) {
		return outcome, err
	}

	observability.SessionClearsTotal.WithLabelValues("logout").Inc()
	if clearErr := s.sessions.Clear(); clearErr != nil {
		return outcome, clearErr
	}
	if s.cookies != nil {
		if clearErr := s.cookies.Clear(); clearErr != nil {
			return outcome, clearErr
		}
	}
	return outcome, nil
}

// Current returns the stored session, or domain.ErrSessionNotFound.
func (s *AuthService) Current() (*domain.Session, error) {
	return s.sessions.Load()
}
