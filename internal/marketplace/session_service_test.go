package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"campus-market/internal/domain"
	"campus-market/internal/repository/memory"
	"campus-market/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_Login(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(security.DevVerifier{}, repo, time.Hour)

	session, err := svc.Login(context.Background(), "dev:f20220042@hyderabad.bits-pilani.ac.in:Ravi")
	require.NoError(t, err)

	assert.Equal(t, domain.CampusHyderabad, session.Campus)
	assert.Equal(t, "Ravi", session.Name)
	assert.NotEmpty(t, session.Token)
	assert.Len(t, session.CSRFToken, 64)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	stored, err := repo.GetByToken(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.CSRFToken, stored.CSRFToken)
}

func TestSessionService_Login_Rejects(t *testing.T) {
	svc := NewSessionService(security.DevVerifier{}, memory.NewSessionRepository(), 0)

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"malformed", "not-a-token", ErrInvalidCredentials},
		{"outside_bits", "dev:someone@gmail.com", domain.ErrNotBITSMail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.token)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
	assert.Equal(t, DefaultSessionTTL, svc.TTL())
}

func TestSessionService_RotateAndLogout(t *testing.T) {
	repo := memory.NewSessionRepository()
	svc := NewSessionService(security.DevVerifier{}, repo, time.Hour)
	ctx := context.Background()

	session, err := svc.Login(ctx, "dev:f20210001@goa.bits-pilani.ac.in")
	require.NoError(t, err)

	rotated, err := svc.RotateCSRF(ctx, session)
	require.NoError(t, err)
	assert.NotEqual(t, session.CSRFToken, rotated)

	stored, err := repo.GetByToken(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, rotated, stored.CSRFToken)

	require.NoError(t, svc.Logout(ctx, session.Token))
	_, err = repo.GetByToken(ctx, session.Token)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
