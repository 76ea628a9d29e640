package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/idtoken"
)

func TestGoogleVerifier_Verify(t *testing.T) {
	payloadWith := func(claims map[string]interface{}) func(context.Context, string, string) (*idtoken.Payload, error) {
		return func(_ context.Context, _, audience string) (*idtoken.Payload, error) {
			return &idtoken.Payload{Audience: audience, Claims: claims}, nil
		}
	}

	t.Run("verified_email", func(t *testing.T) {
		v := NewGoogleVerifier("client-123")
		v.validate = payloadWith(map[string]interface{}{
			"email":          "f20210001@goa.bits-pilani.ac.in",
			"email_verified": true,
			"name":           "Asha",
		})

		id, err := v.Verify(context.Background(), "token")
		require.NoError(t, err)
		assert.Equal(t, "f20210001@goa.bits-pilani.ac.in", id.Email)
		assert.Equal(t, "Asha", id.Name)
	})

	t.Run("unverified_email", func(t *testing.T) {
		v := NewGoogleVerifier("client-123")
		v.validate = payloadWith(map[string]interface{}{
			"email":          "someone@example.com",
			"email_verified": false,
		})

		_, err := v.Verify(context.Background(), "token")
		assert.ErrorIs(t, err, ErrInvalidIdentity)
	})

	t.Run("validation_fails", func(t *testing.T) {
		v := NewGoogleVerifier("client-123")
		v.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
			return nil, errors.New("audience mismatch")
		}

		_, err := v.Verify(context.Background(), "token")
		assert.ErrorIs(t, err, ErrInvalidIdentity)
		assert.Contains(t, err.Error(), "audience mismatch")
	})
}

func TestDevVerifier_Verify(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		wantEmail string
		wantName  string
		wantErr   bool
	}{
		{"email_and_name", "dev:a@pilani.bits-pilani.ac.in:Asha", "a@pilani.bits-pilani.ac.in", "Asha", false},
		{"email_only", "dev:b@goa.bits-pilani.ac.in", "b@goa.bits-pilani.ac.in", "", false},
		{"wrong_prefix", "prod:a@x.y:A", "", "", true},
		{"not_an_email", "dev:nobody", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := DevVerifier{}.Verify(context.Background(), tt.token)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidIdentity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEmail, id.Email)
			assert.Equal(t, tt.wantName, id.Name)
		})
	}
}
