package security

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"campus-market/internal/domain"

	"google.golang.org/api/idtoken"
)

var ErrInvalidIdentity = errors.New("invalid identity token")

// IdentityVerifier turns a third-party identity token into an Identity.
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*domain.Identity, error)
}

// GoogleVerifier validates Google-issued ID tokens against the OAuth client id.
type GoogleVerifier struct {
	clientID string
	validate func(ctx context.Context, token, audience string) (*idtoken.Payload, error)
}

// NewGoogleVerifier creates a verifier for tokens issued to clientID.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{
		clientID: clientID,
		validate: idtoken.Validate,
	}
}

// Verify checks signature, audience and expiry, then requires a verified email.
func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*domain.Identity, error) {
	payload, err := g.validate(ctx, token, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	email, _ := payload.Claims["email"].(string)
	verified, _ := payload.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, fmt.Errorf("%w: email missing or unverified", ErrInvalidIdentity)
	}

	name, _ := payload.Claims["name"].(string)
	return &domain.Identity{Email: email, Name: name}, nil
}

// DevVerifier accepts unsigned tokens of the form "dev:<email>:<name>".
// It exists for local runs of the mock API and must never be used in
// production.
type DevVerifier struct{}

// Verify parses a dev token.
func (DevVerifier) Verify(_ context.Context, token string) (*domain.Identity, error) {
	parts := strings.SplitN(token, ":", 3)
	if len(parts) < 2 || parts[0] != "dev" || !strings.Contains(parts[1], "@") {
		return nil, ErrInvalidIdentity
	}
	id := &domain.Identity{Email: parts[1]}
	if len(parts) == 3 {
		id.Name = parts[2]
	}
	return id, nil
}
