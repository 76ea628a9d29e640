package security

import (
	"crypto/hmac"
	"crypto/rand"
	"encoding/hex"
	"errors"
)

var ErrInvalidToken = errors.New("invalid CSRF token")

// TokenManager issues anti-forgery tokens for the mock API. Tokens are
// random and remembered server-side on the session; verification is a
// constant-time comparison against the remembered value.
type TokenManager struct{}

// NewTokenManager creates a new CSRF token manager.
func NewTokenManager() *TokenManager {
	return &TokenManager{}
}

// Generate returns a 256-bit random token as a 64-character hex string.
func (tm *TokenManager) Generate() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(randomBytes), nil
}

// Verify compares a submitted token against the expected one.
func (tm *TokenManager) Verify(expected, submitted string) error {
	if expected == "" || submitted == "" {
		return ErrInvalidToken
	}
	if !hmac.Equal([]byte(expected), []byte(submitted)) {
		return ErrInvalidToken
	}
	return nil
}
