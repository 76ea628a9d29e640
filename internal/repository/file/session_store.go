package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"campus-market/internal/domain"
	"campus-market/internal/observability"
)

// SessionStore keeps the logged-in session in a single sealed JSON file.
type SessionStore struct {
	mu     sync.Mutex
	path   string
	sealer *Sealer
}

// NewSessionStore creates a store backed by path.
func NewSessionStore(path string, sealer *Sealer) *SessionStore {
	if sealer == nil {
		sealer = NewSealer("")
	}
	return &SessionStore{path: path, sealer: sealer}
}

// Load returns the stored session. Anything short of a complete, intact
// session clears the file and yields domain.ErrSessionNotFound.
func (s *SessionStore) Load() (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, s.discard("unreadable", err)
	}

	plain, err := s.sealer.Open(raw)
	if err != nil {
		return nil, s.discard("unsealable", err)
	}

	var session domain.Session
	if err := json.Unmarshal(plain, &session); err != nil {
		return nil, s.discard("malformed", err)
	}
	if !session.Complete() {
		return nil, s.discard("incomplete", nil)
	}

	return &session, nil
}

// Save replaces the stored session.
func (s *SessionStore) Save(session *domain.Session) error {
	if !session.Complete() {
		return fmt.Errorf("%w: incomplete session", domain.ErrInvalidInput)
	}

	plain, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	sealed, err := s.sealer.Seal(plain)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := writeFileAtomic(s.path, sealed); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *SessionStore) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// discard must be called with mu held.
func (s *SessionStore) discard(reason string, cause error) error {
	args := []any{"path", s.path, "reason", reason}
	if cause != nil {
		args = append(args, "error", cause)
	}
	observability.Warn("Discarding stored session", args...)

	if err := s.remove(); err != nil {
		observability.Error("Failed to clear discarded session", "error", err)
	}
	return domain.ErrSessionNotFound
}
