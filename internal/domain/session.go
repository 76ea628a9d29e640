package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrInvalidCampus   = errors.New("invalid campus")
)

// Campus is the BITS campus a user (or a listing) belongs to.
type Campus string

const (
	CampusPilani      Campus = "Pilani"
	CampusGoa         Campus = "Goa"
	CampusHyderabad   Campus = "Hyderabad"
	CampusDubai       Campus = "Dubai"
	CampusAllCampuses Campus = "All Campuses"
)

// Campuses lists every campus value the API understands, in display order.
var Campuses = []Campus{
	CampusPilani,
	CampusGoa,
	CampusHyderabad,
	CampusDubai,
	CampusAllCampuses,
}

// Valid reports whether c is one of the known campuses.
func (c Campus) Valid() bool {
	for _, known := range Campuses {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCampus accepts a campus name case-insensitively. "all" and
// "allcampuses" are accepted as shorthands for All Campuses.
func ParseCampus(s string) (Campus, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	switch norm {
	case "all", "allcampuses":
		return CampusAllCampuses, nil
	}
	for _, c := range Campuses {
		if strings.ToLower(string(c)) == norm {
			return c, nil
		}
	}
	return "", ErrInvalidCampus
}

// Identity is who the third-party identity provider says the user is.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Session is the client's durable record that a user is logged in.
type Session struct {
	Identity
	Campus   Campus    `json:"campus"`
	IssuedAt time.Time `json:"issued_at"`
}

// Complete reports whether every field a logged-in session needs is present.
// A session that fails this check must never be handed to callers.
func (s *Session) Complete() bool {
	return s != nil && s.Email != "" && s.Campus.Valid() && !s.IssuedAt.IsZero()
}

// SessionStore persists the logged-in identity across restarts.
//
// Load returns ErrSessionNotFound when nothing usable is stored; in that case
// the store has already been cleared.
type SessionStore interface {
	Load() (*Session, error)
	Save(session *Session) error
	Clear() error
}
