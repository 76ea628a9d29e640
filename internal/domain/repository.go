package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Types below back the reference API server used for local runs and tests.

var (
	ErrForbidden     = errors.New("forbidden")
	ErrNotBITSMail   = errors.New("email does not belong to a BITS campus")
	ErrSessionExists = errors.New("session token already in use")
)

var campusDomains = map[string]Campus{
	"pilani.bits-pilani.ac.in":    CampusPilani,
	"goa.bits-pilani.ac.in":       CampusGoa,
	"hyderabad.bits-pilani.ac.in": CampusHyderabad,
	"dubai.bits-pilani.ac.in":     CampusDubai,
}

// CampusFromEmail derives the campus from a BITS email address.
func CampusFromEmail(email string) (Campus, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "", ErrNotBITSMail
	}
	if c, ok := campusDomains[strings.ToLower(email[at+1:])]; ok {
		return c, nil
	}
	return "", ErrNotBITSMail
}

// ServerSession is a logged-in browser session as the server tracks it.
type ServerSession struct {
	Token     string
	CSRFToken string
	Identity
	Campus    Campus
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Feedback is a stored feedback report.
type Feedback struct {
	ID          string
	Email       string
	Description string
	Images      []string
	CreatedAt   time.Time
}

// ListingRepository stores listings.
type ListingRepository interface {
	Search(ctx context.Context, f Filters) (*Page, error)
	GetByID(ctx context.Context, id string) (*Listing, error)
	Similar(ctx context.Context, l *Listing, limit int) ([]Listing, error)
	ListBySeller(ctx context.Context, email string) ([]Listing, error)
	Create(ctx context.Context, l *Listing) error
	Update(ctx context.Context, l *Listing) error
	// ApplyBatch applies method to every id or to none. It returns
	// ErrForbidden when any id is missing or owned by someone else.
	ApplyBatch(ctx context.Context, sellerEmail string, method Method, ids []string) error
}

// ServerSessionRepository stores server sessions.
type ServerSessionRepository interface {
	Create(ctx context.Context, session *ServerSession) error
	GetByToken(ctx context.Context, token string) (*ServerSession, error)
	Update(ctx context.Context, session *ServerSession) error
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

// FeedbackRepository stores feedback reports.
type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) error
	List(ctx context.Context) ([]Feedback, error)
}
