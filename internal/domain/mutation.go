package domain

import (
	"errors"
	"sort"
	"strings"
)

var ErrInvalidMethod = errors.New("invalid mutation method")

// Method selects the server endpoint and verb of a mutation.
type Method string

const (
	MethodDelete     Method = "DELETE"
	MethodMarkSold   Method = "MARK SOLD"
	MethodMarkUnsold Method = "MARK UNSOLD"
	MethodRepost     Method = "REPOST"
	MethodCreate     Method = "CREATE"
	MethodUpdate     Method = "UPDATE"
)

// IsBatch reports whether the method goes through the batch endpoint.
func (m Method) IsBatch() bool {
	switch m {
	case MethodDelete, MethodMarkSold, MethodMarkUnsold, MethodRepost:
		return true
	}
	return false
}

// ParseMethod accepts the wire form ("MARK SOLD") and the CLI form ("mark-sold").
func ParseMethod(s string) (Method, error) {
	norm := strings.ToUpper(strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s)))
	switch m := Method(norm); m {
	case MethodDelete, MethodMarkSold, MethodMarkUnsold, MethodRepost, MethodCreate, MethodUpdate:
		return m, nil
	}
	return "", ErrInvalidMethod
}

// MutationRequest is one logical state-changing operation.
type MutationRequest struct {
	Method    Method
	TargetIDs []string
	Payload   any
}

// Validate enforces the shape rules: CREATE carries no ids, UPDATE exactly
// one, batch methods at least one. Empty ids are rejected everywhere.
func (r MutationRequest) Validate() error {
	for _, id := range r.TargetIDs {
		if strings.TrimSpace(id) == "" {
			return ErrInvalidInput
		}
	}
	switch {
	case r.Method == MethodCreate:
		if len(r.TargetIDs) != 0 {
			return ErrInvalidInput
		}
		if f, ok := r.Payload.(*ListingForm); !ok || f == nil {
			return ErrInvalidInput
		}
	case r.Method == MethodUpdate:
		if len(r.TargetIDs) != 1 {
			return ErrInvalidInput
		}
		if f, ok := r.Payload.(*ListingForm); !ok || f == nil {
			return ErrInvalidInput
		}
	case r.Method.IsBatch():
		if len(r.TargetIDs) == 0 {
			return ErrInvalidInput
		}
	default:
		return ErrInvalidMethod
	}
	return nil
}

// Key identifies the logical action independently of id order, so that a
// repeated submission of the same action can be recognised.
func (r MutationRequest) Key() string {
	ids := append([]string(nil), r.TargetIDs...)
	sort.Strings(ids)
	return string(r.Method) + ":" + strings.Join(ids, ",")
}

// Outcome is the single terminal result of a mutation.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeSuccess
	OutcomeUnauthorized
	OutcomeSessionExpired
	OutcomeExhausted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeSessionExpired:
		return "session_expired"
	case OutcomeExhausted:
		return "exhausted"
	}
	return "none"
}
