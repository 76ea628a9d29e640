package postgres

import (
	"errors"

	"github.com/lib/pq"
)

const (
	pqUniqueViolation = "23505"

	constraintSessionsPK = "sessions_pkey"
	constraintListingsPK = "listings_pkey"
)

// IsUniqueViolation reports whether err is a unique violation on constraint,
// or on any constraint when constraint is empty.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || string(pqErr.Code) != pqUniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}
