package repositories

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist. Callers that
	// treat absence as a normal outcome check for this sentinel explicitly.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness
	// constraint, such as the canonical-pair index on relationships.
	ErrConflict = errors.New("record conflict")
)
