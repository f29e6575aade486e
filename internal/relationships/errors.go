package relationships

import "errors"

// Failure taxonomy surfaced to callers. Every operation returns one of these
// sentinels (wrapped with context) or an internal error carrying the storage
// cause; nothing is swallowed or retried.
var (
	// ErrValidation indicates malformed or contradictory input, such as a
	// same-user pair or a disallowed initial status.
	ErrValidation = errors.New("invalid relationship request")
	// ErrNotFound indicates a referenced user or relationship does not exist.
	ErrNotFound = errors.New("relationship or user not found")
	// ErrConflict indicates a relationship already exists for the pair.
	ErrConflict = errors.New("relationship already exists")
	// ErrUnauthorized indicates the requester is not the acting party or not
	// a participant of the relationship.
	ErrUnauthorized = errors.New("requester not permitted")
)
