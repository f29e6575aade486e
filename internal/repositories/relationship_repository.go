package repositories

import (
	"context"
	"time"

	"github.com/pairmesh/backend/internal/models"
)

// RelationshipPatch describes a partial update to a relationship record. Nil
// fields are left untouched.
type RelationshipPatch struct {
	Status         *string
	BlockedAt      *time.Time
	ConversationID *string
}

// RelationshipListParams controls filtering, ordering, and pagination of
// relationship listings. Status filtering is exact after the service has
// lowercased the caller's value; SortField and SortDir are validated against
// a whitelist by the implementation.
type RelationshipListParams struct {
	Status    string
	SortField string
	SortDir   string
	Page      int
	Size      int
}

// Relationship listing defaults and bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// RelationshipRepository defines durable storage for relationship records.
type RelationshipRepository interface {
	// Create inserts a relationship for a canonical pair. An existing row for
	// the same pair in the away state is reclaimed in place; any other
	// existing row yields ErrConflict.
	Create(ctx context.Context, rel models.Relationship) (models.Relationship, error)
	FindByID(ctx context.Context, id string) (models.Relationship, error)
	// FindByUserPair canonicalizes the pair before lookup. Absence is a
	// normal outcome and surfaces as ErrNotFound.
	FindByUserPair(ctx context.Context, userA, userB string) (models.Relationship, error)
	Update(ctx context.Context, id string, patch RelationshipPatch) (models.Relationship, error)
	// ListForUser returns unblocked relationships where the user occupies
	// either slot, plus the total count for pagination metadata.
	ListForUser(ctx context.Context, userID string, params RelationshipListParams) ([]models.Relationship, int, error)
}
