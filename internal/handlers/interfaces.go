package handlers

import (
	"context"

	"github.com/pairmesh/backend/internal/models"
	"github.com/pairmesh/backend/internal/relationships"
	"github.com/pairmesh/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionManager issues, refreshes and verifies authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Verify(accessToken string) (string, error)
}

// RelationshipService exposes the relationship lifecycle to HTTP handlers.
type RelationshipService interface {
	Create(ctx context.Context, requesterID, userA, userB, status string) (relationships.View, error)
	ConfirmFriendship(ctx context.Context, requesterID, relationshipID string) (relationships.View, error)
	Update(ctx context.Context, requesterID, relationshipID string, patch repositories.RelationshipPatch) (relationships.View, error)
	BlockUser(ctx context.Context, requesterID, blockedBy, target string) (relationships.View, error)
	FindMyRelationship(ctx context.Context, requesterID, relationshipID string) (relationships.View, error)
	ListForUser(ctx context.Context, requesterID string, params repositories.RelationshipListParams) (relationships.ListResult, error)
}

// MediaStore captures persistence for upload records.
type MediaStore interface {
	Create(ctx context.Context, upload models.MediaUpload) error
	FindByID(ctx context.Context, id string) (models.MediaUpload, error)
	ListForOwner(ctx context.Context, ownerID string) ([]models.MediaUpload, error)
}

// MediaIngestor schedules background transfer of upload payloads.
type MediaIngestor interface {
	Enqueue(ctx context.Context, upload models.MediaUpload, payload []byte) error
}

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Relationships RelationshipService
	Media         MediaStore
	MediaIngestor MediaIngestor
	AuthLimiter   RateLimiter
	MaxUploadSize int64
}
