package repositories

import (
	"context"

	"github.com/pairmesh/backend/internal/models"
)

// ConversationRepository defines data access for conversations.
type ConversationRepository interface {
	Create(ctx context.Context, conversation models.Conversation) error
	FindByID(ctx context.Context, id string) (models.Conversation, error)
}

// MembershipRepository defines data access for conversation memberships.
type MembershipRepository interface {
	Create(ctx context.Context, membership models.Membership) error
	ListForConversation(ctx context.Context, conversationID string) ([]models.Membership, error)
	ListForUser(ctx context.Context, userID string) ([]models.Membership, error)
}
