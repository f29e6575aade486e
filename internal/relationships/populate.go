package relationships

import (
	"context"
	"fmt"
	"time"

	"github.com/pairmesh/backend/internal/models"
)

// View is a relationship with participant ids resolved to public user
// summaries. Every externally-returned relationship goes through this shape;
// password hashes and soft-delete markers never leave the service.
type View struct {
	ID             string             `json:"id"`
	UserA          models.UserSummary `json:"userA"`
	UserB          models.UserSummary `json:"userB"`
	Status         string             `json:"status"`
	BlockedAt      *time.Time         `json:"blockedAt,omitempty"`
	ConversationID *string            `json:"conversationId,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// populate resolves the participant references of a single record.
func (s *Service) populate(ctx context.Context, rel models.Relationship) (View, error) {
	views, err := s.populateAll(ctx, []models.Relationship{rel})
	if err != nil {
		return View{}, err
	}
	return views[0], nil
}

// populateAll resolves participant references for a batch of records,
// looking each distinct user up once.
func (s *Service) populateAll(ctx context.Context, rels []models.Relationship) ([]View, error) {
	summaries := make(map[string]models.UserSummary)
	for _, rel := range rels {
		for _, id := range []string{rel.UserA, rel.UserB} {
			if _, ok := summaries[id]; ok {
				continue
			}
			user, err := s.Users.FindByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve user %s: %w", id, err)
			}
			summaries[id] = user.Summary()
		}
	}

	views := make([]View, 0, len(rels))
	for _, rel := range rels {
		views = append(views, View{
			ID:             rel.ID,
			UserA:          summaries[rel.UserA],
			UserB:          summaries[rel.UserB],
			Status:         rel.Status,
			BlockedAt:      rel.BlockedAt,
			ConversationID: rel.ConversationID,
			CreatedAt:      rel.CreatedAt,
			UpdatedAt:      rel.UpdatedAt,
		})
	}

	return views, nil
}
