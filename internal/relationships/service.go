package relationships

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pairmesh/backend/internal/models"
	"github.com/pairmesh/backend/internal/repositories"
)

// Store captures the relationship persistence operations required by the service.
type Store interface {
	Create(ctx context.Context, rel models.Relationship) (models.Relationship, error)
	FindByID(ctx context.Context, id string) (models.Relationship, error)
	FindByUserPair(ctx context.Context, userA, userB string) (models.Relationship, error)
	Update(ctx context.Context, id string, patch repositories.RelationshipPatch) (models.Relationship, error)
	ListForUser(ctx context.Context, userID string, params repositories.RelationshipListParams) ([]models.Relationship, int, error)
}

// UserDirectory resolves user identifiers for existence checks and view population.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// ConversationStore creates the private conversation attached when two users
// become friends.
type ConversationStore interface {
	Create(ctx context.Context, conversation models.Conversation) error
}

// MembershipStore creates the per-participant membership records.
type MembershipStore interface {
	Create(ctx context.Context, membership models.Membership) error
}

// Service enforces the relationship state machine and authorization rules
// around the store. It holds no mutable state of its own; all state lives in
// the backing stores, and the canonical-pair uniqueness constraint is the
// only guard against concurrent duplicate creation.
type Service struct {
	Relationships Store
	Users         UserDirectory
	Conversations ConversationStore
	Memberships   MembershipStore
	NowFunc       func() time.Time
}

// NewService wires a relationship service over the provided collaborators.
func NewService(rels Store, users UserDirectory, conversations ConversationStore, memberships MembershipStore) *Service {
	return &Service{
		Relationships: rels,
		Users:         users,
		Conversations: conversations,
		Memberships:   memberships,
	}
}

// ListResult carries a populated page of relationships plus pagination metadata.
type ListResult struct {
	Data  []View
	Page  int
	Size  int
	Count int
}

// Create validates and persists a new relationship request between two users.
// The stored pair is always canonical (UserA <= UserB); when the caller's
// argument order is swapped relative to canonical order, the request status
// is remapped so it keeps naming the initiating user's slot.
func (s *Service) Create(ctx context.Context, requesterID, userA, userB, status string) (View, error) {
	userA = strings.TrimSpace(userA)
	userB = strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return View{}, fmt.Errorf("%w: both users are required", ErrValidation)
	}
	if userA == userB {
		return View{}, fmt.Errorf("%w: a relationship requires two distinct users", ErrValidation)
	}

	status = strings.ToLower(strings.TrimSpace(status))
	if status != models.StatusRequestUserA && status != models.StatusRequestUserB {
		return View{}, fmt.Errorf("%w: initial status must be a request, got %q", ErrValidation, status)
	}

	if requesterID != userA && requesterID != userB {
		return View{}, fmt.Errorf("%w: requester must be one of the pair", ErrUnauthorized)
	}

	for _, id := range []string{userA, userB} {
		if _, err := s.Users.FindByID(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return View{}, fmt.Errorf("%w: user %s", ErrNotFound, id)
			}
			return View{}, fmt.Errorf("look up user %s: %w", id, err)
		}
	}

	lo, hi := models.CanonicalPair(userA, userB)
	if lo != userA {
		// The arguments arrived swapped; flip the status so it still points
		// at the slot the initiator ended up in.
		if status == models.StatusRequestUserA {
			status = models.StatusRequestUserB
		} else {
			status = models.StatusRequestUserA
		}
	}

	// Pre-check for an existing record. A concurrent creation can still slip
	// between this lookup and the insert; the store's uniqueness constraint
	// resolves that race and surfaces it as a conflict.
	existing, err := s.Relationships.FindByUserPair(ctx, lo, hi)
	switch {
	case err == nil:
		if existing.Status != models.StatusAway {
			return View{}, fmt.Errorf("%w: pair %s/%s", ErrConflict, lo, hi)
		}
	case errors.Is(err, repositories.ErrNotFound):
		// No record yet, the normal case.
	default:
		return View{}, fmt.Errorf("look up existing relationship: %w", err)
	}

	now := s.now()
	created, err := s.Relationships.Create(ctx, models.Relationship{
		ID:        uuid.NewString(),
		UserA:     lo,
		UserB:     hi,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return View{}, fmt.Errorf("%w: pair %s/%s", ErrConflict, lo, hi)
		}
		return View{}, fmt.Errorf("create relationship: %w", err)
	}

	return s.populate(ctx, created)
}

// ConfirmFriendship promotes a pending request to friends, creating the
// private conversation and its two memberships first. The requester becomes
// the conversation host.
func (s *Service) ConfirmFriendship(ctx context.Context, requesterID, relationshipID string) (View, error) {
	rel, err := s.Relationships.FindByID(ctx, relationshipID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return View{}, fmt.Errorf("%w: relationship %s", ErrNotFound, relationshipID)
		}
		return View{}, fmt.Errorf("look up relationship: %w", err)
	}

	if rel.Status == models.StatusFriends {
		return View{}, fmt.Errorf("%w: relationship is already confirmed", ErrValidation)
	}
	if !rel.HasParticipant(requesterID) {
		return View{}, fmt.Errorf("%w: requester is not a participant", ErrUnauthorized)
	}

	now := s.now()
	conversation := models.Conversation{
		ID:        uuid.NewString(),
		Kind:      models.ConversationPrivate,
		Name:      fmt.Sprintf("private-%s", rel.ID),
		CreatedBy: requesterID,
		CreatedAt: now,
	}
	other := rel.OtherParticipant(requesterID)

	var updated models.Relationship
	steps := []confirmStep{
		{name: "create conversation", run: func(ctx context.Context) error {
			return s.Conversations.Create(ctx, conversation)
		}},
		{name: "create host membership", run: func(ctx context.Context) error {
			return s.Memberships.Create(ctx, models.Membership{
				ID:             uuid.NewString(),
				ConversationID: conversation.ID,
				UserID:         requesterID,
				Role:           models.RoleHost,
				JoinedAt:       now,
			})
		}},
		{name: "create member membership", run: func(ctx context.Context) error {
			return s.Memberships.Create(ctx, models.Membership{
				ID:             uuid.NewString(),
				ConversationID: conversation.ID,
				UserID:         other,
				Role:           models.RoleMember,
				JoinedAt:       now,
			})
		}},
		{name: "mark friends", run: func(ctx context.Context) error {
			status := models.StatusFriends
			var err error
			updated, err = s.Relationships.Update(ctx, rel.ID, repositories.RelationshipPatch{
				Status:         &status,
				ConversationID: &conversation.ID,
			})
			return err
		}},
	}

	if err := runConfirmSequence(ctx, rel.ID, steps); err != nil {
		return View{}, fmt.Errorf("confirm friendship: %w", err)
	}

	return s.populate(ctx, updated)
}

// Update applies a generic field patch after an existence check. No
// transition validation happens here beyond the record existing.
func (s *Service) Update(ctx context.Context, requesterID, relationshipID string, patch repositories.RelationshipPatch) (View, error) {
	if _, err := s.Relationships.FindByID(ctx, relationshipID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return View{}, fmt.Errorf("%w: relationship %s", ErrNotFound, relationshipID)
		}
		return View{}, fmt.Errorf("look up relationship: %w", err)
	}

	if patch.Status != nil {
		normalized := strings.ToLower(strings.TrimSpace(*patch.Status))
		patch.Status = &normalized
	}

	updated, err := s.Relationships.Update(ctx, relationshipID, patch)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return View{}, fmt.Errorf("%w: relationship %s", ErrNotFound, relationshipID)
		}
		return View{}, fmt.Errorf("update relationship: %w", err)
	}

	return s.populate(ctx, updated)
}

// BlockUser records that blockedBy blocked target. The block direction is
// encoded in the status using the blocker's canonical slot; the record is
// never deleted.
func (s *Service) BlockUser(ctx context.Context, requesterID, blockedBy, target string) (View, error) {
	if _, err := s.Users.FindByID(ctx, blockedBy); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return View{}, fmt.Errorf("%w: user %s", ErrNotFound, blockedBy)
		}
		return View{}, fmt.Errorf("look up user %s: %w", blockedBy, err)
	}

	if blockedBy != requesterID {
		return View{}, fmt.Errorf("%w: a user may only block on their own behalf", ErrUnauthorized)
	}

	if _, err := s.Users.FindByID(ctx, target); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return View{}, fmt.Errorf("%w: user %s", ErrNotFound, target)
		}
		return View{}, fmt.Errorf("look up user %s: %w", target, err)
	}

	rel, err := s.Relationships.FindByUserPair(ctx, blockedBy, target)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return View{}, fmt.Errorf("%w: no relationship between %s and %s", ErrNotFound, blockedBy, target)
		}
		return View{}, fmt.Errorf("look up relationship: %w", err)
	}

	if rel.Blocked() {
		return View{}, fmt.Errorf("%w: relationship is already blocked", ErrValidation)
	}

	status := models.StatusBlockedUserB
	if rel.UserA == blockedBy {
		status = models.StatusBlockedUserA
	}

	now := s.now()
	updated, err := s.Relationships.Update(ctx, rel.ID, repositories.RelationshipPatch{
		Status:    &status,
		BlockedAt: &now,
	})
	if err != nil {
		return View{}, fmt.Errorf("block relationship: %w", err)
	}

	return s.populate(ctx, updated)
}

// FindMyRelationship fetches a relationship by id and verifies the requester
// participates in it.
func (s *Service) FindMyRelationship(ctx context.Context, requesterID, relationshipID string) (View, error) {
	rel, err := s.Relationships.FindByID(ctx, relationshipID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return View{}, fmt.Errorf("%w: relationship %s", ErrNotFound, relationshipID)
		}
		return View{}, fmt.Errorf("look up relationship: %w", err)
	}

	if !rel.HasParticipant(requesterID) {
		return View{}, fmt.Errorf("%w: requester is not a participant", ErrUnauthorized)
	}

	return s.populate(ctx, rel)
}

// ListForUser returns the requester's unblocked relationships with populated
// participants and pagination metadata. The status filter is matched
// case-insensitively.
func (s *Service) ListForUser(ctx context.Context, requesterID string, params repositories.RelationshipListParams) (ListResult, error) {
	params.Status = strings.ToLower(strings.TrimSpace(params.Status))
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = repositories.DefaultPageSize
	}
	if params.Size > repositories.MaxPageSize {
		params.Size = repositories.MaxPageSize
	}

	rels, count, err := s.Relationships.ListForUser(ctx, requesterID, params)
	if err != nil {
		return ListResult{}, fmt.Errorf("list relationships: %w", err)
	}

	views, err := s.populateAll(ctx, rels)
	if err != nil {
		return ListResult{}, err
	}

	return ListResult{Data: views, Page: params.Page, Size: params.Size, Count: count}, nil
}

func (s *Service) now() time.Time {
	if s.NowFunc != nil {
		return s.NowFunc()
	}
	return time.Now().UTC()
}
