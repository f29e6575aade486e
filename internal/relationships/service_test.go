package relationships

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pairmesh/backend/internal/models"
	"github.com/pairmesh/backend/internal/repositories"
)

type fakeRelationshipStore struct {
	rels      map[string]models.Relationship
	createErr error
	updateErr error
}

func newFakeRelationshipStore() *fakeRelationshipStore {
	return &fakeRelationshipStore{rels: make(map[string]models.Relationship)}
}

func (s *fakeRelationshipStore) Create(_ context.Context, rel models.Relationship) (models.Relationship, error) {
	if s.createErr != nil {
		return models.Relationship{}, s.createErr
	}
	for id, existing := range s.rels {
		if existing.UserA == rel.UserA && existing.UserB == rel.UserB {
			if existing.Status != models.StatusAway {
				return models.Relationship{}, repositories.ErrConflict
			}
			// Reclaim the away row in place, keeping its identity.
			existing.Status = rel.Status
			existing.BlockedAt = nil
			existing.ConversationID = nil
			existing.UpdatedAt = rel.UpdatedAt
			s.rels[id] = existing
			return existing, nil
		}
	}
	s.rels[rel.ID] = rel
	return rel, nil
}

func (s *fakeRelationshipStore) FindByID(_ context.Context, id string) (models.Relationship, error) {
	rel, ok := s.rels[id]
	if !ok {
		return models.Relationship{}, repositories.ErrNotFound
	}
	return rel, nil
}

func (s *fakeRelationshipStore) FindByUserPair(_ context.Context, userA, userB string) (models.Relationship, error) {
	lo, hi := models.CanonicalPair(userA, userB)
	for _, rel := range s.rels {
		if rel.UserA == lo && rel.UserB == hi {
			return rel, nil
		}
	}
	return models.Relationship{}, repositories.ErrNotFound
}

func (s *fakeRelationshipStore) Update(_ context.Context, id string, patch repositories.RelationshipPatch) (models.Relationship, error) {
	if s.updateErr != nil {
		return models.Relationship{}, s.updateErr
	}
	rel, ok := s.rels[id]
	if !ok {
		return models.Relationship{}, repositories.ErrNotFound
	}
	if patch.Status != nil {
		rel.Status = *patch.Status
	}
	if patch.BlockedAt != nil {
		t := *patch.BlockedAt
		rel.BlockedAt = &t
	}
	if patch.ConversationID != nil {
		c := *patch.ConversationID
		rel.ConversationID = &c
	}
	rel.UpdatedAt = time.Now().UTC()
	s.rels[id] = rel
	return rel, nil
}

func (s *fakeRelationshipStore) ListForUser(_ context.Context, userID string, params repositories.RelationshipListParams) ([]models.Relationship, int, error) {
	var out []models.Relationship
	for _, rel := range s.rels {
		if !rel.HasParticipant(userID) || rel.BlockedAt != nil {
			continue
		}
		if params.Status != "" && rel.Status != params.Status {
			continue
		}
		out = append(out, rel)
	}
	return out, len(out), nil
}

type fakeUserDirectory struct {
	users map[string]models.User
}

func (d *fakeUserDirectory) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := d.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

type fakeConversationStore struct {
	created []models.Conversation
	err     error
}

func (s *fakeConversationStore) Create(_ context.Context, conversation models.Conversation) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, conversation)
	return nil
}

type fakeMembershipStore struct {
	created []models.Membership
	err     error
}

func (s *fakeMembershipStore) Create(_ context.Context, membership models.Membership) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, membership)
	return nil
}

func newTestService(userIDs ...string) (*Service, *fakeRelationshipStore, *fakeConversationStore, *fakeMembershipStore) {
	users := make(map[string]models.User, len(userIDs))
	for _, id := range userIDs {
		users[id] = models.User{ID: id, Email: id + "@example.com", Password: "secret-hash", DisplayName: id}
	}

	rels := newFakeRelationshipStore()
	conversations := &fakeConversationStore{}
	memberships := &fakeMembershipStore{}

	svc := NewService(rels, &fakeUserDirectory{users: users}, conversations, memberships)
	svc.NowFunc = func() time.Time { return time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC) }
	return svc, rels, conversations, memberships
}

func TestCreateStoresCanonicalPair(t *testing.T) {
	svc, rels, _, _ := newTestService("u1", "u2")

	view, err := svc.Create(context.Background(), "u2", "u2", "u1", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, err := rels.FindByID(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.UserA != "u1" || stored.UserB != "u2" {
		t.Fatalf("expected canonical pair (u1, u2), got (%s, %s)", stored.UserA, stored.UserB)
	}
}

func TestCreateRemapsStatusOnSwappedArguments(t *testing.T) {
	// u1 < u2; the caller passes userA=u2, userB=u1 with request_user_b,
	// meaning u1 initiated. After canonicalization u1 occupies slot A, so the
	// stored status must be request_user_a to keep naming the initiator.
	svc, rels, _, _ := newTestService("u1", "u2")

	view, err := svc.Create(context.Background(), "u1", "u2", "u1", models.StatusRequestUserB)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	stored, err := rels.FindByID(context.Background(), view.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.UserA != "u1" || stored.UserB != "u2" {
		t.Fatalf("expected canonical pair (u1, u2), got (%s, %s)", stored.UserA, stored.UserB)
	}
	if stored.Status != models.StatusRequestUserA {
		t.Fatalf("expected status %q after remap, got %q", models.StatusRequestUserA, stored.Status)
	}
}

func TestCreateValidationFailures(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2")

	cases := []struct {
		name    string
		userA   string
		userB   string
		status  string
		wantErr error
	}{
		{"sameUser", "u1", "u1", models.StatusRequestUserA, ErrValidation},
		{"emptyUser", "u1", "", models.StatusRequestUserA, ErrValidation},
		{"friendsStatus", "u1", "u2", models.StatusFriends, ErrValidation},
		{"blockedStatus", "u1", "u2", models.StatusBlockedUserA, ErrValidation},
		{"awayStatus", "u1", "u2", models.StatusAway, ErrValidation},
		{"unknownUser", "u1", "u3", models.StatusRequestUserA, ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), "u1", tc.userA, tc.userB, tc.status); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v got %v", tc.wantErr, err)
			}
		})
	}
}

func TestCreateRejectsNonParticipantRequester(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2", "u3")

	if _, err := svc.Create(context.Background(), "u3", "u1", "u2", models.StatusRequestUserA); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outside requester, got %v", err)
	}
}

func TestCreateConflictAndAwayRecreation(t *testing.T) {
	svc, rels, _, _ := newTestService("u1", "u2")

	first, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Create(context.Background(), "u2", "u1", "u2", models.StatusRequestUserB); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for existing pair, got %v", err)
	}

	// Soft-reset the relationship; recreation must now succeed.
	away := models.StatusAway
	if _, err := rels.Update(context.Background(), first.ID, repositories.RelationshipPatch{Status: &away}); err != nil {
		t.Fatalf("reset to away: %v", err)
	}

	recreated, err := svc.Create(context.Background(), "u2", "u2", "u1", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("expected away relationship to be recreatable, got %v", err)
	}
	if recreated.Status != models.StatusRequestUserB {
		t.Fatalf("expected remapped status %q, got %q", models.StatusRequestUserB, recreated.Status)
	}
}

func TestConfirmFriendship(t *testing.T) {
	svc, _, conversations, memberships := newTestService("u1", "u2")

	created, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// u2 accepts, so u2 hosts the private conversation.
	view, err := svc.ConfirmFriendship(context.Background(), "u2", created.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if view.Status != models.StatusFriends {
		t.Fatalf("expected status friends, got %q", view.Status)
	}
	if view.ConversationID == nil {
		t.Fatal("expected conversation reference on confirmed relationship")
	}

	if len(conversations.created) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(conversations.created))
	}
	conversation := conversations.created[0]
	if conversation.Kind != models.ConversationPrivate {
		t.Fatalf("expected private conversation, got %q", conversation.Kind)
	}
	if conversation.Name != "private-"+created.ID {
		t.Fatalf("expected deterministic conversation name, got %q", conversation.Name)
	}
	if *view.ConversationID != conversation.ID {
		t.Fatalf("relationship references conversation %q, created %q", *view.ConversationID, conversation.ID)
	}

	if len(memberships.created) != 2 {
		t.Fatalf("expected 2 memberships, got %d", len(memberships.created))
	}
	hosts := 0
	for _, m := range memberships.created {
		if m.ConversationID != conversation.ID {
			t.Fatalf("membership attached to wrong conversation: %+v", m)
		}
		if m.Role == models.RoleHost {
			hosts++
			if m.UserID != "u2" {
				t.Fatalf("expected requester u2 to be host, got %s", m.UserID)
			}
		}
	}
	if hosts != 1 {
		t.Fatalf("expected exactly one host, got %d", hosts)
	}
}

func TestConfirmFriendshipFailures(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2")

	if _, err := svc.ConfirmFriendship(context.Background(), "u1", uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for missing relationship, got %v", err)
	}

	created, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.ConfirmFriendship(context.Background(), "u3", created.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for non-participant, got %v", err)
	}

	if _, err := svc.ConfirmFriendship(context.Background(), "u2", created.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if _, err := svc.ConfirmFriendship(context.Background(), "u2", created.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error confirming twice, got %v", err)
	}
}

func TestConfirmFriendshipNoCompensation(t *testing.T) {
	svc, rels, conversations, memberships := newTestService("u1", "u2")

	created, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Membership creation fails after the conversation exists; the sequence
	// stops without rolling the conversation back and the status is untouched.
	memberships.err = errors.New("membership store down")
	if _, err := svc.ConfirmFriendship(context.Background(), "u2", created.ID); err == nil {
		t.Fatal("expected confirm to fail")
	} else if errors.Is(err, ErrValidation) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected internal error, got %v", err)
	}

	if len(conversations.created) != 1 {
		t.Fatalf("expected orphaned conversation to remain, got %d", len(conversations.created))
	}
	stored, err := rels.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.Status != models.StatusRequestUserA {
		t.Fatalf("expected status unchanged after failed confirm, got %q", stored.Status)
	}
}

func TestBlockUser(t *testing.T) {
	svc, rels, _, _ := newTestService("u1", "u2")

	created, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// u2 blocks u1; u2 occupies the canonical B slot.
	view, err := svc.BlockUser(context.Background(), "u2", "u2", "u1")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if view.Status != models.StatusBlockedUserB {
		t.Fatalf("expected %q, got %q", models.StatusBlockedUserB, view.Status)
	}
	if view.BlockedAt == nil {
		t.Fatal("expected blockedAt to be set")
	}

	stored, err := rels.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("find stored: %v", err)
	}
	if stored.BlockedAt == nil {
		t.Fatal("expected persisted blockedAt")
	}

	if _, err := svc.BlockUser(context.Background(), "u2", "u2", "u1"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error blocking twice, got %v", err)
	}
}

func TestBlockUserCanonicalSlotA(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2")

	if _, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA); err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.BlockUser(context.Background(), "u1", "u1", "u2")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if view.Status != models.StatusBlockedUserA {
		t.Fatalf("expected %q, got %q", models.StatusBlockedUserA, view.Status)
	}
}

func TestBlockUserFailures(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2", "u3")

	if _, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		name      string
		requester string
		blockedBy string
		target    string
		wantErr   error
	}{
		{"requesterMismatch", "u1", "u2", "u1", ErrUnauthorized},
		{"unknownBlocker", "u9", "u9", "u1", ErrNotFound},
		{"unknownTarget", "u1", "u1", "u9", ErrNotFound},
		{"noRelationship", "u1", "u1", "u3", ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.BlockUser(context.Background(), tc.requester, tc.blockedBy, tc.target); !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFindMyRelationship(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2", "u3")

	created, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	view, err := svc.FindMyRelationship(context.Background(), "u1", created.ID)
	if err != nil {
		t.Fatalf("find mine: %v", err)
	}
	if view.UserA.ID != "u1" || view.UserB.ID != "u2" {
		t.Fatalf("expected populated participants, got %+v", view)
	}

	if _, err := svc.FindMyRelationship(context.Background(), "u3", created.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized for non-participant, got %v", err)
	}

	if _, err := svc.FindMyRelationship(context.Background(), "u1", uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListForUserStatusFilterCaseInsensitive(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2")

	created, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.ConfirmFriendship(context.Background(), "u2", created.ID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	lower, err := svc.ListForUser(context.Background(), "u1", repositories.RelationshipListParams{Status: "friends"})
	if err != nil {
		t.Fatalf("list lower: %v", err)
	}
	upper, err := svc.ListForUser(context.Background(), "u1", repositories.RelationshipListParams{Status: "FRIENDS"})
	if err != nil {
		t.Fatalf("list upper: %v", err)
	}

	if len(lower.Data) != 1 || len(upper.Data) != 1 {
		t.Fatalf("expected one friends relationship for both cases, got %d and %d", len(lower.Data), len(upper.Data))
	}
	if lower.Data[0].ID != upper.Data[0].ID {
		t.Fatal("expected identical results regardless of filter case")
	}
	if lower.Count != 1 || lower.Page != 1 || lower.Size != repositories.DefaultPageSize {
		t.Fatalf("unexpected pagination metadata: %+v", lower)
	}
}

func TestListExcludesBlocked(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2")

	if _, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.BlockUser(context.Background(), "u1", "u1", "u2"); err != nil {
		t.Fatalf("block: %v", err)
	}

	result, err := svc.ListForUser(context.Background(), "u1", repositories.RelationshipListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Data) != 0 {
		t.Fatalf("expected blocked relationship to be excluded from listing, got %d", len(result.Data))
	}
}

func TestPopulatedViewExcludesSensitiveFields(t *testing.T) {
	svc, _, _, _ := newTestService("u1", "u2")

	view, err := svc.Create(context.Background(), "u1", "u1", "u2", models.StatusRequestUserA)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if view.UserA.ID != "u1" || view.UserA.Email != "u1@example.com" || view.UserA.DisplayName != "u1" {
		t.Fatalf("unexpected populated summary: %+v", view.UserA)
	}
	// UserSummary has no password or deletion fields at all; this test pins
	// the populated shape so one is never added by accident.
}
