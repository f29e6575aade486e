package models

import "time"

// User represents an account within the PairMesh platform.
type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	AvatarURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Summary strips credentials and soft-delete bookkeeping from a user record,
// leaving only the fields safe to embed in API responses.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// UserSummary is the public profile view of a user.
type UserSummary struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// Relationship links two users. UserA and UserB are always stored in
// canonical order (UserA <= UserB) so each unordered pair has at most one
// record.
type Relationship struct {
	ID             string
	UserA          string
	UserB          string
	Status         string
	BlockedAt      *time.Time
	ConversationID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Relationship statuses. The request and blocked variants name the canonical
// slot of the acting user, not the argument order the caller supplied.
const (
	StatusRequestUserA = "request_user_a"
	StatusRequestUserB = "request_user_b"
	StatusFriends      = "friends"
	StatusAway         = "away"
	StatusBlockedUserA = "blocked_user_a"
	StatusBlockedUserB = "blocked_user_b"
)

// HasParticipant reports whether the given user occupies either slot.
func (r Relationship) HasParticipant(userID string) bool {
	return r.UserA == userID || r.UserB == userID
}

// OtherParticipant returns the slot opposite the given user. The caller is
// expected to have checked HasParticipant first.
func (r Relationship) OtherParticipant(userID string) string {
	if r.UserA == userID {
		return r.UserB
	}
	return r.UserA
}

// Blocked reports whether the relationship carries a block marker.
func (r Relationship) Blocked() bool {
	return r.BlockedAt != nil
}

// Conversation is a shared message space between two or more users.
type Conversation struct {
	ID          string
	Kind        string
	Name        string
	Description string
	CreatedBy   string
	CreatedAt   time.Time
}

const (
	ConversationPrivate = "private"
	ConversationGroup   = "group"
)

// Membership ties a user to a conversation with a role.
type Membership struct {
	ID             string
	ConversationID string
	UserID         string
	Role           string
	JoinedAt       time.Time
}

const (
	RoleHost   = "host"
	RoleMember = "member"
)

// MediaUpload stores metadata for a user-uploaded file whose bytes live in
// object storage.
type MediaUpload struct {
	ID          string
	OwnerID     string
	FileName    string
	ContentType string
	Size        int64
	Status      string
	Location    string
	CreatedAt   time.Time
}

const (
	MediaStatusPending = "pending"
	MediaStatusReady   = "ready"
	MediaStatusFailed  = "failed"
)

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}
