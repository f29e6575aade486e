package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pairmesh/backend/internal/auth"
)

// RedisSessionStore keeps refresh tokens in Redis with a TTL matching the
// session expiry, so expired sessions vanish without a sweeper.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore constructs a session store backed by Redis.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "session:"}
}

type redisSession struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Save stores the session under its refresh token with an expiry-derived TTL.
func (s *RedisSessionStore) Save(ctx context.Context, session auth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("redis session store: session already expired")
	}

	payload, err := json.Marshal(redisSession{UserID: session.UserID, ExpiresAt: session.ExpiresAt.UTC()})
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+session.RefreshToken, payload, ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}

	return nil
}

// Find loads a session by its refresh token.
func (s *RedisSessionStore) Find(ctx context.Context, refreshToken string) (auth.Session, error) {
	payload, err := s.client.Get(ctx, s.prefix+refreshToken).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return auth.Session{}, auth.ErrSessionNotFound
		}
		return auth.Session{}, fmt.Errorf("get session: %w", err)
	}

	var stored redisSession
	if err := json.Unmarshal(payload, &stored); err != nil {
		return auth.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}

	return auth.Session{
		RefreshToken: refreshToken,
		UserID:       stored.UserID,
		ExpiresAt:    stored.ExpiresAt,
	}, nil
}

// Delete removes a session by its refresh token.
func (s *RedisSessionStore) Delete(ctx context.Context, refreshToken string) error {
	deleted, err := s.client.Del(ctx, s.prefix+refreshToken).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

var _ auth.SessionStore = (*RedisSessionStore)(nil)
