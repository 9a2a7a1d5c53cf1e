package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionInfo is the server-side record behind a guest identity token.
// A token whose session was deleted is no longer accepted.
type SessionInfo struct {
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	IssuedAt time.Time `json:"issued_at"`
}

const sessionTTL = 7 * 24 * time.Hour

type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) StoreSession(ctx context.Context, userID string, info *SessionInfo) error {
	sessionJSON, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	key := fmt.Sprintf("session:%s", userID)
	if err := s.client.Set(ctx, key, sessionJSON, sessionTTL).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, userID string) (*SessionInfo, error) {
	key := fmt.Sprintf("session:%s", userID)
	sessionJSON, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	var info SessionInfo
	if err := json.Unmarshal(sessionJSON, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &info, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, userID string) error {
	key := fmt.Sprintf("session:%s", userID)
	return s.client.Del(ctx, key).Err()
}
