package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/groupmark/internal/domain"
)

// SessionStore keeps workspace-session state in Redis so several editor
// windows on the same workspace agree on the active group.
type SessionStore struct {
	client    *redis.Client
	workspace string
	ttl       time.Duration // 0 keeps keys forever
}

// NewSessionStore creates a Redis-backed session store for one workspace.
func NewSessionStore(client *redis.Client, workspace string, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:    client,
		workspace: workspace,
		ttl:       ttl,
	}
}

// ActiveGroupID returns the active group id, or "" when none is set.
func (s *SessionStore) ActiveGroupID(ctx context.Context) (string, error) {
	id, err := s.client.Get(ctx, SessionKey(s.workspace, FieldActiveGroup)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get active group: %w", errors.Join(domain.ErrStorage, err))
	}
	return id, nil
}

// SetActiveGroupID stores the active group id; "" clears it.
func (s *SessionStore) SetActiveGroupID(ctx context.Context, id string) error {
	key := SessionKey(s.workspace, FieldActiveGroup)
	if id == "" {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("failed to clear active group: %w", errors.Join(domain.ErrStorage, err))
		}
		return nil
	}
	if err := s.client.Set(ctx, key, id, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save active group: %w", errors.Join(domain.ErrStorage, err))
	}
	return nil
}
