package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"meetsync/models"

	"github.com/go-redis/redis/v8"
)

const sessionKeyPrefix = "assistant:session:"

// SessionStore owns ConversationState persistence for the lifetime of
// one booking flow. States are discarded on terminal stages.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (*models.ConversationState, error)
	Save(ctx context.Context, state *models.ConversationState) error
	Clear(ctx context.Context, sessionID string) error
}

// RedisSessionStore keeps conversation state in Redis with a TTL so
// abandoned sessions expire on their own.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// Get returns the stored state, or nil when the session is unknown or
// has expired.
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (*models.ConversationState, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	var state models.ConversationState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", sessionID, err)
	}
	return &state, nil
}

// Save stores the state and refreshes its TTL.
func (s *RedisSessionStore) Save(ctx context.Context, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", state.SessionID, err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+state.SessionID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session %s: %w", state.SessionID, err)
	}
	return nil
}

// Clear drops the session.
func (s *RedisSessionStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, sessionKeyPrefix+sessionID).Err()
}
