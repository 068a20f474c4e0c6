package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/ports"
	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis implementation of the ReplayStore interface
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client redis.UniversalClient) ports.ReplayStore {
	return &RedisStore{
		client: client,
		prefix: "warden:invalidated:",
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	key := s.prefix + tokenID

	if err := s.client.Set(ctx, key, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	key := s.prefix + tokenID

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}

	return val > 0, nil
}

// Claim records id with SET NX so only one caller wins it
func (s *RedisStore) Claim(ctx context.Context, id string, expiry time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+id, "1", expiry).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim id: %w", err)
	}
	return ok, nil
}

// RedisCredentialStore keeps the admin credential under a single Redis key
type RedisCredentialStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisCredentialStore creates a credential store bound to key
func NewRedisCredentialStore(client redis.UniversalClient, key string) *RedisCredentialStore {
	if key == "" {
		key = "warden:credential"
	}
	return &RedisCredentialStore{client: client, key: key}
}

// Load returns the stored credential, or nil if none
func (s *RedisCredentialStore) Load(ctx context.Context) (*core.Credential, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	var cred core.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("failed to decode credential: %w", err)
	}
	return &cred, nil
}

// Save replaces the stored credential
func (s *RedisCredentialStore) Save(ctx context.Context, cred core.Credential) error {
	raw, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Clear removes the stored credential
func (s *RedisCredentialStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

var _ ports.CredentialStore = (*RedisCredentialStore)(nil)
