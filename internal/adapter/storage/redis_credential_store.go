package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/stockdesk/internal/port"
)

const credentialKeyPrefix = "stockdesk:credential:"

// RedisCredentialStore keeps the credential for one profile in Redis. The key
// expires with the session freshness window.
type RedisCredentialStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ port.CredentialStore = (*RedisCredentialStore)(nil)

func NewRedisCredentialStore(client *redis.Client, profile string, ttl time.Duration) *RedisCredentialStore {
	if profile == "" {
		profile = "default"
	}
	return &RedisCredentialStore{client: client, key: credentialKeyPrefix + profile, ttl: ttl}
}

func (r *RedisCredentialStore) Save(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisCredentialStore) Load(ctx context.Context) (string, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", port.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return token, nil
}

func (r *RedisCredentialStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
