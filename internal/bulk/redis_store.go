package bulk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const confirmationPrefix = "bulk:confirmation:"

// RedisStore keeps confirmations in Redis so any API instance can verify them
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and checks the connection
func NewRedisStore(ctx context.Context, address, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Issue stores c under a new token with the given expiry
func (s *RedisStore) Issue(ctx context.Context, c Confirmation, ttl time.Duration) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal confirmation: %w", err)
	}

	token := uuid.New().String()
	if err := s.client.Set(ctx, confirmationPrefix+token, data, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store confirmation: %w", err)
	}
	return token, nil
}

// Lookup reads a confirmation; expired tokens are gone from Redis
func (s *RedisStore) Lookup(ctx context.Context, token string) (*Confirmation, error) {
	data, err := s.client.Get(ctx, confirmationPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read confirmation: %w", err)
	}

	var c Confirmation
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal confirmation: %w", err)
	}
	return &c, nil
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
