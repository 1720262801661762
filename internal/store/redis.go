package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const userKeyPrefix = "crisma:user:"

// RedisStore reads credentials from Redis. Each user is stored as a hash at
// crisma:user:{username} with a password_hash field, so credentials can be
// provisioned and rotated without restarting the API.
type RedisStore struct {
	client redis.UniversalClient
}

// RedisConfig configures the Redis credential store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client. Used in tests.
func NewRedisStoreWithClient(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns the credentials for the username.
func (s *RedisStore) Get(ctx context.Context, username string) (*Credentials, error) {
	hash, err := s.client.HGet(ctx, userKeyPrefix+username, "password_hash").Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	return &Credentials{Username: username, PasswordHash: hash}, nil
}

// Set writes the credentials. Used by provisioning tooling and tests.
func (s *RedisStore) Set(ctx context.Context, c Credentials) error {
	if err := s.client.HSet(ctx, userKeyPrefix+c.Username, "password_hash", c.PasswordHash).Err(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
