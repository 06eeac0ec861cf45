package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore is a Redis-backed Storage for shared deployments (e.g. a
// canteen kiosk where several terminals must see the same session and
// cart). Keys are namespaced to prevent collisions with other tenants of
// the same Redis instance.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    Logger
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(redisURL, namespace string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if namespace == "" {
		namespace = "canteen"
	}

	return &RedisStore{
		client:    client,
		namespace: namespace,
		logger:    &NoOpLogger{},
	}, nil
}

// SetLogger configures the logger for this store
func (r *RedisStore) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *RedisStore) key(key string) string {
	return r.namespace + ":" + key
}

// Get retrieves a value. A missing key yields an empty string, not an
// error; persisted state is best-effort by design.
func (r *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

// Set stores a value with optional TTL
func (r *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	r.logger.Debug("State persisted", map[string]interface{}{
		"operation":  "state_set",
		"key":        key,
		"value_size": len(value),
		"has_ttl":    ttl > 0,
	})
	return nil
}

// Delete removes a value
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Exists checks if a key exists
func (r *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists %s: %w", key, err)
	}
	return n > 0, nil
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// OpenStorage constructs the Storage backend selected by the configuration.
func OpenStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.StateDir)
	case "redis":
		return NewRedisStore(cfg.RedisURL, cfg.Namespace)
	default:
		return nil, fmt.Errorf("%w: unknown storage provider %q", ErrInvalidConfiguration, cfg.Provider)
	}
}
