package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"example.com/eventhub/config"
	"example.com/eventhub/internal/model"
)

// CacheClient defines the interface for cache operations. Only subject
// registry lookups are cached: registry reads happen on every transition
// for display-name resolution while the records change rarely.
// Participation state and aggregates are never cached.
type CacheClient interface {
	GetSubject(ctx context.Context, id string) (*model.Subject, error)
	SetSubject(ctx context.Context, subject *model.Subject) error
	FlushAll(ctx context.Context) error
	Close() error
}

// RedisClient implements CacheClient using Redis
type RedisClient struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg config.RedisConfig) (CacheClient, error) {
	if !cfg.Enabled {
		return &RedisClient{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = time.Hour
	}

	return &RedisClient{
		client:  client,
		enabled: true,
		ttl:     ttl,
	}, nil
}

// Prefix keys to avoid collisions
func subjectKey(id string) string {
	return fmt.Sprintf("subject:%s", id)
}

// GetSubject retrieves a subject from cache
func (c *RedisClient) GetSubject(ctx context.Context, id string) (*model.Subject, error) {
	if !c.enabled {
		return nil, redis.Nil
	}

	data, err := c.client.Get(ctx, subjectKey(id)).Bytes()
	if err != nil {
		return nil, err
	}

	var subject model.Subject
	if err := json.Unmarshal(data, &subject); err != nil {
		return nil, err
	}

	return &subject, nil
}

// SetSubject caches a subject
func (c *RedisClient) SetSubject(ctx context.Context, subject *model.Subject) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(subject)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, subjectKey(subject.UUID), data, c.ttl).Err()
}

// FlushAll clears all cache
func (c *RedisClient) FlushAll(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	return c.client.FlushAll(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisClient) Close() error {
	if !c.enabled {
		return nil
	}

	return c.client.Close()
}
