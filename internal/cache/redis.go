package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ricesearch/contact-eval/internal/contact"
)

// RedisCache stores distance lists in Redis as JSON.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration // 0 = no expiry

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCache connects to the Redis server at url.
// Returns error if connection fails.
func NewRedisCache(url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		prefix: "contact:dist:",
		ttl:    ttl,
	}, nil
}

// Get loads the distance list stored under key.
func (rc *RedisCache) Get(ctx context.Context, key string) ([]contact.Pair, bool, error) {
	data, err := rc.client.Get(ctx, rc.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		rc.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading distances: %w", err)
	}

	var pairs []contact.Pair
	if err := json.Unmarshal(data, &pairs); err != nil {
		return nil, false, fmt.Errorf("decoding distances: %w", err)
	}
	rc.hits.Add(1)
	return pairs, true, nil
}

// Set stores pairs under key.
func (rc *RedisCache) Set(ctx context.Context, key string, pairs []contact.Pair) error {
	data, err := json.Marshal(pairs)
	if err != nil {
		return fmt.Errorf("encoding distances: %w", err)
	}

	if err := rc.client.Set(ctx, rc.prefix+key, data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("saving distances: %w", err)
	}
	return nil
}

// Stats returns the lookups counted by this client. Size is not tracked.
func (rc *RedisCache) Stats() Stats {
	return Stats{
		Hits:   rc.hits.Load(),
		Misses: rc.misses.Load(),
	}
}

// Close closes the Redis connection.
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
