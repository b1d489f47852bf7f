// Package cache stores computed distance lists keyed by structure
// fingerprint, so repeated evaluations against one structure skip parsing
// and the pairwise kernel.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ricesearch/contact-eval/internal/config"
	"github.com/ricesearch/contact-eval/internal/contact"
	"github.com/ricesearch/contact-eval/internal/pkg/errors"
)

// DistanceCache stores distance lists.
type DistanceCache interface {
	// Get returns the pairs stored under key.
	Get(ctx context.Context, key string) ([]contact.Pair, bool, error)

	// Set stores pairs under key.
	Set(ctx context.Context, key string, pairs []contact.Pair) error

	// Close releases the backend.
	Close() error
}

// StatsReporter is implemented by caches that count their lookups.
type StatsReporter interface {
	Stats() Stats
}

// Stats holds cache statistics.
type Stats struct {
	Size    int   `json:"size"`
	MaxSize int   `json:"max_size"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// New creates the cache selected by cfg.
func New(cfg config.CacheConfig) (DistanceCache, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemoryCache(cfg.Size), nil
	case "redis":
		c, err := NewRedisCache(cfg.RedisURL, time.Duration(cfg.TTL)*time.Second)
		if err != nil {
			return nil, errors.ServiceUnavailableError("redis", err)
		}
		return c, nil
	case "none":
		return NoopCache{}, nil
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown cache type: %s", cfg.Type))
	}
}

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) ([]contact.Pair, bool, error) { return nil, false, nil }
func (NoopCache) Set(context.Context, string, []contact.Pair) error        { return nil }
func (NoopCache) Close() error                                             { return nil }

func clonePairs(pairs []contact.Pair) []contact.Pair {
	out := make([]contact.Pair, len(pairs))
	copy(out, pairs)
	return out
}
