// Package cache implements the content-addressed response cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"aigate/internal/domain"
)

// Store is the backing key-value store behind the cache. Implementations
// return domain.ErrCacheMiss for absent or expired keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Cache wraps a Store with request-level semantics. Store failures are
// logged and degrade to a miss on read and a no-op on write; a broken
// backend never fails a request.
type Cache struct {
	store   Store
	ttl     time.Duration
	enabled bool
	logger  *slog.Logger
}

// New creates a cache over the given store
func New(store Store, ttl time.Duration, enabled bool, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		store:   store,
		ttl:     ttl,
		enabled: enabled,
		logger:  logger,
	}
}

// Enabled reports whether the cache participates in request handling
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled && c.store != nil
}

// Get looks up the cached response for a request. The returned response has
// Cached set; LatencyMS is left for the caller, who knows the elapsed time.
func (c *Cache) Get(ctx context.Context, req *domain.Request) (*domain.Response, bool) {
	if !c.Enabled() {
		return nil, false
	}

	key := Key(req)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			c.logger.Warn("cache read failed, treating as miss", "key", key, "error", err)
		}
		return nil, false
	}

	var resp domain.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		c.logger.Warn("cache entry corrupt, treating as miss", "key", key, "error", err)
		return nil, false
	}

	resp.Cached = true
	return &resp, true
}

// Set stores a successful response under the request's content key
func (c *Cache) Set(ctx context.Context, req *domain.Request, resp *domain.Response) {
	if !c.Enabled() {
		return
	}

	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn("cache encode failed, skipping store", "error", err)
		return
	}

	key := Key(req)
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache write failed, skipping store", "key", key, "error", err)
	}
}

// Clear removes a single entry by key, or every entry when key is empty
func (c *Cache) Clear(ctx context.Context, key string) error {
	if c == nil || c.store == nil {
		return nil
	}
	if key == "" {
		return c.store.DeletePrefix(ctx, KeyPrefix)
	}
	return c.store.Delete(ctx, key)
}
