// Package contextcache caches the latest ContextData snapshot, lazily
// refreshed via an injected fetcher on miss or
// TTL expiry, with concurrent callers sharing a single in-flight fetch via
// golang.org/x/sync/singleflight — the idiomatic way to collapse a cache
// stampede without hand-rolling the coordination.
package contextcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"options-controller/internal/domain"
	"options-controller/internal/logging"
)

// ErrContextUnavailable is returned when the fetcher fails and no valid
// prior value exists to fall back on.
var ErrContextUnavailable = errors.New("ContextUnavailable")

// Fetcher retrieves the latest market context from its source of truth
// (the most recent CONTEXT webhook, persisted via internal/database).
type Fetcher func(ctx context.Context) (domain.ContextData, error)

// Cache holds the latest ContextData and refreshes it on demand.
type Cache struct {
	ttl     time.Duration
	fetch   Fetcher
	group   singleflight.Group

	mu       sync.RWMutex
	value    *domain.ContextData
	fetchedAt time.Time
}

// NewCache creates a Context Cache with the given refresh TTL and fetcher.
// seed, if non-nil, is used as the initial value (e.g. the last persisted
// snapshot read at boot) so a cold cache doesn't report ErrContextUnavailable
// before the fetcher has ever succeeded.
func NewCache(ttl time.Duration, fetch Fetcher, seed *domain.ContextData) *Cache {
	c := &Cache{ttl: ttl, fetch: fetch}
	if seed != nil {
		c.value = seed
		c.fetchedAt = time.Now()
	}
	return c
}

// Get returns the current context, refreshing it first if the cached value
// is missing or has exceeded its TTL. Concurrent callers observing an
// expired entry share one fetch.
func (c *Cache) Get(ctx context.Context) (domain.ContextData, error) {
	c.mu.RLock()
	value := c.value
	fresh := value != nil && time.Since(c.fetchedAt) < c.ttl
	c.mu.RUnlock()

	if fresh {
		return *value, nil
	}

	result, err, _ := c.group.Do("context", func() (interface{}, error) {
		fetched, ferr := c.fetch(ctx)
		if ferr != nil {
			return nil, ferr
		}
		c.mu.Lock()
		c.value = &fetched
		c.fetchedAt = time.Now()
		c.mu.Unlock()
		return fetched, nil
	})

	if err != nil {
		c.mu.RLock()
		stale := c.value
		c.mu.RUnlock()
		if stale != nil {
			logging.WithComponent("context-cache").WithError(err).Warn("refresh failed, serving stale value")
			return *stale, nil
		}
		return domain.ContextData{}, ErrContextUnavailable
	}

	return result.(domain.ContextData), nil
}

// Set overwrites the cached value directly, used when a CONTEXT webhook
// arrives and should take effect immediately rather than waiting on TTL expiry.
func (c *Cache) Set(ctx domain.ContextData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = &ctx
	c.fetchedAt = time.Now()
}
