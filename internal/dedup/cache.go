// Package dedup implements a fingerprinted, insertion-idempotent lookup
// over a TTL window, backed locally by a size-bounded map and optionally
// persisted to Redis via internal/cache.CacheService.SetNX so duplicate
// detection survives a process restart and is shared across replicas.
package dedup

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"options-controller/internal/cache"
	"options-controller/internal/domain"
	"options-controller/internal/logging"
)

// entry is one fingerprint's cache record, doubling as the doubly-linked
// list element payload for LRU eviction bookkeeping.
type entry struct {
	fingerprint string
	insertedAt  time.Time
}

// Cache is the in-process half of the Deduplication Cache. Lookup is
// insertion-idempotent: the first Check within the window records the
// fingerprint and returns false (not a duplicate); every subsequent Check
// before the entry's TTL elapses returns true. Eviction only ever removes
// entries whose TTL has already elapsed, so within-window correctness
// never depends on the LRU bound being large enough.
type Cache struct {
	mu       sync.Mutex
	ttl      time.Duration
	maxSize  int
	elements map[string]*list.Element
	order    *list.List // front = most recently touched

	redis *cache.CacheService // optional; nil means local-only
}

// NewCache creates a Deduplication Cache with the given TTL window and
// maximum resident fingerprint count. redis may be nil.
func NewCache(ttl time.Duration, maxSize int, redis *cache.CacheService) *Cache {
	return &Cache{
		ttl:      ttl,
		maxSize:  maxSize,
		elements: make(map[string]*list.Element),
		order:    list.New(),
		redis:    redis,
	}
}

// Fingerprint hashes the fields that identify a signal for dedup purposes:
// source, symbol, direction, timeframe, timestamp rounded to the dedup
// window granularity, and a stable subset of the payload metadata.
func Fingerprint(sig domain.Signal, window time.Duration) string {
	rounded := sig.Timestamp
	if window > 0 {
		rounded = sig.Timestamp.Truncate(window)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d", sig.Source, sig.Symbol, sig.Direction, sig.Timeframe, rounded.Unix())

	// Stable metadata subset: sort-free because we only include a fixed,
	// known-small set of keys relevant to identity, not the full map.
	for _, key := range []string{"strategy", "strike", "option_type"} {
		if v, ok := sig.Metadata[key]; ok {
			fmt.Fprintf(h, "|%s=%s", key, v)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Check reports whether fingerprint has already been seen within the TTL
// window. The first caller for a given fingerprint gets false and the
// fingerprint is recorded; every subsequent caller within the window gets
// true. Redis is checked first (if configured) so duplicate detection is
// consistent across replicas; a Redis miss or unavailability falls back to
// the local map without ever producing a false negative for THIS process.
func (c *Cache) Check(ctx context.Context, fingerprint string) bool {
	if c.redis != nil {
		created, err := c.redis.SetNX(ctx, cache.DedupFingerprintKey(fingerprint), time.Now(), c.ttl)
		if err == nil {
			if !created {
				return true
			}
			// Redis confirms this process is first; still record locally
			// so a subsequent Redis outage doesn't reopen the window.
			c.recordLocal(fingerprint)
			return false
		}
		logging.WithComponent("dedup").WithError(err).Warn("redis dedup check failed, falling back to local cache")
	}

	return c.checkLocal(fingerprint)
}

func (c *Cache) checkLocal(fingerprint string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictExpiredLocked()

	if el, ok := c.elements[fingerprint]; ok {
		// A touched entry can sit ahead of a fresher one in LRU order, so
		// evictExpiredLocked may not have reached it: check its own TTL.
		if time.Since(el.Value.(*entry).insertedAt) < c.ttl {
			c.order.MoveToFront(el)
			return true
		}
		c.removeLocked(el)
	}

	c.insertLocked(fingerprint)
	return false
}

func (c *Cache) recordLocal(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evictExpiredLocked()
	if _, ok := c.elements[fingerprint]; !ok {
		c.insertLocked(fingerprint)
	}
}

func (c *Cache) insertLocked(fingerprint string) {
	el := c.order.PushFront(&entry{fingerprint: fingerprint, insertedAt: time.Now()})
	c.elements[fingerprint] = el

	// Bound resident size, but only ever evict from the back (oldest
	// touch) and only entries whose TTL has elapsed — never evict a
	// within-window entry just to make room.
	for c.order.Len() > c.maxSize {
		back := c.order.Back()
		if back == nil {
			break
		}
		if time.Since(back.Value.(*entry).insertedAt) < c.ttl {
			break
		}
		c.removeLocked(back)
	}
}

func (c *Cache) evictExpiredLocked() {
	for {
		back := c.order.Back()
		if back == nil {
			return
		}
		if time.Since(back.Value.(*entry).insertedAt) < c.ttl {
			return
		}
		c.removeLocked(back)
	}
}

func (c *Cache) removeLocked(el *list.Element) {
	e := el.Value.(*entry)
	delete(c.elements, e.fingerprint)
	c.order.Remove(el)
}

// Size returns the number of fingerprints currently resident locally.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
