// Package cache provides a Redis-backed store for the dedup cache so
// duplicate detection survives process restarts and is shared across
// replicas. The in-process cache in internal/dedup still enforces TTL
// semantics locally; this service is its optional persistence layer,
// degrading gracefully to "cache miss" when Redis is unavailable rather
// than failing the request. A context-snapshot key helper exists here, but
// the context cache in internal/contextcache is in-process only and does
// not read or write Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"options-controller/config"
	"options-controller/internal/logging"

	"github.com/redis/go-redis/v9"
)

// CacheService wraps go-redis with a small circuit breaker: repeated
// failures flip it into a degraded state so callers stop paying the
// round-trip cost of a down Redis and fall back to local-only caching.
type CacheService struct {
	client *redis.Client
	config config.RedisConfig

	mu           sync.RWMutex
	healthy      bool
	failureCount int
	lastCheck    time.Time

	maxFailures   int
	checkInterval time.Duration
}

// Key prefixes for the two cache domains this service backs.
const (
	PrefixContextSnapshot = "context:latest"
	PrefixGEXSignal       = "gex:%s:%s" // symbol, timeframe
	PrefixDedupFingerprint = "dedup:%s"  // fingerprint
)

// NewCacheService creates a new CacheService and verifies connectivity.
// Returning it in a degraded (unhealthy) state rather than an error lets
// boot proceed with Redis down — the in-process caches still work.
func NewCacheService(cfg config.RedisConfig) (*CacheService, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	cs := &CacheService{
		client:        client,
		config:        cfg,
		maxFailures:   3,
		checkInterval: 30 * time.Second,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logging.WithComponent("cache")
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("initial redis connection failed, starting degraded")
		return cs, nil
	}

	cs.healthy = true
	cs.lastCheck = time.Now()
	log.WithField("address", cfg.Address).Info("redis connected")
	return cs, nil
}

// IsHealthy returns whether Redis is currently considered available.
func (cs *CacheService) IsHealthy() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.healthy
}

func (cs *CacheService) recordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.failureCount++
	if cs.failureCount >= cs.maxFailures && cs.healthy {
		logging.WithComponent("cache").Warn("redis marked unhealthy", "failures", cs.failureCount)
		cs.healthy = false
	}
}

func (cs *CacheService) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if !cs.healthy {
		logging.WithComponent("cache").Info("redis recovered")
	}
	cs.healthy = true
	cs.failureCount = 0
	cs.lastCheck = time.Now()
}

func (cs *CacheService) checkHealth(ctx context.Context) {
	cs.mu.RLock()
	shouldCheck := !cs.healthy && time.Since(cs.lastCheck) >= cs.checkInterval
	cs.mu.RUnlock()
	if !shouldCheck {
		return
	}

	go func() {
		pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cs.client.Ping(pingCtx).Err(); err == nil {
			cs.recordSuccess()
		}
	}()
}

// Get retrieves a raw string value from cache.
func (cs *CacheService) Get(ctx context.Context, key string) (string, error) {
	cs.checkHealth(ctx)
	if !cs.IsHealthy() {
		return "", fmt.Errorf("redis unavailable (circuit breaker open)")
	}

	result, err := cs.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", err
		}
		cs.recordFailure()
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	cs.recordSuccess()
	return result, nil
}

// Set stores a value in cache with a TTL.
func (cs *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	cs.checkHealth(ctx)
	if !cs.IsHealthy() {
		return fmt.Errorf("redis unavailable (circuit breaker open)")
	}

	var data string
	switch v := value.(type) {
	case string:
		data = v
	case []byte:
		data = string(v)
	default:
		jsonData, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("failed to marshal value: %w", err)
		}
		data = string(jsonData)
	}

	if err := cs.client.Set(ctx, key, data, ttl).Err(); err != nil {
		cs.recordFailure()
		return fmt.Errorf("redis set failed: %w", err)
	}
	cs.recordSuccess()
	return nil
}

// Delete removes a key from cache.
func (cs *CacheService) Delete(ctx context.Context, key string) error {
	cs.checkHealth(ctx)
	if !cs.IsHealthy() {
		return fmt.Errorf("redis unavailable (circuit breaker open)")
	}
	if err := cs.client.Del(ctx, key).Err(); err != nil {
		cs.recordFailure()
		return fmt.Errorf("redis delete failed: %w", err)
	}
	cs.recordSuccess()
	return nil
}

// SetNX sets a key only if absent, returning true if this call created it.
// Backs the Dedup Cache's insertion-idempotent lookup: the first caller
// within the window wins and every subsequent caller observes false.
func (cs *CacheService) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	cs.checkHealth(ctx)
	if !cs.IsHealthy() {
		return false, fmt.Errorf("redis unavailable (circuit breaker open)")
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal value: %w", err)
	}

	ok, err := cs.client.SetNX(ctx, key, data, ttl).Result()
	if err != nil {
		cs.recordFailure()
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	cs.recordSuccess()
	return ok, nil
}

// GetJSON retrieves and unmarshals a JSON value from cache.
func (cs *CacheService) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := cs.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return nil
}

// SetJSON marshals and stores a JSON value in cache.
func (cs *CacheService) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return cs.Set(ctx, key, value, ttl)
}

// Close closes the Redis connection.
func (cs *CacheService) Close() error {
	if cs.client != nil {
		return cs.client.Close()
	}
	return nil
}

// Ping checks Redis connectivity directly, bypassing the circuit breaker gate.
func (cs *CacheService) Ping(ctx context.Context) error {
	if err := cs.client.Ping(ctx).Err(); err != nil {
		cs.recordFailure()
		return err
	}
	cs.recordSuccess()
	return nil
}

// Stats summarizes cache health for the /health endpoint.
type Stats struct {
	Healthy      bool   `json:"healthy"`
	FailureCount int    `json:"failure_count"`
	Address      string `json:"address"`
}

// GetStats returns current cache statistics.
func (cs *CacheService) GetStats() Stats {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return Stats{Healthy: cs.healthy, FailureCount: cs.failureCount, Address: cs.config.Address}
}

// ContextSnapshotKey returns the cache key for the latest market context.
func ContextSnapshotKey() string { return PrefixContextSnapshot }

// GEXSignalKey returns the cache key for the latest GEX signal of a symbol/timeframe.
func GEXSignalKey(symbol, timeframe string) string {
	return fmt.Sprintf(PrefixGEXSignal, symbol, timeframe)
}

// DedupFingerprintKey returns the cache key for a dedup fingerprint.
func DedupFingerprintKey(fingerprint string) string {
	return fmt.Sprintf(PrefixDedupFingerprint, fingerprint)
}
