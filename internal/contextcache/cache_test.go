package contextcache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"options-controller/internal/domain"
)

func TestGetFetchesOnColdCache(t *testing.T) {
	var calls int32
	c := NewCache(time.Minute, func(ctx context.Context) (domain.ContextData, error) {
		atomic.AddInt32(&calls, 1)
		return domain.ContextData{VIX: 18}, nil
	}, nil)

	data, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if data.VIX != 18 {
		t.Errorf("VIX = %v, want 18", data.VIX)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
}

func TestGetServesFromCacheWithinTTL(t *testing.T) {
	var calls int32
	c := NewCache(time.Hour, func(ctx context.Context) (domain.ContextData, error) {
		atomic.AddInt32(&calls, 1)
		return domain.ContextData{VIX: float64(calls)}, nil
	}, nil)

	first, _ := c.Get(context.Background())
	second, _ := c.Get(context.Background())

	if first.VIX != second.VIX {
		t.Errorf("expected cached value to be reused, got %v then %v", first.VIX, second.VIX)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("fetch calls = %d, want 1 (second Get should hit cache)", calls)
	}
}

func TestGetRefetchesAfterTTLExpires(t *testing.T) {
	var calls int32
	c := NewCache(time.Millisecond, func(ctx context.Context) (domain.ContextData, error) {
		n := atomic.AddInt32(&calls, 1)
		return domain.ContextData{VIX: float64(n)}, nil
	}, nil)

	c.Get(context.Background())
	time.Sleep(5 * time.Millisecond)
	c.Get(context.Background())

	if atomic.LoadInt32(&calls) != 2 {
		t.Errorf("fetch calls = %d, want 2 after TTL expiry", calls)
	}
}

func TestGetServesStaleValueOnFetchError(t *testing.T) {
	fail := false
	c := NewCache(time.Millisecond, func(ctx context.Context) (domain.ContextData, error) {
		if fail {
			return domain.ContextData{}, errors.New("fetch failed")
		}
		return domain.ContextData{VIX: 25}, nil
	}, nil)

	c.Get(context.Background())
	fail = true
	time.Sleep(5 * time.Millisecond)

	data, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("expected stale value to be served without error, got %v", err)
	}
	if data.VIX != 25 {
		t.Errorf("VIX = %v, want stale value 25", data.VIX)
	}
}

func TestGetReturnsErrorWithNoSeedAndFetchFails(t *testing.T) {
	c := NewCache(time.Minute, func(ctx context.Context) (domain.ContextData, error) {
		return domain.ContextData{}, errors.New("fetch failed")
	}, nil)

	if _, err := c.Get(context.Background()); err != ErrContextUnavailable {
		t.Errorf("err = %v, want ErrContextUnavailable", err)
	}
}

func TestSeedAvoidsInitialFetch(t *testing.T) {
	var calls int32
	seed := domain.ContextData{VIX: 12}
	c := NewCache(time.Hour, func(ctx context.Context) (domain.ContextData, error) {
		atomic.AddInt32(&calls, 1)
		return domain.ContextData{VIX: 99}, nil
	}, &seed)

	data, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if data.VIX != 12 {
		t.Errorf("VIX = %v, want seeded 12", data.VIX)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("fetch calls = %d, want 0 (seed should satisfy TTL)", calls)
	}
}

func TestSetOverwritesCachedValueImmediately(t *testing.T) {
	c := NewCache(time.Hour, func(ctx context.Context) (domain.ContextData, error) {
		return domain.ContextData{VIX: 99}, nil
	}, nil)

	c.Set(domain.ContextData{VIX: 42})
	data, err := c.Get(context.Background())
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if data.VIX != 42 {
		t.Errorf("VIX = %v, want 42 (set value)", data.VIX)
	}
}
