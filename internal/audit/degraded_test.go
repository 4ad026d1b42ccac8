package audit

import (
	"context"
	"sync"
	"testing"
)

type fakePublisher struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakePublisher) PublishDegradedMode(dependency, state, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dependency+":"+state)
}

func TestNewDegradedTrackerStartsHealthy(t *testing.T) {
	tracker := NewDegradedTracker(map[string]Probe{"database": func(ctx context.Context) bool { return true }}, nil)
	snap := tracker.Snapshot()
	if snap["database"] != "healthy" {
		t.Errorf("Snapshot()[database] = %q, want healthy before first poll", snap["database"])
	}
}

func TestPollOnceRecordsDegradedState(t *testing.T) {
	tracker := NewDegradedTracker(map[string]Probe{"redis": func(ctx context.Context) bool { return false }}, nil)
	tracker.pollOnce(context.Background())

	if got := tracker.Snapshot()["redis"]; got != "degraded" {
		t.Errorf("Snapshot()[redis] = %q, want degraded", got)
	}
}

func TestPollOnceNotifiesOnTransition(t *testing.T) {
	pub := &fakePublisher{}
	healthy := true
	tracker := NewDegradedTracker(map[string]Probe{"vault": func(ctx context.Context) bool { return healthy }}, pub)

	tracker.pollOnce(context.Background()) // already healthy, no transition
	healthy = false
	tracker.pollOnce(context.Background()) // transitions to degraded

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.calls) != 1 || pub.calls[0] != "vault:degraded" {
		t.Errorf("calls = %v, want exactly one [vault:degraded]", pub.calls)
	}
}

func TestPollOnceNilBusDoesNotPanic(t *testing.T) {
	tracker := NewDegradedTracker(map[string]Probe{"adapter": func(ctx context.Context) bool { return false }}, nil)
	tracker.pollOnce(context.Background())
}
