package audit

import (
	"context"
	"sync"
	"time"

	"options-controller/internal/logging"
)

// Probe reports whether a dependency is currently healthy.
type Probe func(ctx context.Context) bool

// DegradedTracker polls a set of named dependency probes on an interval and
// caches their last-known state, so /health and Prometheus scrapes never
// block on a slow dependency check. Satisfies api.DegradedTracker
// structurally via Snapshot.
type DegradedTracker struct {
	probes map[string]Probe

	mu    sync.RWMutex
	state map[string]bool
	bus   degradedPublisher
}

// degradedPublisher is the narrow slice of events.EventBus this package
// needs, kept local so audit doesn't depend on events for anything but
// this one notification.
type degradedPublisher interface {
	PublishDegradedMode(dependency, state, reason string)
}

// NewDegradedTracker creates a tracker over the given named probes. bus may
// be nil (no degraded-mode events published, state is still tracked).
func NewDegradedTracker(probes map[string]Probe, bus degradedPublisher) *DegradedTracker {
	t := &DegradedTracker{
		probes: probes,
		state:  make(map[string]bool, len(probes)),
		bus:    bus,
	}
	for name := range probes {
		t.state[name] = true
	}
	return t
}

// Run polls every probe on the given interval until ctx is cancelled.
func (t *DegradedTracker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.pollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.pollOnce(ctx)
		}
	}
}

func (t *DegradedTracker) pollOnce(ctx context.Context) {
	for name, probe := range t.probes {
		healthy := probe(ctx)
		SetDependencyHealth(name, healthy)

		t.mu.Lock()
		prev := t.state[name]
		t.state[name] = healthy
		t.mu.Unlock()

		if prev != healthy {
			state := "degraded"
			if healthy {
				state = "healthy"
			}
			logging.WithComponent("audit").Warn("dependency health transition", "dependency", name, "state", state)
			if t.bus != nil {
				t.bus.PublishDegradedMode(name, state, "")
			}
		}
	}
}

// Snapshot returns each dependency's last-polled state as "healthy" or "degraded".
func (t *DegradedTracker) Snapshot() map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]string, len(t.state))
	for name, healthy := range t.state {
		if healthy {
			out[name] = "healthy"
		} else {
			out[name] = "degraded"
		}
	}
	return out
}
