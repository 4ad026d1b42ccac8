// Package circuit guards the brokerage adapter against submission bursts:
// too many failures in a short window trips the breaker so the pipeline
// stops hammering a failing adapter and instead fails fast with
// AdapterSubmitFailure, without needing every caller to re-derive the
// threshold logic.
package circuit

import (
	"fmt"
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state.
type BreakerState string

const (
	StateClosed   BreakerState = "closed"    // submissions flow normally
	StateOpen     BreakerState = "open"      // submissions blocked
	StateHalfOpen BreakerState = "half_open" // cooldown elapsed, testing recovery
)

// Config holds adapter circuit breaker thresholds.
type Config struct {
	Enabled            bool          `json:"enabled"`
	MaxFailuresInWindow int          `json:"max_failures_in_window"`
	FailureWindow      time.Duration `json:"failure_window"`
	CooldownPeriod     time.Duration `json:"cooldown_period"`
	MaxSubmitsPerMinute int          `json:"max_submits_per_minute"`
}

// DefaultConfig returns safe defaults for guarding adapter submission.
func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		MaxFailuresInWindow: 5,
		FailureWindow:       time.Minute,
		CooldownPeriod:      5 * time.Minute,
		MaxSubmitsPerMinute: 60,
	}
}

// Breaker trips open when the adapter fails too often in a window and
// recovers through a half-open probe, same shape as a standard circuit
// breaker but scoped to one dependency (the brokerage adapter) rather than
// account P&L.
type Breaker struct {
	config Config

	mu               sync.Mutex
	state            BreakerState
	failures         []time.Time
	submits          []time.Time
	lastTripTime     time.Time
	tripReason       string
	onTrip           func(reason string)
	onReset          func()
}

// NewBreaker creates a new adapter-submission circuit breaker.
func NewBreaker(cfg Config) *Breaker {
	return &Breaker{config: cfg, state: StateClosed}
}

// OnTrip registers a callback invoked when the breaker trips open.
func (b *Breaker) OnTrip(handler func(reason string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTrip = handler
}

// OnReset registers a callback invoked when the breaker closes again.
func (b *Breaker) OnReset(handler func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReset = handler
}

// Allow reports whether a new adapter submission may proceed.
func (b *Breaker) Allow() (bool, string) {
	if !b.config.Enabled {
		return true, ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.prune(now)

	if b.state == StateOpen {
		if now.Sub(b.lastTripTime) < b.config.CooldownPeriod {
			remaining := b.config.CooldownPeriod - now.Sub(b.lastTripTime)
			return false, fmt.Sprintf("adapter circuit open, cooldown remaining %s (reason: %s)", remaining.Round(time.Second), b.tripReason)
		}
		b.state = StateHalfOpen
	}

	if len(b.submits) >= b.config.MaxSubmitsPerMinute {
		return false, fmt.Sprintf("adapter submit rate limit reached: %d/min", len(b.submits))
	}

	return true, ""
}

// RecordSubmit tracks that a submission attempt happened, for rate limiting.
func (b *Breaker) RecordSubmit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submits = append(b.submits, time.Now())
}

// RecordResult tracks an adapter submission outcome and trips or recovers
// the breaker accordingly.
func (b *Breaker) RecordResult(success bool) {
	if !b.config.Enabled {
		return
	}

	b.mu.Lock()
	now := time.Now()
	b.prune(now)

	if success {
		if b.state == StateHalfOpen {
			b.state = StateClosed
			b.failures = nil
			handler := b.onReset
			b.mu.Unlock()
			if handler != nil {
				handler()
			}
			return
		}
		b.mu.Unlock()
		return
	}

	b.failures = append(b.failures, now)
	shouldTrip := len(b.failures) >= b.config.MaxFailuresInWindow
	b.mu.Unlock()

	if shouldTrip {
		b.trip(fmt.Sprintf("%d adapter failures within %s", len(b.failures), b.config.FailureWindow))
	}
}

func (b *Breaker) trip(reason string) {
	b.mu.Lock()
	b.state = StateOpen
	b.lastTripTime = time.Now()
	b.tripReason = reason
	handler := b.onTrip
	b.mu.Unlock()

	if handler != nil {
		handler(reason)
	}
}

func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.config.FailureWindow)
	b.failures = pruneBefore(b.failures, cutoff)
	b.submits = pruneBefore(b.submits, now.Add(-time.Minute))
}

func pruneBefore(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && times[i].Before(cutoff) {
		i++
	}
	return times[i:]
}

// State returns the current breaker state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// ForceReset manually closes the breaker, used by the
// POST /api/admin/circuit-breaker/reset admin endpoint.
func (b *Breaker) ForceReset() {
	b.mu.Lock()
	b.state = StateClosed
	b.failures = nil
	b.tripReason = ""
	handler := b.onReset
	b.mu.Unlock()
	if handler != nil {
		handler()
	}
}
