package circuit

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Enabled:             true,
		MaxFailuresInWindow: 3,
		FailureWindow:       time.Minute,
		CooldownPeriod:      time.Hour,
		MaxSubmitsPerMinute: 100,
	}
}

func TestBreakerStartsClosed(t *testing.T) {
	b := NewBreaker(testConfig())
	if b.State() != StateClosed {
		t.Errorf("State() = %q, want closed", b.State())
	}
	if allowed, _ := b.Allow(); !allowed {
		t.Error("expected Allow() to permit submissions when closed")
	}
}

func TestBreakerTripsAfterMaxFailures(t *testing.T) {
	b := NewBreaker(testConfig())
	for i := 0; i < 3; i++ {
		b.RecordResult(false)
	}
	if b.State() != StateOpen {
		t.Errorf("State() = %q, want open after 3 failures", b.State())
	}
	if allowed, _ := b.Allow(); allowed {
		t.Error("expected Allow() to block submissions when open")
	}
}

func TestBreakerInvokesOnTripCallback(t *testing.T) {
	b := NewBreaker(testConfig())
	var gotReason string
	b.OnTrip(func(reason string) { gotReason = reason })

	for i := 0; i < 3; i++ {
		b.RecordResult(false)
	}
	if gotReason == "" {
		t.Error("expected OnTrip callback to fire with a reason")
	}
}

func TestBreakerHalfOpenRecoversOnSuccess(t *testing.T) {
	cfg := testConfig()
	cfg.CooldownPeriod = 0 // cooldown already elapsed
	b := NewBreaker(cfg)
	for i := 0; i < 3; i++ {
		b.RecordResult(false)
	}

	var resetCalled bool
	b.OnReset(func() { resetCalled = true })

	allowed, _ := b.Allow() // transitions open -> half_open since cooldown is 0
	if !allowed {
		t.Fatal("expected Allow() to permit a half-open probe")
	}
	b.RecordResult(true)

	if b.State() != StateClosed {
		t.Errorf("State() = %q, want closed after successful half-open probe", b.State())
	}
	if !resetCalled {
		t.Error("expected OnReset callback to fire")
	}
}

func TestBreakerForceResetClearsState(t *testing.T) {
	b := NewBreaker(testConfig())
	for i := 0; i < 3; i++ {
		b.RecordResult(false)
	}
	b.ForceReset()

	if b.State() != StateClosed {
		t.Errorf("State() = %q, want closed after ForceReset", b.State())
	}
}

func TestBreakerRespectsSubmitRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MaxSubmitsPerMinute = 1
	b := NewBreaker(cfg)

	b.RecordSubmit()
	if allowed, _ := b.Allow(); allowed {
		t.Error("expected Allow() to block once submit rate limit is reached")
	}
}

func TestBreakerDisabledAlwaysAllows(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	b := NewBreaker(cfg)

	for i := 0; i < 10; i++ {
		b.RecordResult(false)
	}
	if allowed, _ := b.Allow(); !allowed {
		t.Error("expected disabled breaker to always allow")
	}
}
