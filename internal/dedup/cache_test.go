package dedup

import (
	"context"
	"testing"
	"time"

	"options-controller/internal/domain"
)

func TestCheckIsInsertionIdempotent(t *testing.T) {
	c := NewCache(time.Minute, 100, nil)
	ctx := context.Background()

	if c.Check(ctx, "fp-1") {
		t.Error("first Check should not report a duplicate")
	}
	if !c.Check(ctx, "fp-1") {
		t.Error("second Check within window should report a duplicate")
	}
}

func TestCheckDistinctFingerprintsDontCollide(t *testing.T) {
	c := NewCache(time.Minute, 100, nil)
	ctx := context.Background()

	if c.Check(ctx, "fp-a") {
		t.Error("fp-a first check should not be a duplicate")
	}
	if c.Check(ctx, "fp-b") {
		t.Error("fp-b first check should not be a duplicate")
	}
}

func TestFingerprintStableForSameSignal(t *testing.T) {
	ts := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	sig := domain.Signal{Source: "TRADINGVIEW", Symbol: "SPY", Direction: "CALL", Timeframe: "60m", Timestamp: ts}

	fp1 := Fingerprint(sig, time.Minute)
	fp2 := Fingerprint(sig, time.Minute)
	if fp1 != fp2 {
		t.Errorf("Fingerprint not stable: %q != %q", fp1, fp2)
	}
}

func TestFingerprintDiffersBySymbol(t *testing.T) {
	ts := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	sigA := domain.Signal{Source: "TRADINGVIEW", Symbol: "SPY", Direction: "CALL", Timeframe: "60m", Timestamp: ts}
	sigB := domain.Signal{Source: "TRADINGVIEW", Symbol: "QQQ", Direction: "CALL", Timeframe: "60m", Timestamp: ts}

	if Fingerprint(sigA, time.Minute) == Fingerprint(sigB, time.Minute) {
		t.Error("expected different fingerprints for different symbols")
	}
}

func TestFingerprintRoundsTimestampToWindow(t *testing.T) {
	base := time.Date(2026, 7, 29, 10, 0, 0, 0, time.UTC)
	sigA := domain.Signal{Source: "TRADINGVIEW", Symbol: "SPY", Direction: "CALL", Timeframe: "60m", Timestamp: base}
	sigB := domain.Signal{Source: "TRADINGVIEW", Symbol: "SPY", Direction: "CALL", Timeframe: "60m", Timestamp: base.Add(10 * time.Second)}

	if Fingerprint(sigA, time.Minute) != Fingerprint(sigB, time.Minute) {
		t.Error("expected same fingerprint for timestamps within the same rounding window")
	}
}
