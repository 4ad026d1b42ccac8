package cache

import "testing"

func TestContextSnapshotKey(t *testing.T) {
	if got := ContextSnapshotKey(); got != "context:latest" {
		t.Errorf("ContextSnapshotKey() = %q, want context:latest", got)
	}
}

func TestGEXSignalKey(t *testing.T) {
	if got := GEXSignalKey("SPY", "60m"); got != "gex:SPY:60m" {
		t.Errorf("GEXSignalKey() = %q, want gex:SPY:60m", got)
	}
}

func TestDedupFingerprintKey(t *testing.T) {
	if got := DedupFingerprintKey("abc123"); got != "dedup:abc123" {
		t.Errorf("DedupFingerprintKey() = %q, want dedup:abc123", got)
	}
}
