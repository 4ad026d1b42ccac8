package exitworker

import (
	"testing"
	"time"
)

func TestDefaultMarketCloseIsFourPMEastern(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load America/New_York: %v", err)
	}
	now := time.Date(2026, 7, 29, 11, 0, 0, 0, loc)

	close := defaultMarketClose(now)
	if close.Hour() != 16 || close.Minute() != 0 {
		t.Errorf("defaultMarketClose = %v, want 16:00 local", close)
	}
	if close.Year() != 2026 || close.Month() != 7 || close.Day() != 29 {
		t.Errorf("defaultMarketClose date = %v, want same calendar day as input", close)
	}
}

func TestDefaultMarketCloseUsesInputDay(t *testing.T) {
	loc, _ := time.LoadLocation("America/New_York")
	now := time.Date(2026, 12, 25, 9, 0, 0, 0, loc)

	close := defaultMarketClose(now)
	if close.Day() != 25 || close.Month() != 12 {
		t.Errorf("defaultMarketClose = %v, want December 25", close)
	}
}
