package marketdata

import (
	"context"
	"testing"
)

func TestMockProviderReturnsSeededQuote(t *testing.T) {
	p := NewMockProvider()
	p.SetQuote("SPY260821C00450500", 7.25)

	price, err := p.GetQuote(context.Background(), "SPY260821C00450500")
	if err != nil {
		t.Fatalf("GetQuote returned error: %v", err)
	}
	if price != 7.25 {
		t.Errorf("price = %v, want 7.25", price)
	}
}

func TestMockProviderRejectsInvalidOCCSymbol(t *testing.T) {
	p := NewMockProvider()
	if _, err := p.GetQuote(context.Background(), "not-an-occ-symbol"); err == nil {
		t.Error("expected error for invalid OCC symbol")
	}
}

func TestMockProviderErrorsOnUnseededQuote(t *testing.T) {
	p := NewMockProvider()
	if _, err := p.GetQuote(context.Background(), "QQQ260102P00300000"); err == nil {
		t.Error("expected error for a symbol with no seeded quote")
	}
}
