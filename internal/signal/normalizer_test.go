package signal

import (
	"testing"

	"options-controller/internal/domain"
)

func TestNormalizeTradingViewPayload(t *testing.T) {
	n := NewNormalizer()
	payload := map[string]interface{}{
		"symbol":    "SPY",
		"direction": "BUY",
		"timeframe": "1h",
		"price":     450.25,
		"strategy":  "breakout",
	}

	sig, err := n.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if sig.Source != domain.SourceTradingView {
		t.Errorf("Source = %q, want %q", sig.Source, domain.SourceTradingView)
	}
	if sig.Symbol != "SPY" {
		t.Errorf("Symbol = %q, want SPY", sig.Symbol)
	}
	if sig.Direction != domain.DirectionCall {
		t.Errorf("Direction = %q, want CALL", sig.Direction)
	}
	if sig.Timeframe != "60m" {
		t.Errorf("Timeframe = %q, want 60m", sig.Timeframe)
	}
	if sig.Underlying != "SPY" {
		t.Errorf("Underlying defaulted to %q, want SPY", sig.Underlying)
	}
}

func TestNormalizeHeartbeat(t *testing.T) {
	n := NewNormalizer()
	if _, err := n.Normalize(map[string]interface{}{"heartbeat": true}); err != ErrHeartbeat {
		t.Errorf("expected ErrHeartbeat, got %v", err)
	}
	if _, err := n.Normalize(map[string]interface{}{"type": "ping"}); err != ErrHeartbeat {
		t.Errorf("expected ErrHeartbeat for type=ping, got %v", err)
	}
}

func TestNormalizeMissingSymbol(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize(map[string]interface{}{"direction": "BUY"})
	if err == nil {
		t.Fatal("expected ParseError for missing symbol")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Errorf("expected *ParseError, got %T", err)
	}
}

func TestNormalizeUnrecognizedDirection(t *testing.T) {
	n := NewNormalizer()
	_, err := n.Normalize(map[string]interface{}{"symbol": "SPY", "direction": "SIDEWAYS"})
	if err == nil {
		t.Fatal("expected ParseError for unrecognized direction")
	}
}

func TestDetectSourceGEX(t *testing.T) {
	n := NewNormalizer()
	sig, err := n.Normalize(map[string]interface{}{
		"symbol": "SPY", "direction": "CALL", "gex_value": 1.2,
	})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if sig.Source != domain.SourceGEX {
		t.Errorf("Source = %q, want %q", sig.Source, domain.SourceGEX)
	}
}
