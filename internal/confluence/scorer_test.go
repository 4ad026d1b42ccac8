package confluence

import (
	"testing"

	"options-controller/config"
	"options-controller/internal/domain"
)

func testConfluenceConfig() config.ConfluenceConfig {
	return config.ConfluenceConfig{
		SourceWeights:   map[string]float64{"TRADINGVIEW": 1.0, "GEX": 0.9, "MTF": 0.85, "MANUAL": 0.7},
		HighThreshold:   0.7,
		MediumThreshold: 0.5,
	}
}

func TestScoreAllPeersAgree(t *testing.T) {
	s := NewScorer(testConfluenceConfig())
	target := domain.Signal{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall}
	peers := []domain.Signal{
		{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall, Source: domain.SourceGEX},
		{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall, Source: domain.SourceMTF},
	}

	if score := s.Score(target, peers); score != 1.0 {
		t.Errorf("Score = %v, want 1.0", score)
	}
}

func TestScoreIgnoresPeersWithDifferentSymbolOrTimeframe(t *testing.T) {
	s := NewScorer(testConfluenceConfig())
	target := domain.Signal{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall}
	peers := []domain.Signal{
		{Symbol: "QQQ", Timeframe: "60m", Direction: domain.DirectionCall, Source: domain.SourceGEX},
		{Symbol: "SPY", Timeframe: "240m", Direction: domain.DirectionCall, Source: domain.SourceGEX},
	}

	if score := s.Score(target, peers); score != 0 {
		t.Errorf("Score = %v, want 0 (no matching peers)", score)
	}
}

func TestScoreEmptyPool(t *testing.T) {
	s := NewScorer(testConfluenceConfig())
	target := domain.Signal{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall}

	if score := s.Score(target, nil); score != 0 {
		t.Errorf("Score = %v, want 0 for empty peer pool", score)
	}
}

func TestScorePartialAgreement(t *testing.T) {
	s := NewScorer(testConfluenceConfig())
	target := domain.Signal{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall}
	peers := []domain.Signal{
		{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall, Source: domain.SourceTradingView}, // weight 1.0, agrees
		{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionPut, Source: domain.SourceTradingView},  // weight 1.0, disagrees
	}

	if score := s.Score(target, peers); score != 0.5 {
		t.Errorf("Score = %v, want 0.5", score)
	}
}

func TestCategorize(t *testing.T) {
	s := NewScorer(testConfluenceConfig())
	if got := s.Categorize(0.8); got != CategoryHigh {
		t.Errorf("Categorize(0.8) = %q, want HIGH", got)
	}
	if got := s.Categorize(0.6); got != CategoryMedium {
		t.Errorf("Categorize(0.6) = %q, want MEDIUM", got)
	}
	if got := s.Categorize(0.2); got != CategoryLow {
		t.Errorf("Categorize(0.2) = %q, want LOW", got)
	}
}
