package sizing

import (
	"testing"

	"options-controller/config"
	"options-controller/internal/domain"
)

func testSizingConfig() config.SizingConfig {
	return config.SizingConfig{BaseSize: 1, KellyFraction: 0.5, MinSize: 1, MaxSize: 10}
}

func TestCalculateNormalRegimeFullConfidence(t *testing.T) {
	c := NewCalculator(testSizingConfig())
	result := c.Calculate(100, domain.RegimeNormal, 1.0, 1.0)

	// base 1 * kelly(1+1*0.5=1.5) * regime(1.0) * confluence(0.8+0.4=1.2) * vix(1.0) = 1.8 -> floor 1
	if result.Quantity != 1 {
		t.Errorf("Quantity = %d, want 1", result.Quantity)
	}
}

func TestCalculateCapsAtMaxSize(t *testing.T) {
	cfg := testSizingConfig()
	cfg.BaseSize = 20
	c := NewCalculator(cfg)
	result := c.Calculate(100, domain.RegimeLowVol, 1.0, 1.0)

	if result.Quantity != cfg.MaxSize {
		t.Errorf("Quantity = %d, want capped at MaxSize %d", result.Quantity, cfg.MaxSize)
	}
}

func TestCalculateBelowMinSizeCollapsesToZero(t *testing.T) {
	cfg := testSizingConfig()
	cfg.MinSize = 5
	c := NewCalculator(cfg)
	result := c.Calculate(0, domain.RegimeHighVol, 0, 1.0)

	if result.Quantity != 0 {
		t.Errorf("Quantity = %d, want 0 (below MinSize)", result.Quantity)
	}
}

func TestCalculateZeroVixMultiplierDefaultsToOne(t *testing.T) {
	c := NewCalculator(testSizingConfig())
	withZero := c.Calculate(100, domain.RegimeNormal, 1.0, 0)
	withOne := c.Calculate(100, domain.RegimeNormal, 1.0, 1.0)

	if withZero.AfterVix != withOne.AfterVix {
		t.Errorf("AfterVix with zero multiplier = %v, want same as explicit 1.0 (%v)", withZero.AfterVix, withOne.AfterVix)
	}
}

func TestRegimeMultiplierAppliesExpectedFactor(t *testing.T) {
	c := NewCalculator(testSizingConfig())
	low := c.Calculate(0, domain.RegimeLowVol, 0, 0)
	high := c.Calculate(0, domain.RegimeHighVol, 0, 0)

	if low.AfterRegime <= high.AfterRegime {
		t.Errorf("expected LOW_VOL regime multiplier to exceed HIGH_VOL: low=%v high=%v", low.AfterRegime, high.AfterRegime)
	}
}
