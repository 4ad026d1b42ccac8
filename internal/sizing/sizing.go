// Package sizing implements position sizing: a strict ordered multiplier
// chain from a configured base size down to a floored integer contract
// count, with every intermediate value retained for the audit trail the
// decision orchestrator persists alongside each entry decision.
package sizing

import (
	"math"

	"options-controller/config"
	"options-controller/internal/domain"
)

// Regime multipliers applied at step 3 of the pipeline.
const (
	regimeLowVolMultiplier  = 1.2
	regimeHighVolMultiplier = 0.7
	regimeNormalMultiplier  = 1.0
)

// Result carries the final sized quantity plus every intermediate value,
// so a caller can persist or log the full chain without recomputing it.
type Result struct {
	AfterBase      float64
	AfterKelly     float64
	AfterRegime    float64
	AfterConfluence float64
	AfterVix       float64
	Capped         float64
	Quantity       int
}

// Calculator runs the ordered sizing pipeline against its configured base,
// Kelly fraction, and min/max bounds.
type Calculator struct {
	cfg config.SizingConfig
}

// NewCalculator creates a Calculator bound to its sizing configuration.
func NewCalculator(cfg config.SizingConfig) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate runs the 8-step ordered pipeline:
//  1. base = configured baseSize
//  2. ×Kelly = 1 + (confidence/100)·kellyFraction
//  3. ×Regime = {LOW_VOL 1.2, HIGH_VOL 0.7, NORMAL 1.0}
//  4. ×Confluence = 0.8 + 0.4·confluence
//  5. ×VIX multiplier, if the Risk Manager supplied one
//  6. cap at maxSize
//  7. below minSize collapses to zero
//  8. floor to integer
func (c *Calculator) Calculate(confidence int, regime string, confluence float64, vixMultiplier float64) Result {
	afterBase := float64(c.cfg.BaseSize)

	kellyMultiplier := 1 + (float64(confidence)/100)*c.cfg.KellyFraction
	afterKelly := afterBase * kellyMultiplier

	afterRegime := afterKelly * regimeMultiplier(regime)

	confluenceMultiplier := 0.8 + 0.4*confluence
	afterConfluence := afterRegime * confluenceMultiplier

	if vixMultiplier <= 0 {
		vixMultiplier = 1.0
	}
	afterVix := afterConfluence * vixMultiplier

	capped := math.Min(afterVix, float64(c.cfg.MaxSize))

	quantity := 0
	if capped >= float64(c.cfg.MinSize) {
		quantity = int(math.Floor(capped))
	}

	return Result{
		AfterBase:       afterBase,
		AfterKelly:      afterKelly,
		AfterRegime:     afterRegime,
		AfterConfluence: afterConfluence,
		AfterVix:        afterVix,
		Capped:          capped,
		Quantity:        quantity,
	}
}

func regimeMultiplier(regime string) float64 {
	switch regime {
	case domain.RegimeLowVol:
		return regimeLowVolMultiplier
	case domain.RegimeHighVol:
		return regimeHighVolMultiplier
	default:
		return regimeNormalMultiplier
	}
}
