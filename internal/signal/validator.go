package signal

import (
	"time"

	"options-controller/config"
	"options-controller/internal/domain"
)

// Validator checks a normalized Signal against market rules. It never
// panics or returns a Go error — every check resolves to a pass or a
// reason string, matching spec's "returns first failure reason; never
// throws" contract so the pipeline can always record a clean
// PipelineFailure instead of crashing a worker.
type Validator struct {
	cfg config.ValidationConfig
}

// NewValidator creates a Validator bound to its market-hours/timestamp configuration.
func NewValidator(cfg config.ValidationConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate runs every check in order and returns the first failure reason,
// or "" if the signal passes all of them.
func (v *Validator) Validate(sig domain.Signal, ctx *domain.ContextData, now time.Time) string {
	if sig.Direction != domain.DirectionCall && sig.Direction != domain.DirectionPut {
		return "invalid direction"
	}

	if sig.Timeframe == "" {
		return "missing timeframe"
	}

	skew := now.Sub(sig.Timestamp)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.cfg.MaxTimestampSkew {
		return "timestamp outside acceptable window"
	}

	if !v.withinMarketHours(now) {
		return "outside market hours"
	}

	if ctx != nil && (ctx.VIX < 0 || ctx.VIX > 200) {
		return "VIX out of acceptable bounds"
	}

	return ""
}

func (v *Validator) withinMarketHours(now time.Time) bool {
	loc, err := time.LoadLocation(v.cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)

	open, err := time.ParseInLocation("15:04", v.cfg.MarketHoursStart, loc)
	if err != nil {
		return true
	}
	close, err := time.ParseInLocation("15:04", v.cfg.MarketHoursEnd, loc)
	if err != nil {
		return true
	}

	openToday := time.Date(local.Year(), local.Month(), local.Day(), open.Hour(), open.Minute(), 0, 0, loc)
	closeToday := time.Date(local.Year(), local.Month(), local.Day(), close.Hour(), close.Minute(), 0, 0, loc)

	return !local.Before(openToday) && !local.After(closeToday)
}
