// Package orchestrator implements the entry and exit decision flows that
// fold risk filtering, confluence scoring, GEX flip detection, and position
// sizing into a single auditable verdict.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"options-controller/config"
	"options-controller/internal/confluence"
	"options-controller/internal/contextcache"
	"options-controller/internal/domain"
	"options-controller/internal/gex"
	"options-controller/internal/logging"
	"options-controller/internal/position"
	"options-controller/internal/risk"
	"options-controller/internal/sizing"
)

// Orchestrator computes ENTER/REJECT decisions for inbound signals and
// EXIT/HOLD decisions for open positions.
type Orchestrator struct {
	contextCache *contextcache.Cache
	riskManager  *risk.Manager
	confluence   *confluence.Scorer
	gexService   *gex.Service
	sizer        *sizing.Calculator
	positions    *position.Manager

	confidenceCfg config.ConfidenceConfig
	sizingCfg     config.SizingConfig
	exitCfg       config.ExitConfig
	validationCfg config.ValidationConfig
}

// New creates a Decision Orchestrator wired to its collaborators.
func New(
	contextCache *contextcache.Cache,
	riskManager *risk.Manager,
	confluenceScorer *confluence.Scorer,
	gexService *gex.Service,
	sizer *sizing.Calculator,
	positions *position.Manager,
	confidenceCfg config.ConfidenceConfig,
	sizingCfg config.SizingConfig,
	exitCfg config.ExitConfig,
	validationCfg config.ValidationConfig,
) *Orchestrator {
	return &Orchestrator{
		contextCache:  contextCache,
		riskManager:   riskManager,
		confluence:    confluenceScorer,
		gexService:    gexService,
		sizer:         sizer,
		positions:     positions,
		confidenceCfg: confidenceCfg,
		sizingCfg:     sizingCfg,
		exitCfg:       exitCfg,
		validationCfg: validationCfg,
	}
}

// OrchestrateEntry runs the full entry decision flow for an inbound signal
// against its peer signals (same symbol+timeframe, for confluence).
func (o *Orchestrator) OrchestrateEntry(ctx context.Context, sig domain.Signal, peers []domain.Signal) domain.EntryDecision {
	reasoning := []string{}
	calculations := map[string]interface{}{}

	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	marketContext, err := o.contextCache.Get(fetchCtx)
	cancel()
	if err != nil {
		return reject(sig, "Market data unavailable", append(reasoning, err.Error()), calculations)
	}

	filterResult := o.riskManager.ApplyMarketFilters(sig, marketContext)
	calculations["vixMultiplier"] = filterResult.PositionSizeMultiplier
	if !filterResult.Passed {
		return reject(sig, filterResult.RejectionReason, reasoning, calculations)
	}

	confluenceScore := o.confluence.Score(sig, peers)
	calculations["confluence"] = confluenceScore
	calculations["confluenceCategory"] = o.confluence.Categorize(confluenceScore)

	gexDelta := 0
	flip, gexErr := o.gexService.DetectFlip(ctx, sig.Symbol, sig.Timeframe)
	if gexErr != nil {
		reasoning = append(reasoning, fmt.Sprintf("GEX lookup failed, continuing with no GEX adjustment: %v", gexErr))
		logging.WithComponent("orchestrator").WithError(gexErr).Warn("gex lookup failed during entry")
	} else if flip.Current != nil {
		weight := o.gexService.EffectiveWeight(*flip.Current, time.Now())
		strength := flip.Current.Strength
		gexDelta = int(strength * weight * float64(o.confidenceCfg.GEXAdjustmentRange))
	}
	calculations["gexDelta"] = gexDelta

	contextDelta := o.riskManager.ContextAdjustment(sig, marketContext, o.confidenceCfg.ContextAdjustmentRange)
	positioningDelta := o.riskManager.PositioningAdjustment(marketContext, o.confidenceCfg.PositioningAdjustmentRange)
	calculations["contextDelta"] = contextDelta
	calculations["positioningDelta"] = positioningDelta

	confluenceBoost := 0
	if confluenceScore >= o.confidenceCfg.ConfluenceBoostThreshold {
		confluenceBoost = o.confidenceCfg.ConfluenceBoost
	}
	calculations["confluenceBoost"] = confluenceBoost

	confidence := clampInt(o.confidenceCfg.BaseConfidence+contextDelta+positioningDelta+gexDelta+confluenceBoost, 0, 100)
	calculations["confidence"] = confidence

	sizeResult := o.sizer.Calculate(confidence, marketContext.Regime, confluenceScore, filterResult.PositionSizeMultiplier)
	calculations["afterBase"] = sizeResult.AfterBase
	calculations["afterKelly"] = sizeResult.AfterKelly
	calculations["afterRegime"] = sizeResult.AfterRegime
	calculations["afterConfluence"] = sizeResult.AfterConfluence
	calculations["afterVix"] = sizeResult.AfterVix
	calculations["positionSize"] = sizeResult.Quantity

	if sizeResult.Quantity < o.sizingCfg.MinSize {
		return reject(sig, "Position size below minimum", reasoning, calculations)
	}

	additionalExposure := sig.Price * float64(sizeResult.Quantity) * 100
	if o.positions.WouldExceedMaxExposure(additionalExposure) {
		return reject(sig, "Would exceed maximum total exposure", reasoning, calculations)
	}

	return domain.EntryDecision{
		Decision:     domain.DecisionEnter,
		Signal:       sig,
		Confidence:   confidence,
		PositionSize: sizeResult.Quantity,
		Reasoning:    reasoning,
		Calculations: calculations,
	}
}

func reject(sig domain.Signal, reason string, reasoning []string, calculations map[string]interface{}) domain.EntryDecision {
	return domain.EntryDecision{
		Decision:     domain.DecisionReject,
		Signal:       sig,
		Reasoning:    append(reasoning, reason),
		Calculations: calculations,
	}
}

// OrchestrateExit runs the exit decision flow for an open position. Any
// panic recovered here degrades to a HOLD decision — exits never crash the
// sweep worker.
func (o *Orchestrator) OrchestrateExit(ctx context.Context, p domain.Position, quote float64, now time.Time, marketClose time.Time) (decision domain.ExitDecision) {
	defer func() {
		if r := recover(); r != nil {
			decision = domain.ExitDecision{
				Decision:   domain.DecisionHold,
				Position:   p,
				Reasoning:  []string{fmt.Sprintf("recovered from panic during exit evaluation: %v", r)},
				Calculations: map[string]interface{}{},
			}
		}
	}()

	pnl := position.CalculateUnrealizedPnL(p, quote)
	pnlPercent := 0.0
	if p.EntryPrice > 0 {
		pnlPercent = (pnl / (p.EntryPrice * float64(p.Quantity) * 100)) * 100
	}

	calculations := map[string]interface{}{
		"quote":      quote,
		"pnl":        pnl,
		"pnlPercent": pnlPercent,
	}

	if pnlPercent >= o.exitCfg.ProfitTargetPercent {
		return domain.ExitDecision{
			Decision:     domain.DecisionExit,
			Position:     p,
			ExitReason:   domain.ExitProfitTarget,
			Reasoning:    []string{fmt.Sprintf("pnl%% %.2f reached profit target %.2f", pnlPercent, o.exitCfg.ProfitTargetPercent)},
			Calculations: calculations,
		}
	}

	if pnlPercent <= o.exitCfg.StopLossPercent {
		return domain.ExitDecision{
			Decision:     domain.DecisionExit,
			Position:     p,
			ExitReason:   domain.ExitStopLoss,
			Reasoning:    []string{fmt.Sprintf("pnl%% %.2f breached stop loss %.2f", pnlPercent, o.exitCfg.StopLossPercent)},
			Calculations: calculations,
		}
	}

	flip, err := o.gexService.DetectFlip(ctx, p.Underlying, p.Timeframe)
	if err != nil {
		calculations["gexError"] = err.Error()
		calculations["gexNote"] = "GEX_FLIP not evaluated"
	} else if flip.HasFlipped && flip.Current != nil && opposesPosition(flip.Current.Direction, p.Direction) {
		return domain.ExitDecision{
			Decision:     domain.DecisionExit,
			Position:     p,
			ExitReason:   domain.ExitGEXFlip,
			Reasoning:    []string{"GEX direction flipped against position"},
			Calculations: calculations,
		}
	}

	if !now.Before(marketClose) {
		return domain.ExitDecision{
			Decision:     domain.DecisionExit,
			Position:     p,
			ExitReason:   domain.ExitTimeExit,
			Reasoning:    []string{"market close reached"},
			Calculations: calculations,
		}
	}

	return domain.ExitDecision{
		Decision:     domain.DecisionHold,
		Position:     p,
		Reasoning:    []string{"no exit condition met"},
		Calculations: calculations,
	}
}

func opposesPosition(gexDirection, positionDirection string) bool {
	return (positionDirection == domain.DirectionCall && gexDirection == domain.DirectionPut) ||
		(positionDirection == domain.DirectionPut && gexDirection == domain.DirectionCall)
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
