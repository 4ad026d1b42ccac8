package orchestrator

import (
	"context"
	"testing"
	"time"

	"options-controller/config"
	"options-controller/internal/confluence"
	"options-controller/internal/contextcache"
	"options-controller/internal/domain"
	"options-controller/internal/gex"
	"options-controller/internal/position"
	"options-controller/internal/risk"
	"options-controller/internal/sizing"
)

type fakeGexRepo struct {
	latest *domain.GEXSignal
	recent []domain.GEXSignal
}

func (f *fakeGexRepo) Latest(ctx context.Context, symbol, timeframe string) (*domain.GEXSignal, error) {
	return f.latest, nil
}
func (f *fakeGexRepo) RecentTwo(ctx context.Context, symbol, timeframe string) ([]domain.GEXSignal, error) {
	return f.recent, nil
}

type fakePositionRepo struct{}

func (f *fakePositionRepo) Insert(ctx context.Context, p domain.Position) error { return nil }
func (f *fakePositionRepo) UpdateMark(ctx context.Context, positionID string, currentPrice, unrealizedPnL float64) error {
	return nil
}
func (f *fakePositionRepo) Close(ctx context.Context, p domain.Position) error { return nil }
func (f *fakePositionRepo) UpdateQuantity(ctx context.Context, positionID string, quantity int) error {
	return nil
}
func (f *fakePositionRepo) GetBySignalID(ctx context.Context, signalID string) (*domain.Position, error) {
	return nil, nil
}
func (f *fakePositionRepo) ListOpen(ctx context.Context) ([]domain.Position, error) { return nil, nil }
func (f *fakePositionRepo) TotalOpenExposure(ctx context.Context) (float64, error)  { return 0, nil }

func testOrchestrator(t *testing.T, ctxData domain.ContextData, gexRepo *fakeGexRepo) *Orchestrator {
	t.Helper()
	cache := contextcache.NewCache(time.Minute, func(ctx context.Context) (domain.ContextData, error) {
		return ctxData, nil
	}, nil)

	riskCfg := config.RiskConfig{MaxVixForEntry: 50, VixPositionSizeReduction: 0.5, VixReductionThreshold: 30, MaxTotalExposure: 1000000}
	confluenceCfg := config.ConfluenceConfig{
		SourceWeights:   map[string]float64{"TRADINGVIEW": 1.0, "GEX": 0.9, "MTF": 0.85, "MANUAL": 0.7},
		HighThreshold:   0.7,
		MediumThreshold: 0.5,
	}
	sizingCfg := config.SizingConfig{BaseSize: 1, KellyFraction: 0.5, MinSize: 1, MaxSize: 10}
	confidenceCfg := config.ConfidenceConfig{
		BaseConfidence: 50, ContextAdjustmentRange: 30, PositioningAdjustmentRange: 10,
		GEXAdjustmentRange: 20, ConfluenceBoostThreshold: 0.7, ConfluenceBoost: 10,
	}
	exitCfg := config.ExitConfig{ProfitTargetPercent: 50, StopLossPercent: -30}
	validationCfg := config.ValidationConfig{}

	if gexRepo == nil {
		gexRepo = &fakeGexRepo{}
	}
	gexSvc := gex.NewService(gexRepo, config.GEXConfig{MaxStaleMinutes: 60, StaleWeightReduction: 0.5})

	return New(
		cache,
		risk.NewManager(riskCfg),
		confluence.NewScorer(confluenceCfg),
		gexSvc,
		sizing.NewCalculator(sizingCfg),
		position.NewManager(&fakePositionRepo{}, nil, 1000000),
		confidenceCfg,
		sizingCfg,
		exitCfg,
		validationCfg,
	)
}

func TestOrchestrateEntryAcceptsStrongSignal(t *testing.T) {
	o := testOrchestrator(t, domain.ContextData{VIX: 15, Trend: domain.TrendBullish, Regime: domain.RegimeNormal}, nil)
	sig := domain.Signal{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall, Price: 5.0}
	peers := []domain.Signal{
		{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall, Source: domain.SourceGEX},
	}

	decision := o.OrchestrateEntry(context.Background(), sig, peers)
	if decision.Decision != domain.DecisionEnter {
		t.Fatalf("Decision = %q, want ENTER; reasoning=%v", decision.Decision, decision.Reasoning)
	}
	if decision.PositionSize < 1 {
		t.Errorf("PositionSize = %d, want >= 1", decision.PositionSize)
	}
}

func TestOrchestrateEntryRejectsOnExcessiveVIX(t *testing.T) {
	o := testOrchestrator(t, domain.ContextData{VIX: 90}, nil)
	sig := domain.Signal{Symbol: "SPY", Timeframe: "60m", Direction: domain.DirectionCall, Price: 5.0}

	decision := o.OrchestrateEntry(context.Background(), sig, nil)
	if decision.Decision != domain.DecisionReject {
		t.Errorf("Decision = %q, want REJECT", decision.Decision)
	}
}

func TestOrchestrateExitTriggersProfitTarget(t *testing.T) {
	o := testOrchestrator(t, domain.ContextData{}, nil)
	entryTime := time.Now().Add(-time.Hour)
	pos := domain.Position{
		ID: "p1", Direction: domain.DirectionCall, Quantity: 1,
		EntryPrice: 5.0, EntryTime: entryTime, Underlying: "SPY", Timeframe: "60m",
	}

	decision := o.OrchestrateExit(context.Background(), pos, 10.0, time.Now(), time.Now().Add(time.Hour))
	if decision.Decision != domain.DecisionExit || decision.ExitReason != domain.ExitProfitTarget {
		t.Errorf("Decision=%q ExitReason=%q, want EXIT/PROFIT_TARGET", decision.Decision, decision.ExitReason)
	}
}

func TestOrchestrateExitTriggersStopLoss(t *testing.T) {
	o := testOrchestrator(t, domain.ContextData{}, nil)
	pos := domain.Position{
		ID: "p1", Direction: domain.DirectionCall, Quantity: 1,
		EntryPrice: 5.0, EntryTime: time.Now(), Underlying: "SPY", Timeframe: "60m",
	}

	decision := o.OrchestrateExit(context.Background(), pos, 2.0, time.Now(), time.Now().Add(time.Hour))
	if decision.Decision != domain.DecisionExit || decision.ExitReason != domain.ExitStopLoss {
		t.Errorf("Decision=%q ExitReason=%q, want EXIT/STOP_LOSS", decision.Decision, decision.ExitReason)
	}
}

func TestOrchestrateExitTriggersMarketClose(t *testing.T) {
	o := testOrchestrator(t, domain.ContextData{}, nil)
	pos := domain.Position{
		ID: "p1", Direction: domain.DirectionCall, Quantity: 1,
		EntryPrice: 5.0, EntryTime: time.Now(), Underlying: "SPY", Timeframe: "60m",
	}
	now := time.Now()

	decision := o.OrchestrateExit(context.Background(), pos, 5.1, now, now.Add(-time.Minute))
	if decision.Decision != domain.DecisionExit || decision.ExitReason != domain.ExitTimeExit {
		t.Errorf("Decision=%q ExitReason=%q, want EXIT/TIME_EXIT", decision.Decision, decision.ExitReason)
	}
}

func TestOrchestrateExitHoldsWithNoTrigger(t *testing.T) {
	o := testOrchestrator(t, domain.ContextData{}, nil)
	pos := domain.Position{
		ID: "p1", Direction: domain.DirectionCall, Quantity: 1,
		EntryPrice: 5.0, EntryTime: time.Now(), Underlying: "SPY", Timeframe: "60m",
	}
	now := time.Now()

	decision := o.OrchestrateExit(context.Background(), pos, 5.1, now, now.Add(time.Hour))
	if decision.Decision != domain.DecisionHold {
		t.Errorf("Decision = %q, want HOLD", decision.Decision)
	}
}
