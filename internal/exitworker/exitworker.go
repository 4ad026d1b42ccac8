// Package exitworker implements the interval sweep over OPEN positions that
// resolves exit decisions and submits closing orders. Singleton-gated so at
// most one sweep runs concurrently — a slow sweep simply skips its next
// tick rather than overlapping.
package exitworker

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"options-controller/internal/adapter"
	"options-controller/internal/audit"
	"options-controller/internal/database"
	"options-controller/internal/domain"
	"options-controller/internal/events"
	"options-controller/internal/logging"
	"options-controller/internal/marketdata"
	"options-controller/internal/occ"
	"options-controller/internal/orchestrator"
	"options-controller/internal/position"

	"github.com/google/uuid"
)

// Worker runs the exit sweep on an interval timer, and on demand via
// RunSweep for the /refactored-exit-worker endpoint.
type Worker struct {
	orchestrator *orchestrator.Orchestrator
	positions    *position.Manager
	quotes       marketdata.QuoteProvider
	adapterClient adapter.Adapter
	bus          *events.EventBus

	orderRepo    *database.OrderRepository
	decisionRepo *database.DecisionRepository

	sweepInterval time.Duration
	marketClose   func(now time.Time) time.Time

	running int32 // atomic: 1 while a sweep is in flight
}

// Deps bundles the Exit Worker's collaborators.
type Deps struct {
	Orchestrator *orchestrator.Orchestrator
	Positions    *position.Manager
	Quotes       marketdata.QuoteProvider
	Adapter      adapter.Adapter
	Bus          *events.EventBus

	OrderRepo    *database.OrderRepository
	DecisionRepo *database.DecisionRepository

	SweepInterval time.Duration
	// MarketClose computes the close time of the trading session `now`
	// falls in; defaults to 16:00 America/New_York if nil.
	MarketClose func(now time.Time) time.Time
}

// New creates an Exit Worker.
func New(deps Deps) *Worker {
	marketClose := deps.MarketClose
	if marketClose == nil {
		marketClose = defaultMarketClose
	}
	return &Worker{
		orchestrator:  deps.Orchestrator,
		positions:     deps.Positions,
		quotes:        deps.Quotes,
		adapterClient: deps.Adapter,
		bus:           deps.Bus,
		orderRepo:     deps.OrderRepo,
		decisionRepo:  deps.DecisionRepo,
		sweepInterval: deps.SweepInterval,
		marketClose:   marketClose,
	}
}

func defaultMarketClose(now time.Time) time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	local := now.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 16, 0, 0, 0, loc)
}

// Run starts the interval sweep loop; it blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	logging.WithComponent("exit-worker").Info("exit worker started", "interval", w.sweepInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.RunSweep(ctx, false); err != nil {
				logging.WithComponent("exit-worker").WithError(err).Warn("sweep failed")
			}
		}
	}
}

// RunSweep evaluates every OPEN position once. dryRun computes decisions
// without submitting closing orders or mutating position state — used by
// the on-demand trigger endpoint to preview what a sweep would do.
func (w *Worker) RunSweep(ctx context.Context, dryRun bool) ([]domain.ExitDecision, error) {
	if !atomic.CompareAndSwapInt32(&w.running, 0, 1) {
		return nil, fmt.Errorf("exit worker: sweep already in progress")
	}
	defer atomic.StoreInt32(&w.running, 0)

	open := w.positions.ListOpenPositions()
	now := time.Now()
	decisions := make([]domain.ExitDecision, 0, len(open))

	for _, pos := range open {
		decision, ok := w.evaluate(ctx, pos, now)
		if !ok {
			continue
		}
		decisions = append(decisions, decision)

		if dryRun {
			continue
		}
		if decision.Decision == domain.DecisionExit {
			w.executeExit(ctx, decision)
		}
	}

	audit.SetOpenExposure(w.positions.TotalExposure())
	return decisions, nil
}

// evaluate resolves contract details, fetches a quote, and runs the
// orchestrator's exit flow. Returns ok=false when contract details are
// incomplete or the quote fetch fails — the position is skipped this tick
// and picked back up on the next sweep rather than treated as a failure.
func (w *Worker) evaluate(ctx context.Context, pos domain.Position, now time.Time) (domain.ExitDecision, bool) {
	if pos.Underlying == "" || pos.Expiration.IsZero() || pos.OptionType == "" || pos.Strike <= 0 {
		logging.WithComponent("exit-worker").Warn("skipping position with incomplete contract details", "positionId", pos.ID)
		return domain.ExitDecision{}, false
	}

	occSymbol, err := occ.Encode(pos.Underlying, pos.Expiration, pos.OptionType, pos.Strike)
	if err != nil {
		logging.WithComponent("exit-worker").WithError(err).Warn("skipping position, failed to encode OCC symbol", "positionId", pos.ID)
		return domain.ExitDecision{}, false
	}

	quote, err := w.quotes.GetQuote(ctx, occSymbol)
	if err != nil {
		logging.WithComponent("exit-worker").WithError(err).Warn("skipping position, quote fetch failed", "positionId", pos.ID)
		return domain.ExitDecision{}, false
	}

	decision := w.orchestrator.OrchestrateExit(ctx, pos, quote, now, w.marketClose(now))
	audit.RecordExitDecision(decision.Decision, decision.ExitReason)

	if err := w.decisionRepo.InsertExitDecision(ctx, uuid.NewString(), decision); err != nil {
		logging.WithComponent("exit-worker").WithError(err).Warn("failed to persist exit decision", "positionId", pos.ID)
	}
	if w.bus != nil {
		w.bus.PublishExitDecision(pos.ID, pos.ID, decision.ExitReason)
	}

	return decision, true
}

// executeExit computes the close quantity, submits a closing order, and
// updates the position ledger. PROFIT_TARGET exits with more than one
// contract close half the position (floored); every other exit reason, or
// a single-contract position, closes in full.
func (w *Worker) executeExit(ctx context.Context, decision domain.ExitDecision) {
	pos := decision.Position
	quote := 0.0
	if v, ok := decision.Calculations["quote"].(float64); ok {
		quote = v
	}

	closeQty := pos.Quantity
	if decision.ExitReason == domain.ExitProfitTarget && pos.Quantity > 1 {
		closeQty = int(math.Floor(float64(pos.Quantity) / 2))
		if closeQty < 1 {
			closeQty = 1
		}
	}

	occSymbol, err := occ.Encode(pos.Underlying, pos.Expiration, pos.OptionType, pos.Strike)
	if err != nil {
		logging.WithComponent("exit-worker").WithError(err).Warn("failed to encode OCC symbol for closing order", "positionId", pos.ID)
		return
	}

	correlationID := uuid.NewString()
	order := domain.Order{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		PositionID:    pos.ID,
		OCCSymbol:     occSymbol,
		Side:          domain.SideSellToClose,
		Quantity:      closeQty,
		Status:        domain.OrderPending,
		SubmittedAt:   time.Now(),
	}

	result, err := w.adapterClient.Submit(ctx, adapter.SubmitRequest{
		CorrelationID: correlationID,
		OCCSymbol:     occSymbol,
		Side:          order.Side,
		Quantity:      closeQty,
		LimitPrice:    quote,
	})

	_ = w.orderRepo.LogAdapterCall(ctx, correlationID, w.adapterClient.Name(), "submit_exit", order, result, err)

	if err != nil {
		order.Status = domain.OrderRejected
		audit.RecordOrder(order.Side, order.Status)
		if insertErr := w.orderRepo.Insert(ctx, order); insertErr != nil {
			logging.WithComponent("exit-worker").WithError(insertErr).Warn("failed to persist rejected closing order", "positionId", pos.ID)
		}
		if w.bus != nil {
			w.bus.PublishOrderRejected(correlationID, order.ID, err.Error())
		}
		return
	}

	order.BrokerOrderID = result.BrokerOrderID
	order.Status = result.Status
	order.FilledQuantity = result.FilledQuantity
	order.AvgFillPrice = result.AvgFillPrice
	order.UpdatedAt = time.Now()
	audit.RecordOrder(order.Side, order.Status)

	if err := w.orderRepo.Insert(ctx, order); err != nil {
		logging.WithComponent("exit-worker").WithError(err).Warn("failed to persist closing order", "positionId", pos.ID)
	}

	trade := domain.Trade{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		PositionID: pos.ID,
		Quantity:   result.FilledQuantity,
		Price:      result.AvgFillPrice,
		ExecutedAt: time.Now(),
	}
	if err := w.orderRepo.InsertTrade(ctx, trade); err != nil {
		logging.WithComponent("exit-worker").WithError(err).Warn("failed to persist closing trade", "positionId", pos.ID)
	}

	if closeQty >= pos.Quantity {
		if _, err := w.positions.ClosePosition(ctx, pos.ID, result.AvgFillPrice, decision.ExitReason); err != nil {
			logging.WithComponent("exit-worker").WithError(err).Warn("failed to close position", "positionId", pos.ID)
		}
		return
	}

	if err := w.positions.ReduceQuantity(ctx, pos.ID, pos.Quantity-closeQty); err != nil {
		logging.WithComponent("exit-worker").WithError(err).Warn("failed to reduce position quantity", "positionId", pos.ID)
	}
}
