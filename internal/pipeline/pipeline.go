// Package pipeline implements the webhook handler's downstream collaborator.
// Parse, validate, and dedup run synchronously so the HTTP handler can pick
// a status code before responding; orchestration, order submission, and
// position backfill continue on a bounded worker pool so a slow brokerage
// round trip never blocks the webhook response, and a saturated queue
// degrades to a QUEUED status rather than blocking the producer.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"options-controller/internal/adapter"
	"options-controller/internal/api"
	"options-controller/internal/audit"
	"options-controller/internal/contextcache"
	"options-controller/internal/database"
	"options-controller/internal/dedup"
	"options-controller/internal/domain"
	"options-controller/internal/events"
	"options-controller/internal/logging"
	"options-controller/internal/occ"
	"options-controller/internal/orchestrator"
	"options-controller/internal/position"
	"options-controller/internal/signal"

	"github.com/google/uuid"
)

// IngestResult is an alias for the HTTP layer's result type: the handler
// switches on Status/HTTPStatus to pick a response, so the pipeline returns
// the exact type api.Pipeline expects rather than a structurally-similar
// stand-in.
type IngestResult = api.IngestResult

const (
	statusAccepted  = "accepted"
	statusDuplicate = "duplicate"
	statusRejected  = "rejected"
	statusError     = "error"
	statusQueued    = "queued"
)

const (
	defaultWorkerCount = 8
	defaultQueueDepth  = 256
)

// pipelineJob is one signal's completion work (orchestration, submission,
// position backfill), handed off to the worker pool after the synchronous
// normalize/validate/dedup stages accept it.
type pipelineJob struct {
	correlationID string
	sig           domain.Signal
}

// Pipeline wires the Normalizer, Validator, Dedup Cache, Context Cache,
// Decision Orchestrator, brokerage Adapter, and persistence layer into the
// signal-to-order flow.
type Pipeline struct {
	normalizer   *signal.Normalizer
	validator    *signal.Validator
	dedupCache   *dedup.Cache
	contextCache *contextcache.Cache
	orchestrator *orchestrator.Orchestrator
	positions    *position.Manager
	adapterClient adapter.Adapter
	bus          *events.EventBus

	signalRepo   *database.SignalRepository
	orderRepo    *database.OrderRepository
	decisionRepo *database.DecisionRepository
	contextRepo  *database.ContextRepository
	gexRepo      *database.GEXRepository

	dedupWindow time.Duration

	workQueue chan pipelineJob
}

// Deps bundles the Signal Pipeline's collaborators.
type Deps struct {
	Normalizer   *signal.Normalizer
	Validator    *signal.Validator
	DedupCache   *dedup.Cache
	ContextCache *contextcache.Cache
	Orchestrator *orchestrator.Orchestrator
	Positions    *position.Manager
	Adapter      adapter.Adapter
	Bus          *events.EventBus

	SignalRepo   *database.SignalRepository
	OrderRepo    *database.OrderRepository
	DecisionRepo *database.DecisionRepository
	ContextRepo  *database.ContextRepository
	GexRepo      *database.GEXRepository

	DedupWindow time.Duration

	// WorkerCount and QueueDepth size the bounded async-completion pool.
	// Zero falls back to defaultWorkerCount/defaultQueueDepth.
	WorkerCount int
	QueueDepth  int
}

// New creates a Signal Pipeline and starts its bounded completion worker
// pool. Call Stop to drain and shut the pool down.
func New(deps Deps) *Pipeline {
	workerCount := deps.WorkerCount
	if workerCount <= 0 {
		workerCount = defaultWorkerCount
	}
	queueDepth := deps.QueueDepth
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}

	p := &Pipeline{
		normalizer:    deps.Normalizer,
		validator:     deps.Validator,
		dedupCache:    deps.DedupCache,
		contextCache:  deps.ContextCache,
		orchestrator:  deps.Orchestrator,
		positions:     deps.Positions,
		adapterClient: deps.Adapter,
		bus:           deps.Bus,
		signalRepo:    deps.SignalRepo,
		orderRepo:     deps.OrderRepo,
		decisionRepo:  deps.DecisionRepo,
		contextRepo:   deps.ContextRepo,
		gexRepo:       deps.GexRepo,
		dedupWindow:   deps.DedupWindow,
		workQueue:     make(chan pipelineJob, queueDepth),
	}

	for i := 0; i < workerCount; i++ {
		go p.runWorker()
	}

	return p
}

// runWorker drains the completion queue until it's closed by Stop.
func (p *Pipeline) runWorker() {
	for job := range p.workQueue {
		p.completeAsync(job.correlationID, job.sig)
	}
}

// Stop closes the completion queue, letting queued jobs drain before its
// workers exit. Call once, during shutdown.
func (p *Pipeline) Stop() {
	close(p.workQueue)
}

// IngestContext persists a CONTEXT payload and updates the Context Cache
// immediately, short-circuiting the TRADING flow entirely.
func (p *Pipeline) IngestContext(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult {
	ctxData := domain.ContextData{
		VIX:       floatField(payload, "vix"),
		Trend:     stringFieldOr(payload, "trend", domain.TrendNeutral),
		Bias:      floatField(payload, "bias"),
		Regime:    stringFieldOr(payload, "regime", domain.RegimeNormal),
		Timestamp: time.Now(),
	}

	if err := p.contextRepo.Insert(ctx, ctxData); err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to persist context snapshot", "correlationId", correlationID)
		return IngestResult{Status: statusError, HTTPStatus: 500, Reason: "failed to persist context"}
	}
	p.contextCache.Set(ctxData)

	if p.bus != nil {
		p.bus.PublishContextUpdated(ctxData.VIX, ctxData.Trend, fmt.Sprintf("%.2f", ctxData.Bias), ctxData.Regime)
	}

	return IngestResult{Status: statusAccepted, HTTPStatus: 200}
}

// IngestGEX persists a GEX positioning update. Flip detection against prior
// readings is the Confluence/GEX Service's job at decision time, not
// ingestion's, so this always publishes flip=false — OrchestrateEntry
// recomputes the flip itself from the persisted history.
func (p *Pipeline) IngestGEX(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult {
	gexSig := domain.GEXSignal{
		Symbol:    strings.ToUpper(stringFieldOr(payload, "symbol", "")),
		Timeframe: stringFieldOr(payload, "timeframe", ""),
		Strength:  floatField(payload, "strength"),
		Direction: stringFieldOr(payload, "direction", ""),
		Timestamp: time.Now(),
	}
	if gexSig.Symbol == "" {
		return IngestResult{Status: statusRejected, HTTPStatus: 400, Reason: "missing symbol"}
	}

	if err := p.gexRepo.Insert(ctx, gexSig); err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to persist gex signal", "correlationId", correlationID)
		return IngestResult{Status: statusError, HTTPStatus: 500, Reason: "failed to persist gex signal"}
	}

	if p.bus != nil {
		p.bus.PublishGEXUpdated(gexSig.Symbol, gexSig.Timeframe, gexSig.Strength, false)
	}

	return IngestResult{Status: statusAccepted, HTTPStatus: 200}
}

// IngestTrading runs Normalize → Validate → Dedup synchronously, records a
// PipelineFailure for whichever stage rejects the payload, and — on
// success — schedules orchestration/submission asynchronously before
// returning.
func (p *Pipeline) IngestTrading(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult {
	sig, err := p.normalizer.Normalize(payload)
	if err == signal.ErrHeartbeat {
		return IngestResult{Status: statusAccepted, HTTPStatus: 200, Reason: "heartbeat"}
	}
	if err != nil {
		p.recordFailure(ctx, correlationID, "normalize", err.Error(), payload)
		return IngestResult{Status: statusRejected, HTTPStatus: 400, Reason: err.Error()}
	}
	sig.ID = uuid.NewString()

	if err := p.signalRepo.InsertSignal(ctx, correlationID, sig); err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to persist canonical signal", "correlationId", correlationID)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	marketContext, ctxErr := p.contextCache.Get(fetchCtx)
	cancel()
	var ctxPtr *domain.ContextData
	if ctxErr == nil {
		ctxPtr = &marketContext
	}

	if reason := p.validator.Validate(sig, ctxPtr, time.Now()); reason != "" {
		p.recordFailure(ctx, correlationID, "validate", reason, payload)
		audit.RecordSignal(statusRejected)
		if p.bus != nil {
			p.bus.PublishSignalRejected(correlationID, reason)
		}
		return IngestResult{Status: statusRejected, SignalID: sig.ID, HTTPStatus: 400, Reason: reason}
	}

	fingerprint := dedup.Fingerprint(sig, p.dedupWindow)
	if p.dedupCache.Check(ctx, fingerprint) {
		p.recordFailure(ctx, correlationID, "dedup", "duplicate fingerprint within window", payload)
		audit.RecordSignal(statusDuplicate)
		if p.bus != nil {
			p.bus.PublishSignalDuplicate(correlationID, fingerprint)
		}
		return IngestResult{Status: statusDuplicate, SignalID: sig.ID, HTTPStatus: 200, Reason: "duplicate signal"}
	}

	if err := p.signalRepo.InsertRefactoredSignal(ctx, correlationID, fingerprint, sig); err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to persist refactored signal", "correlationId", correlationID)
	}

	audit.RecordSignal(statusAccepted)
	if p.bus != nil {
		p.bus.PublishSignalReceived(correlationID, sig.Underlying, sig.Direction, sig.Source)
	}

	// Orchestration and submission continue on the worker pool: the handler
	// has already decided on ACCEPTED, so a slow brokerage round trip never
	// blocks the webhook response. A saturated queue still returns 200 but
	// reports QUEUED so the caller knows completion may be delayed.
	select {
	case p.workQueue <- pipelineJob{correlationID: correlationID, sig: sig}:
		return IngestResult{Status: statusAccepted, SignalID: sig.ID, HTTPStatus: 200}
	default:
		logging.WithComponent("pipeline").Warn("completion queue saturated, signal accepted but delayed", "correlationId", correlationID)
		audit.RecordSignal(statusQueued)
		return IngestResult{Status: statusQueued, SignalID: sig.ID, HTTPStatus: 200}
	}
}

// completeAsync runs the Decision Orchestrator, submits an order on ENTER,
// and backfills the position ledger. It never panics the caller: a panic
// recovered here is logged and dropped, matching the pipeline's
// never-crash contract for background stages.
func (p *Pipeline) completeAsync(correlationID string, sig domain.Signal) {
	defer func() {
		if r := recover(); r != nil {
			logging.WithComponent("pipeline").Error("recovered from panic during async completion", "correlationId", correlationID, "panic", fmt.Sprintf("%v", r))
		}
	}()

	ctx := context.Background()

	peers, err := p.signalRepo.RecentBySymbolTimeframe(ctx, sig.Symbol, sig.Timeframe, 15*time.Minute, 50)
	if err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to fetch confluence peers", "correlationId", correlationID)
	}

	decision := p.orchestrator.OrchestrateEntry(ctx, sig, peers)
	audit.RecordEntryDecision(decision.Decision)

	if err := p.decisionRepo.InsertEntryDecision(ctx, correlationID, decision); err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to persist entry decision", "correlationId", correlationID)
	}
	if p.bus != nil {
		p.bus.PublishEntryDecision(correlationID, decision.Decision, float64(decision.Confidence), decision.PositionSize)
	}

	if decision.Decision != domain.DecisionEnter {
		return
	}

	if sig.Expiration.IsZero() || sig.OptionType == "" || sig.Strike <= 0 {
		logging.WithComponent("pipeline").Warn("ENTER decision missing contract details, dropping", "correlationId", correlationID)
		return
	}

	occSymbol, err := occ.Encode(sig.Underlying, sig.Expiration, sig.OptionType, sig.Strike)
	if err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to encode OCC symbol", "correlationId", correlationID)
		return
	}

	order := domain.Order{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		SignalID:      sig.ID,
		OCCSymbol:     occSymbol,
		Side:          domain.SideBuyToOpen,
		Quantity:      decision.PositionSize,
		Status:        domain.OrderPending,
		SubmittedAt:   time.Now(),
	}

	result, submitErr := p.adapterClient.Submit(ctx, adapter.SubmitRequest{
		CorrelationID: correlationID,
		OCCSymbol:     occSymbol,
		Side:          order.Side,
		Quantity:      order.Quantity,
		LimitPrice:    sig.Price,
	})

	_ = p.orderRepo.LogAdapterCall(ctx, correlationID, p.adapterClient.Name(), "submit", order, result, submitErr)

	if submitErr != nil {
		order.Status = domain.OrderRejected
		audit.RecordOrder(order.Side, order.Status)
		if err := p.orderRepo.Insert(ctx, order); err != nil {
			logging.WithComponent("pipeline").WithError(err).Warn("failed to persist rejected order", "correlationId", correlationID)
		}
		if p.bus != nil {
			p.bus.PublishOrderRejected(correlationID, order.ID, submitErr.Error())
		}
		return
	}

	order.BrokerOrderID = result.BrokerOrderID
	order.Status = result.Status
	order.FilledQuantity = result.FilledQuantity
	order.AvgFillPrice = result.AvgFillPrice
	order.UpdatedAt = time.Now()
	audit.RecordOrder(order.Side, order.Status)

	if err := p.orderRepo.Insert(ctx, order); err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to persist order", "correlationId", correlationID)
	}
	if p.bus != nil {
		p.bus.PublishOrderSubmitted(correlationID, occSymbol, order.Side, order.Quantity)
	}

	if result.FilledQuantity > 0 {
		trade := domain.Trade{
			ID:         uuid.NewString(),
			OrderID:    order.ID,
			Quantity:   result.FilledQuantity,
			Price:      result.AvgFillPrice,
			ExecutedAt: time.Now(),
		}
		if err := p.orderRepo.InsertTrade(ctx, trade); err != nil {
			logging.WithComponent("pipeline").WithError(err).Warn("failed to persist trade", "correlationId", correlationID)
		}
		if p.bus != nil {
			p.bus.PublishOrderFilled(correlationID, order.ID, result.AvgFillPrice, result.FilledQuantity)
		}

		pos, err := p.positions.OpenPosition(ctx, sig, result.FilledQuantity, result.AvgFillPrice)
		if err != nil {
			logging.WithComponent("pipeline").WithError(err).Warn("failed to open position", "correlationId", correlationID)
			return
		}
		trade.PositionID = pos.ID
		order.PositionID = pos.ID
		if err := p.orderRepo.UpdateStatus(ctx, order.ID, order.Status, order.FilledQuantity, order.AvgFillPrice); err != nil {
			logging.WithComponent("pipeline").WithError(err).Warn("failed to backfill order position id", "correlationId", correlationID)
		}
	}
}

// recordFailure persists a PipelineFailure row and logs the stage outcome.
// Failures are recorded best-effort: a persistence error here must never
// surface to the caller, per spec's "PersistenceError during decision
// audit logged but doesn't block" policy.
func (p *Pipeline) recordFailure(ctx context.Context, correlationID, stage, reason string, payload map[string]interface{}) {
	failure := domain.PipelineFailure{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Stage:         stage,
		Reason:        reason,
		Payload:       payload,
		CreatedAt:     time.Now(),
	}
	if err := p.signalRepo.InsertPipelineFailure(ctx, failure); err != nil {
		logging.WithComponent("pipeline").WithError(err).Warn("failed to persist pipeline failure", "correlationId", correlationID, "stage", stage)
	}
	audit.RecordPipelineFailure(stage)
	if p.bus != nil {
		p.bus.PublishPipelineFailure(correlationID, stage, reason)
	}
}

func floatField(payload map[string]interface{}, key string) float64 {
	if v, ok := payload[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

func stringFieldOr(payload map[string]interface{}, key, def string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}
