// Package adapter defines the brokerage submission boundary and a paper
// (simulated-fill) implementation, guarded by internal/circuit against
// submission bursts and wrapped with a single jittered retry before a
// failure is persisted as a REJECTED order.
package adapter

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"options-controller/internal/circuit"
	"options-controller/internal/domain"
	"options-controller/internal/logging"

	"github.com/google/uuid"
)

// retryBaseDelay is the floor of the jittered retry backoff; jitterMax adds
// a random amount on top so concurrent retries don't all land at once.
const retryBaseDelay = 100 * time.Millisecond

// SubmitRequest is an order submission to the brokerage.
type SubmitRequest struct {
	CorrelationID string
	OCCSymbol     string
	Side          string
	Quantity      int
	LimitPrice    float64
}

// SubmitResult is the brokerage's response to a submission.
type SubmitResult struct {
	BrokerOrderID  string
	Status         string
	FilledQuantity int
	AvgFillPrice   float64
}

// Adapter is the brokerage submission boundary; PAPER and LIVE
// implementations satisfy the same interface so the pipeline never
// branches on adapter mode.
type Adapter interface {
	Name() string
	Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error)
}

// PaperAdapter simulates fills at the requested limit price, for the
// default PAPER trading mode.
type PaperAdapter struct{}

// NewPaperAdapter creates a PaperAdapter.
func NewPaperAdapter() *PaperAdapter {
	return &PaperAdapter{}
}

// Name identifies this adapter for logging and adapter_logs rows.
func (a *PaperAdapter) Name() string { return "paper" }

// Submit simulates an immediate full fill at the requested limit price.
func (a *PaperAdapter) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	return SubmitResult{
		BrokerOrderID:  uuid.NewString(),
		Status:         domain.OrderFilled,
		FilledQuantity: req.Quantity,
		AvgFillPrice:   req.LimitPrice,
	}, nil
}

// GuardedAdapter wraps an Adapter with circuit-breaker protection and a
// single retry, so a flaky brokerage connection degrades to REJECTED
// orders instead of hammering the dependency or blocking the pipeline.
type GuardedAdapter struct {
	inner     Adapter
	breaker   *circuit.Breaker
	jitterMax time.Duration
}

// NewGuardedAdapter wraps inner with breaker. jitterMax bounds the random
// portion of the retry backoff; zero or negative falls back to 500ms.
func NewGuardedAdapter(inner Adapter, breaker *circuit.Breaker, jitterMax time.Duration) *GuardedAdapter {
	if jitterMax <= 0 {
		jitterMax = 500 * time.Millisecond
	}
	return &GuardedAdapter{inner: inner, breaker: breaker, jitterMax: jitterMax}
}

// Name delegates to the wrapped adapter.
func (g *GuardedAdapter) Name() string { return g.inner.Name() }

// Submit checks the breaker, submits with one retry on failure, and
// records the outcome against the breaker's failure window.
func (g *GuardedAdapter) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if allowed, reason := g.breaker.Allow(); !allowed {
		return SubmitResult{}, fmt.Errorf("adapter submission blocked: %s", reason)
	}
	g.breaker.RecordSubmit()

	result, err := g.inner.Submit(ctx, req)
	if err == nil {
		g.breaker.RecordResult(true)
		return result, nil
	}

	logging.WithComponent("adapter").WithError(err).Warn("submission failed, retrying once", "correlationId", req.CorrelationID)
	time.Sleep(retryBaseDelay + time.Duration(rand.Int63n(int64(g.jitterMax))))

	result, err = g.inner.Submit(ctx, req)
	g.breaker.RecordResult(err == nil)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("adapter submission failed after retry: %w", err)
	}
	return result, nil
}
