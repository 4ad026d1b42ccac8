package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"options-controller/internal/circuit"
	"options-controller/internal/domain"
)

func TestPaperAdapterFillsAtLimitPrice(t *testing.T) {
	a := NewPaperAdapter()
	result, err := a.Submit(context.Background(), SubmitRequest{Quantity: 3, LimitPrice: 4.50})
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if result.Status != domain.OrderFilled {
		t.Errorf("Status = %q, want FILLED", result.Status)
	}
	if result.FilledQuantity != 3 || result.AvgFillPrice != 4.50 {
		t.Errorf("FilledQuantity=%d AvgFillPrice=%v, want 3/4.50", result.FilledQuantity, result.AvgFillPrice)
	}
}

func TestPaperAdapterName(t *testing.T) {
	if got := NewPaperAdapter().Name(); got != "paper" {
		t.Errorf("Name() = %q, want paper", got)
	}
}

type flakyAdapter struct {
	calls   int
	failFor int
}

func (f *flakyAdapter) Name() string { return "flaky" }
func (f *flakyAdapter) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	f.calls++
	if f.calls <= f.failFor {
		return SubmitResult{}, errors.New("simulated brokerage failure")
	}
	return SubmitResult{Status: domain.OrderFilled, FilledQuantity: req.Quantity, AvgFillPrice: req.LimitPrice}, nil
}

func testBreaker() *circuit.Breaker {
	return circuit.NewBreaker(circuit.Config{
		Enabled: true, MaxFailuresInWindow: 5, FailureWindow: time.Minute,
		CooldownPeriod: time.Hour, MaxSubmitsPerMinute: 1000,
	})
}

const testJitterMax = 5 * time.Millisecond

func TestGuardedAdapterRetriesOnceThenSucceeds(t *testing.T) {
	inner := &flakyAdapter{failFor: 1}
	g := NewGuardedAdapter(inner, testBreaker(), testJitterMax)

	result, err := g.Submit(context.Background(), SubmitRequest{Quantity: 1, LimitPrice: 5.0})
	if err != nil {
		t.Fatalf("Submit returned error after retry: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner.calls = %d, want 2 (initial + one retry)", inner.calls)
	}
	if result.Status != domain.OrderFilled {
		t.Errorf("Status = %q, want FILLED", result.Status)
	}
}

func TestGuardedAdapterFailsAfterRetryExhausted(t *testing.T) {
	inner := &flakyAdapter{failFor: 2}
	g := NewGuardedAdapter(inner, testBreaker(), testJitterMax)

	_, err := g.Submit(context.Background(), SubmitRequest{Quantity: 1, LimitPrice: 5.0})
	if err == nil {
		t.Fatal("expected error after both attempts fail")
	}
	if inner.calls != 2 {
		t.Errorf("inner.calls = %d, want exactly 2 (no more than one retry)", inner.calls)
	}
}

func TestGuardedAdapterBlocksWhenBreakerOpen(t *testing.T) {
	breaker := testBreaker()
	for i := 0; i < 5; i++ {
		breaker.RecordResult(false)
	}
	g := NewGuardedAdapter(&flakyAdapter{}, breaker, testJitterMax)

	_, err := g.Submit(context.Background(), SubmitRequest{Quantity: 1, LimitPrice: 5.0})
	if err == nil {
		t.Fatal("expected Submit to fail fast when breaker is open")
	}
}

func TestGuardedAdapterNameDelegates(t *testing.T) {
	g := NewGuardedAdapter(&flakyAdapter{}, testBreaker(), testJitterMax)
	if got := g.Name(); got != "flaky" {
		t.Errorf("Name() = %q, want flaky", got)
	}
}
