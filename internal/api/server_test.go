package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"options-controller/internal/domain"
)

type fakePipeline struct {
	tradingResult IngestResult
	contextResult IngestResult
	gexResult     IngestResult
	lastPayload   map[string]interface{}
}

func (f *fakePipeline) IngestTrading(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult {
	f.lastPayload = payload
	return f.tradingResult
}
func (f *fakePipeline) IngestContext(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult {
	f.lastPayload = payload
	return f.contextResult
}
func (f *fakePipeline) IngestGEX(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult {
	f.lastPayload = payload
	return f.gexResult
}

type fakeExitWorker struct {
	decisions []domain.ExitDecision
	err       error
	lastDry   bool
}

func (f *fakeExitWorker) RunSweep(ctx context.Context, dryRun bool) ([]domain.ExitDecision, error) {
	f.lastDry = dryRun
	return f.decisions, f.err
}

type fakeDegraded struct {
	snapshot map[string]string
}

func (f *fakeDegraded) Snapshot() map[string]string { return f.snapshot }

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func testServer(pipeline Pipeline, exitWorker ExitWorker, webhookSecret string) *Server {
	return NewServer(Deps{
		Config:        ServerConfig{Port: 0, Host: "127.0.0.1"},
		Pipeline:      pipeline,
		ExitWorker:    exitWorker,
		Degraded:      &fakeDegraded{snapshot: map[string]string{}},
		WebhookSecret: webhookSecret,
	})
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	s := testServer(&fakePipeline{}, &fakeExitWorker{}, "shared-secret")
	body := []byte(`{"type":"TRADING"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("x-signature", "deadbeef")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandleWebhookAcceptsValidSignatureAndDispatchesTrading(t *testing.T) {
	pipeline := &fakePipeline{tradingResult: IngestResult{Status: "accepted", SignalID: "sig-1", HTTPStatus: 200}}
	s := testServer(pipeline, &fakeExitWorker{}, "shared-secret")
	body := []byte(`{"symbol":"SPY"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("x-signature", sign("shared-secret", body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var resp webhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "accepted" || resp.SignalID != "sig-1" {
		t.Errorf("resp = %+v, want accepted/sig-1", resp)
	}
}

func TestHandleWebhookDispatchesContextType(t *testing.T) {
	pipeline := &fakePipeline{contextResult: IngestResult{Status: "accepted", HTTPStatus: 200}}
	s := testServer(pipeline, &fakeExitWorker{}, "")
	body := []byte(`{"type":"CONTEXT","vix":20}`)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if pipeline.lastPayload["type"] != "CONTEXT" {
		t.Errorf("expected IngestContext to be called with CONTEXT payload, got %+v", pipeline.lastPayload)
	}
}

func TestHandleWebhookRejectsMalformedJSON(t *testing.T) {
	s := testServer(&fakePipeline{}, &fakeExitWorker{}, "")
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTriggerExitWorkerPassesDryRunFlag(t *testing.T) {
	worker := &fakeExitWorker{decisions: []domain.ExitDecision{{Decision: domain.DecisionHold}}}
	s := testServer(&fakePipeline{}, worker, "")

	req := httptest.NewRequest(http.MethodPost, "/refactored-exit-worker?dry_run=true", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !worker.lastDry {
		t.Error("expected dry_run=true to be passed through to RunSweep")
	}
}

func TestHandleHealthReportsHealthyWithNoDB(t *testing.T) {
	s := testServer(&fakePipeline{}, &fakeExitWorker{}, "")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", resp["status"])
	}
}

func TestHandleCircuitBreakerStatusDisabledWithoutBreaker(t *testing.T) {
	s := testServer(&fakePipeline{}, &fakeExitWorker{}, "")
	req := httptest.NewRequest(http.MethodGet, "/api/admin/circuit-breaker", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]string
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["state"] != "disabled" {
		t.Errorf("state = %q, want disabled", resp["state"])
	}
}
