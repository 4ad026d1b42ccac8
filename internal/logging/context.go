package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new correlation ID. Used for the correlation_id
// carried through signal -> decision -> order -> trade whenever an inbound
// webhook doesn't supply its own.
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext retrieves the logger from context, falling back to Default().
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext returns a context carrying the given logger.
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext stamps a new trace/correlation ID on both the context and
// the logger it carries.
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// TraceIDFromContext returns the correlation ID stashed by WithTraceContext,
// if any.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	return v, ok
}

// SignalContext creates a logger context for an inbound trading signal.
func SignalContext(correlationID, underlying, side string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"underlying":     underlying,
		"side":           side,
	}).WithComponent("signal")
}

// DecisionContext creates a logger context for confluence/sizing/risk decisions.
func DecisionContext(correlationID string, confluenceScore float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"correlation_id":   correlationID,
		"confluence_score": confluenceScore,
	}).WithComponent("orchestrator")
}

// OrderContext creates a logger context for adapter order submission.
func OrderContext(correlationID, occSymbol, side string, quantity int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"correlation_id": correlationID,
		"occ_symbol":     occSymbol,
		"side":           side,
		"quantity":       quantity,
	}).WithComponent("order")
}

// PositionContext creates a logger context for position lifecycle events.
func PositionContext(positionID, occSymbol string, quantity int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"position_id": positionID,
		"occ_symbol":  occSymbol,
		"quantity":    quantity,
	}).WithComponent("position")
}

// RiskContext creates a logger context for risk-manager filtering.
func RiskContext(underlying string, vixLevel float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"underlying": underlying,
		"vix":        vixLevel,
	}).WithComponent("risk")
}

// APIContext creates a logger context for HTTP handlers.
func APIContext(method, path string, statusCode int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
	}).WithComponent("api")
}

// WebSocketContext creates a logger context for the decision-stream websocket.
func WebSocketContext(clientID string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"client_id": clientID,
	}).WithComponent("websocket")
}

// DatabaseContext creates a logger context for repository operations.
func DatabaseContext(operation, table string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"table":     table,
	}).WithComponent("database")
}

// AdapterContext creates a logger context for broker adapter calls.
func AdapterContext(adapterName, operation string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"adapter":   adapterName,
		"operation": operation,
	}).WithComponent("adapter")
}

// HTTPMiddleware adds a request-scoped logger (with trace ID) to the context
// and logs completion. Used for non-gin endpoints; the gin server uses its
// own middleware in internal/api, built the same way.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := r.Header.Get("X-Correlation-ID")
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		l := Default().WithTraceID(traceID).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
		}).WithComponent("http")

		ctx := NewContext(r.Context(), l)
		r = r.WithContext(ctx)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}
		next.ServeHTTP(wrapped, r)

		l.WithDuration(time.Since(start)).WithField("status_code", wrapped.statusCode).Info("request completed")
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
