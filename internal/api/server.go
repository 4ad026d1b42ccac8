// Package api exposes the controller's HTTP surface: webhook ingestion,
// operator-authenticated read endpoints, health/degraded-mode reporting, and
// the websocket decision stream. Routing and middleware use gin (CORS, rate
// limiting, a JWT middleware group) for a single-tenant controller surface:
// one webhook intake, one operator role, no subscription tiers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"options-controller/internal/auth"
	"options-controller/internal/cache"
	"options-controller/internal/circuit"
	"options-controller/internal/database"
	"options-controller/internal/domain"
	"options-controller/internal/events"
	"options-controller/internal/logging"
	"options-controller/internal/secrets"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RateLimiter provides simple in-memory rate limiting per endpoint.
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// IngestResult is what the signal pipeline hands back synchronously, before
// the orchestration stage (which continues asynchronously).
type IngestResult struct {
	Status     string // "accepted", "queued", "duplicate", "rejected", "error"
	SignalID   string
	HTTPStatus int
	Reason     string
}

// Pipeline is the signal pipeline collaborator: parse/validate/dedup run
// synchronously so the handler can choose a status code, then orchestration
// and order submission continue on the worker pool.
type Pipeline interface {
	IngestTrading(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult
	IngestContext(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult
	IngestGEX(ctx context.Context, correlationID string, payload map[string]interface{}) IngestResult
}

// ExitWorker is the exit worker collaborator, triggered on demand by the
// /refactored-exit-worker endpoint in addition to its own interval timer.
type ExitWorker interface {
	RunSweep(ctx context.Context, dryRun bool) ([]domain.ExitDecision, error)
}

// DegradedTracker reports per-dependency health for the /health endpoint.
type DegradedTracker interface {
	Snapshot() map[string]string // dependency -> "healthy" | "degraded"
}

// Server represents the HTTP API server.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server

	config        ServerConfig
	authService   *auth.Service
	authEnabled   bool
	vaultClient   *secrets.Client
	cacheService  *cache.CacheService
	eventBus      *events.EventBus
	breaker       *circuit.Breaker
	degraded      DegradedTracker
	pipeline      Pipeline
	exitWorker    ExitWorker
	webhookSecret string
	rateLimiter   *RateLimiter

	db           *database.DB
	signalRepo   *database.SignalRepository
	orderRepo    *database.OrderRepository
	positionRepo *database.PositionRepository
	decisionRepo *database.DecisionRepository

	wsHub     *WSHub
	startedAt time.Time
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port               int
	Host               string
	ProductionMode     bool
	RateLimitPerMinute int
}

// Deps bundles the Server's collaborators, keeping NewServer's signature
// manageable as the controller's dependency count has grown past what
// positional parameters can hold legibly.
type Deps struct {
	Config        ServerConfig
	AuthService   *auth.Service // nil disables the authenticated surface
	VaultClient   *secrets.Client
	CacheService  *cache.CacheService
	EventBus      *events.EventBus
	Breaker       *circuit.Breaker
	Degraded      DegradedTracker
	Pipeline      Pipeline
	ExitWorker    ExitWorker
	WebhookSecret string

	DB           *database.DB
	SignalRepo   *database.SignalRepository
	OrderRepo    *database.OrderRepository
	PositionRepo *database.PositionRepository
	DecisionRepo *database.DecisionRepository
}

// NewServer creates a new API server.
func NewServer(deps Deps) *Server {
	if deps.Config.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "x-signature"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	rateLimit := deps.Config.RateLimitPerMinute
	if rateLimit <= 0 {
		rateLimit = 600
	}

	server := &Server{
		router:        router,
		config:        deps.Config,
		authService:   deps.AuthService,
		authEnabled:   deps.AuthService != nil,
		vaultClient:   deps.VaultClient,
		cacheService:  deps.CacheService,
		eventBus:      deps.EventBus,
		breaker:       deps.Breaker,
		degraded:      deps.Degraded,
		pipeline:      deps.Pipeline,
		exitWorker:    deps.ExitWorker,
		webhookSecret: deps.WebhookSecret,
		rateLimiter:   NewRateLimiter(rateLimit, time.Minute),
		db:            deps.DB,
		signalRepo:    deps.SignalRepo,
		orderRepo:     deps.OrderRepo,
		positionRepo:  deps.PositionRepo,
		decisionRepo:  deps.DecisionRepo,
		startedAt:     time.Now(),
	}

	server.wsHub = InitWebSocket(deps.EventBus)
	server.setupRoutes()
	return server
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate limit exceeded",
				"message": "too many requests to this endpoint",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Webhook ingestion: HMAC-verified, no JWT — the counterparty is a
	// charting/indicator service, not an operator.
	s.router.POST("/webhook", s.rateLimitMiddleware(), s.handleWebhook)
	s.router.POST("/refactored-exit-worker", s.handleTriggerExitWorker)

	if s.authEnabled {
		authHandlers := auth.NewHandlers(s.authService)
		authGroup := s.router.Group("/api/auth")
		authHandlers.RegisterRoutes(authGroup)
	}

	api := s.router.Group("/api")
	if s.authEnabled {
		api.Use(auth.Middleware(s.authService.GetJWTManager()))
	}
	{
		api.GET("/signals", s.handleGetSignals)
		api.GET("/orders", s.handleGetOrders)
		api.GET("/positions", s.handleGetPositions)
		api.GET("/positions/open", s.handleGetOpenPositions)
		api.GET("/stats", s.handleGetStats)
	}

	admin := s.router.Group("/api/admin")
	if s.authEnabled {
		admin.Use(auth.Middleware(s.authService.GetJWTManager()), auth.RequireAdmin())
	}
	{
		admin.GET("/circuit-breaker", s.handleGetCircuitBreakerStatus)
		admin.POST("/circuit-breaker/reset", s.handleResetCircuitBreaker)
	}

	s.router.GET("/ws", s.handleWebSocket)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logging.WithComponent("api").Info("starting HTTP server", "address", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.WithComponent("api").Info("shutting down HTTP server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// webhookResponse matches spec's external interface:
// {status, signal_id, correlation_id, processing_time_ms}.
type webhookResponse struct {
	Status           string `json:"status"`
	SignalID         string `json:"signal_id,omitempty"`
	CorrelationID    string `json:"correlation_id"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Reason           string `json:"reason,omitempty"`
}

// handleWebhook ingests both TRADING and CONTEXT payloads. type:"CONTEXT"
// short-circuits into a synchronous persist-and-return; everything else is
// parsed/validated/deduplicated synchronously, then orchestrated async.
func (s *Server) handleWebhook(c *gin.Context) {
	start := time.Now()
	correlationID := uuid.NewString()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, webhookResponse{Status: "error", CorrelationID: correlationID, Reason: "could not read request body"})
		return
	}

	if !auth.VerifyWebhookSignature(s.webhookSecret, body, c.GetHeader("x-signature")) {
		c.JSON(http.StatusUnauthorized, webhookResponse{Status: "unauthorized", CorrelationID: correlationID, Reason: "invalid signature"})
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		c.JSON(http.StatusBadRequest, webhookResponse{Status: "error", CorrelationID: correlationID, Reason: "malformed JSON body"})
		return
	}

	var result IngestResult
	switch payloadType, _ := payload["type"].(string); payloadType {
	case "CONTEXT":
		result = s.pipeline.IngestContext(c.Request.Context(), correlationID, payload)
	case "GEX":
		result = s.pipeline.IngestGEX(c.Request.Context(), correlationID, payload)
	default:
		result = s.pipeline.IngestTrading(c.Request.Context(), correlationID, payload)
	}

	httpStatus := result.HTTPStatus
	if httpStatus == 0 {
		httpStatus = http.StatusOK
	}
	c.JSON(httpStatus, webhookResponse{
		Status:           result.Status,
		SignalID:         result.SignalID,
		CorrelationID:    correlationID,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		Reason:           result.Reason,
	})
}

// handleTriggerExitWorker runs one exit sweep on demand, supporting
// ?dry_run=true for evaluating decisions without submitting orders.
func (s *Server) handleTriggerExitWorker(c *gin.Context) {
	dryRun := c.Query("dry_run") == "true"
	decisions, err := s.exitWorker.RunSweep(c.Request.Context(), dryRun)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dry_run": dryRun, "decisions": decisions})
}

// handleHealth returns server health status plus per-dependency degraded state.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	dbHealthy := s.db == nil || s.db.HealthCheck(ctx) == nil

	deps := gin.H{}
	if s.cacheService != nil {
		deps["redis"] = boolToHealth(s.cacheService.IsHealthy())
	}
	if s.vaultClient != nil {
		deps["vault"] = boolToHealth(s.vaultClient.Health(ctx) == nil)
	}
	if s.breaker != nil {
		deps["adapter_circuit"] = string(s.breaker.State())
	}
	if s.degraded != nil {
		for dep, state := range s.degraded.Snapshot() {
			deps[dep] = state
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !dbHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":       status,
		"database":     boolToHealth(dbHealthy),
		"dependencies": deps,
		"timestamp":    time.Now().Format(time.RFC3339),
		"uptime":       time.Since(s.startedAt).String(),
	})
}

func boolToHealth(healthy bool) string {
	if healthy {
		return "healthy"
	}
	return "degraded"
}

func (s *Server) handleGetSignals(c *gin.Context) {
	limit := queryIntOrDefault(c, "limit", 100)
	signals, err := s.signalRepo.ListRecentSignals(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": signals})
}

func (s *Server) handleGetOrders(c *gin.Context) {
	limit := queryIntOrDefault(c, "limit", 100)
	orders, err := s.orderRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (s *Server) handleGetPositions(c *gin.Context) {
	limit := queryIntOrDefault(c, "limit", 100)
	positions, err := s.positionRepo.ListAll(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handleGetOpenPositions(c *gin.Context) {
	positions, err := s.positionRepo.ListOpen(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) handleGetStats(c *gin.Context) {
	exposure, err := s.positionRepo.TotalOpenExposure(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_open_exposure": exposure})
}

func (s *Server) handleGetCircuitBreakerStatus(c *gin.Context) {
	if s.breaker == nil {
		c.JSON(http.StatusOK, gin.H{"state": "disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": s.breaker.State()})
}

func (s *Server) handleResetCircuitBreaker(c *gin.Context) {
	if s.breaker == nil {
		c.JSON(http.StatusOK, gin.H{"state": "disabled"})
		return
	}
	s.breaker.ForceReset()
	c.JSON(http.StatusOK, gin.H{"state": s.breaker.State()})
}

func queryIntOrDefault(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	var parsed int
	if _, err := fmt.Sscanf(v, "%d", &parsed); err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
