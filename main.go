package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"options-controller/config"
	"options-controller/internal/adapter"
	"options-controller/internal/api"
	"options-controller/internal/audit"
	"options-controller/internal/auth"
	"options-controller/internal/cache"
	"options-controller/internal/circuit"
	"options-controller/internal/confluence"
	"options-controller/internal/contextcache"
	"options-controller/internal/database"
	"options-controller/internal/dedup"
	"options-controller/internal/domain"
	"options-controller/internal/events"
	"options-controller/internal/exitworker"
	"options-controller/internal/gex"
	"options-controller/internal/logging"
	"options-controller/internal/marketdata"
	"options-controller/internal/orchestrator"
	"options-controller/internal/pipeline"
	"options-controller/internal/position"
	"options-controller/internal/risk"
	"options-controller/internal/secrets"
	"options-controller/internal/sizing"
	sig "options-controller/internal/signal"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.LoggingConfig.Level,
		Output:      cfg.LoggingConfig.Output,
		Pretty:      cfg.LoggingConfig.Pretty,
		IncludeFile: cfg.LoggingConfig.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("structured logging initialized")

	eventBus := events.NewEventBus()
	logger.Info("event bus initialized")

	db, err := database.NewDB(cfg.DatabaseConfig)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.RunMigrations(ctx); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	logger.Info("database migrations complete")

	var cacheService *cache.CacheService
	if cfg.RedisConfig.Enabled {
		cacheService, err = cache.NewCacheService(cfg.RedisConfig)
		if err != nil {
			logger.Warn("redis unavailable, dedup cache runs local-only", "error", err)
			cacheService = nil
		} else {
			logger.Info("redis cache service initialized")
		}
	}

	var vaultClient *secrets.Client
	if cfg.VaultConfig.Enabled {
		vaultClient, err = secrets.NewClient(cfg.VaultConfig)
		if err != nil {
			log.Fatalf("failed to initialize vault client: %v", err)
		}
		logger.Info("vault client initialized")
	}

	webhookSecret := os.Getenv("SECRETS_WEBHOOK_SECRET")
	if vaultClient != nil {
		if s, err := vaultClient.GetWebhookSecret(ctx); err == nil && s != "" {
			webhookSecret = s
		} else if err != nil {
			logger.Warn("failed to fetch webhook secret from vault, falling back to env", "error", err)
		}
	}
	if webhookSecret == "" {
		logger.Warn("no webhook secret configured, inbound signatures cannot be verified")
	}

	breaker := circuit.NewBreaker(circuit.DefaultConfig())
	breaker.OnTrip(func(reason string) {
		logger.Warn("adapter circuit breaker tripped", "reason", reason)
		eventBus.PublishDegradedMode("adapter", "degraded", reason)
	})
	breaker.OnReset(func() {
		logger.Info("adapter circuit breaker reset")
		eventBus.PublishDegradedMode("adapter", "healthy", "")
	})

	signalRepo := database.NewSignalRepository(db)
	orderRepo := database.NewOrderRepository(db)
	positionRepo := database.NewPositionRepository(db)
	decisionRepo := database.NewDecisionRepository(db)
	contextRepo := database.NewContextRepository(db)
	gexRepo := database.NewGEXRepository(db)

	normalizer := sig.NewNormalizer()
	validator := sig.NewValidator(cfg.ValidationConfig)
	dedupCache := dedup.NewCache(time.Duration(cfg.DedupConfig.WindowSeconds)*time.Second, cfg.DedupConfig.MaxEntries, cacheService)

	var contextSeed *domain.ContextData
	if seed, err := contextRepo.Latest(ctx); err == nil {
		contextSeed = seed
	}
	contextFetch := func(fetchCtx context.Context) (domain.ContextData, error) {
		latest, err := contextRepo.Latest(fetchCtx)
		if err != nil {
			return domain.ContextData{}, err
		}
		if latest == nil {
			return domain.ContextData{}, contextcache.ErrContextUnavailable
		}
		return *latest, nil
	}
	contextCacheSvc := contextcache.NewCache(cfg.PipelineConfig.ContextFetchTimeout, contextFetch, contextSeed)

	gexService := gex.NewService(gexRepo, cfg.GEXConfig)
	confluenceScorer := confluence.NewScorer(cfg.ConfluenceConfig)
	sizer := sizing.NewCalculator(cfg.SizingConfig)
	riskManager := risk.NewManager(cfg.RiskConfig)

	positionManager := position.NewManager(positionRepo, eventBus, cfg.RiskConfig.MaxTotalExposure)
	if err := positionManager.LoadPositions(ctx); err != nil {
		logger.Warn("failed to rehydrate open positions", "error", err)
	}

	orch := orchestrator.New(
		contextCacheSvc,
		riskManager,
		confluenceScorer,
		gexService,
		sizer,
		positionManager,
		cfg.ConfidenceConfig,
		cfg.SizingConfig,
		cfg.ExitConfig,
		cfg.ValidationConfig,
	)

	var brokerAdapter adapter.Adapter = adapter.NewPaperAdapter()
	guardedAdapter := adapter.NewGuardedAdapter(brokerAdapter, breaker, cfg.AdapterConfig.RetryJitterMax)

	pipe := pipeline.New(pipeline.Deps{
		Normalizer:   normalizer,
		Validator:    validator,
		DedupCache:   dedupCache,
		ContextCache: contextCacheSvc,
		Orchestrator: orch,
		Positions:    positionManager,
		Adapter:      guardedAdapter,
		Bus:          eventBus,
		SignalRepo:   signalRepo,
		OrderRepo:    orderRepo,
		DecisionRepo: decisionRepo,
		ContextRepo:  contextRepo,
		GexRepo:      gexRepo,
		DedupWindow:  time.Duration(cfg.DedupConfig.WindowSeconds) * time.Second,
		WorkerCount:  cfg.PipelineConfig.WorkerCount,
		QueueDepth:   cfg.PipelineConfig.QueueDepth,
	})

	quoteProvider := marketdata.NewMockProvider()

	worker := exitworker.New(exitworker.Deps{
		Orchestrator:  orch,
		Positions:     positionManager,
		Quotes:        quoteProvider,
		Adapter:       guardedAdapter,
		Bus:           eventBus,
		OrderRepo:     orderRepo,
		DecisionRepo:  decisionRepo,
		SweepInterval: cfg.ExitConfig.SweepInterval,
	})

	degradedTracker := audit.NewDegradedTracker(map[string]audit.Probe{
		"database": func(probeCtx context.Context) bool { return db.HealthCheck(probeCtx) == nil },
		"redis": func(probeCtx context.Context) bool {
			return cacheService == nil || cacheService.IsHealthy()
		},
		"vault": func(probeCtx context.Context) bool {
			return vaultClient == nil || vaultClient.Health(probeCtx) == nil
		},
		"adapter": func(probeCtx context.Context) bool {
			allowed, _ := breaker.Allow()
			return allowed
		},
	}, eventBus)

	var authService *auth.Service
	if cfg.AuthConfig.Enabled {
		authService = auth.NewService(auth.Config{
			JWTSecret:            cfg.AuthConfig.JWTSecret,
			AccessTokenDuration:  cfg.AuthConfig.AccessTokenDuration,
			OperatorUsername:     cfg.AuthConfig.OperatorUsername,
			OperatorPasswordHash: cfg.AuthConfig.OperatorPasswordHash,
		})
		logger.Info("single-operator auth enabled")
	}

	server := api.NewServer(api.Deps{
		Config: api.ServerConfig{
			Port:               cfg.ServerConfig.Port,
			Host:                cfg.ServerConfig.Host,
			ProductionMode:     os.Getenv("ENV") == "production",
			RateLimitPerMinute: cfg.ServerConfig.RateLimitPerMinute,
		},
		AuthService:   authService,
		VaultClient:   vaultClient,
		CacheService:  cacheService,
		EventBus:      eventBus,
		Breaker:       breaker,
		Degraded:      degradedTracker,
		Pipeline:      pipe,
		ExitWorker:    worker,
		WebhookSecret: webhookSecret,
		DB:            db,
		SignalRepo:    signalRepo,
		OrderRepo:     orderRepo,
		PositionRepo:  positionRepo,
		DecisionRepo:  decisionRepo,
	})

	workerCtx, cancelWorker := context.WithCancel(context.Background())
	go worker.Run(workerCtx)
	go degradedTracker.Run(workerCtx, 30*time.Second)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	logger.Info("options controller started",
		"port", cfg.ServerConfig.Port,
		"adapter_mode", cfg.AdapterConfig.Mode,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down api server", "error", err)
	}
	pipe.Stop()
	if cacheService != nil {
		if err := cacheService.Close(); err != nil {
			logger.Warn("error closing cache service", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
