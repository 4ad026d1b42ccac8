package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full controller configuration tree. Load() builds it from an
// optional config.json base overlaid with environment variables, file
// values taking precedence over defaults and env values taking precedence
// over both. The boolean switches (server.tls_enabled, auth.enabled,
// vault.enabled, vault.tls_enabled, redis.enabled, logging.pretty,
// logging.include_file) are the exception: they come from their
// environment variable or its built-in default only, and their config.json
// values are ignored.
type Config struct {
	ServerConfig     ServerConfig     `json:"server"`
	AuthConfig       AuthConfig       `json:"auth"`
	VaultConfig      VaultConfig      `json:"vault"`
	RedisConfig      RedisConfig      `json:"redis"`
	DatabaseConfig   DatabaseConfig   `json:"database"`
	LoggingConfig    LoggingConfig    `json:"logging"`
	DedupConfig      DedupConfig      `json:"dedup"`
	ConfidenceConfig ConfidenceConfig `json:"confidence"`
	SizingConfig     SizingConfig     `json:"sizing"`
	RiskConfig       RiskConfig       `json:"risk"`
	GEXConfig        GEXConfig        `json:"gex"`
	ExitConfig       ExitConfig       `json:"exit"`
	ValidationConfig ValidationConfig `json:"validation"`
	ConfluenceConfig ConfluenceConfig `json:"confluence"`
	AdapterConfig    AdapterConfig    `json:"adapter"`
	PipelineConfig   PipelineConfig   `json:"pipeline"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port                int    `json:"port"`
	Host                string `json:"host"`
	AllowedOrigins      string `json:"allowed_origins"`
	TLSEnabled          bool   `json:"tls_enabled"`
	TLSCertFile         string `json:"tls_cert_file"`
	TLSKeyFile          string `json:"tls_key_file"`
	ReadTimeout         int    `json:"read_timeout"`
	WriteTimeout        int    `json:"write_timeout"`
	ShutdownTimeout     int    `json:"shutdown_timeout"`
	RateLimitPerMinute  int    `json:"rate_limit_per_minute"`
	WebhookSignatureEnv string `json:"-"` // set from SECRETS_WEBHOOK_SECRET, not persisted
}

// AuthConfig holds the single-operator JWT auth configuration.
type AuthConfig struct {
	Enabled              bool          `json:"enabled"`
	JWTSecret            string        `json:"jwt_secret"`
	AccessTokenDuration  time.Duration `json:"access_token_duration"`
	OperatorUsername     string        `json:"operator_username"`
	OperatorPasswordHash string        `json:"operator_password_hash"`
}

// VaultConfig holds HashiCorp Vault configuration for broker/webhook secrets.
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// RedisConfig holds Redis configuration backing the Dedup cache.
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// DatabaseConfig holds Postgres connection configuration.
type DatabaseConfig struct {
	DSN             string        `json:"dsn"`
	MaxConns        int32         `json:"max_conns"`
	MinConns        int32         `json:"min_conns"`
	MaxConnLifetime time.Duration `json:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `json:"max_conn_idle_time"`
}

// LoggingConfig configures the ambient structured logger.
type LoggingConfig struct {
	Level       string `json:"level"`
	Output      string `json:"output"`
	Pretty      bool   `json:"pretty"`
	IncludeFile bool   `json:"include_file"`
}

// DedupConfig configures the deduplication cache.
type DedupConfig struct {
	WindowSeconds int `json:"window_seconds"`
	MaxEntries    int `json:"max_entries"`
}

// ConfidenceConfig configures the decision orchestrator's confidence math.
type ConfidenceConfig struct {
	BaseConfidence             int `json:"base_confidence"`
	ContextAdjustmentRange     int `json:"context_adjustment_range"`
	PositioningAdjustmentRange int `json:"positioning_adjustment_range"`
	GEXAdjustmentRange         int `json:"gex_adjustment_range"`
	ConfluenceBoostThreshold   float64 `json:"confluence_boost_threshold"`
	ConfluenceBoost            int     `json:"confluence_boost"`
}

// SizingConfig configures position sizing.
type SizingConfig struct {
	BaseSize      int     `json:"base_size"`
	KellyFraction float64 `json:"kelly_fraction"`
	MinSize       int     `json:"min_size"`
	MaxSize       int     `json:"max_size"`
}

// RiskConfig configures the risk manager's market filters.
type RiskConfig struct {
	MaxVixForEntry         float64 `json:"max_vix_for_entry"`
	VixPositionSizeReduction float64 `json:"vix_position_size_reduction"`
	VixReductionThreshold  float64 `json:"vix_reduction_threshold"`
	MaxTotalExposure       float64 `json:"max_total_exposure"`
}

// GEXConfig configures the GEX service's staleness handling.
type GEXConfig struct {
	MaxStaleMinutes     int     `json:"max_stale_minutes"`
	StaleWeightReduction float64 `json:"stale_weight_reduction"`
}

// ExitConfig configures the exit worker's close rules.
type ExitConfig struct {
	ProfitTargetPercent float64       `json:"profit_target_percent"`
	StopLossPercent     float64       `json:"stop_loss_percent"`
	SweepInterval       time.Duration `json:"sweep_interval"`
	MarketDataTimeout   time.Duration `json:"market_data_timeout"`
}

// ValidationConfig configures the validator's market-hours window.
type ValidationConfig struct {
	MarketHoursStart string `json:"market_hours_start"` // "09:30"
	MarketHoursEnd   string `json:"market_hours_end"`   // "16:00"
	Timezone         string `json:"timezone"`           // IANA tz name, e.g. "America/New_York"
	MaxTimestampSkew time.Duration `json:"max_timestamp_skew"`
}

// ConfluenceConfig configures the confluence calculator's source weights.
type ConfluenceConfig struct {
	SourceWeights map[string]float64 `json:"source_weights"`
	HighThreshold float64 `json:"high_threshold"`
	MediumThreshold float64 `json:"medium_threshold"`
}

// AdapterConfig configures outbound order submission to the brokerage adapter.
type AdapterConfig struct {
	Mode           string        `json:"mode"` // PAPER or LIVE
	SubmitTimeout  time.Duration `json:"submit_timeout"`
	RetryJitterMax time.Duration `json:"retry_jitter_max"`
}

// PipelineConfig configures the async completion worker pool.
type PipelineConfig struct {
	WorkerCount int `json:"worker_count"`
	QueueDepth  int `json:"queue_depth"`
	ContextFetchTimeout time.Duration `json:"context_fetch_timeout"`
}

// Load builds the Config from an optional config.json base, then applies
// environment variable overrides (which always win).
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = defaultConfig()
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		DedupConfig:      DedupConfig{WindowSeconds: 300, MaxEntries: 10000},
		ConfidenceConfig: ConfidenceConfig{BaseConfidence: 50, ContextAdjustmentRange: 30, PositioningAdjustmentRange: 10, GEXAdjustmentRange: 20, ConfluenceBoostThreshold: 0.7, ConfluenceBoost: 10},
		SizingConfig:     SizingConfig{BaseSize: 1, KellyFraction: 0.5, MinSize: 1, MaxSize: 10},
		RiskConfig:       RiskConfig{MaxVixForEntry: 50, VixPositionSizeReduction: 0.5, VixReductionThreshold: 30, MaxTotalExposure: 50000},
		GEXConfig:        GEXConfig{MaxStaleMinutes: 240, StaleWeightReduction: 0.5},
		ExitConfig:       ExitConfig{ProfitTargetPercent: 50, StopLossPercent: -30, SweepInterval: time.Minute, MarketDataTimeout: 5 * time.Second},
		ValidationConfig: ValidationConfig{MarketHoursStart: "09:30", MarketHoursEnd: "16:00", Timezone: "America/New_York", MaxTimestampSkew: 5 * time.Minute},
		ConfluenceConfig: ConfluenceConfig{
			SourceWeights:   map[string]float64{"TRADINGVIEW": 1.0, "GEX": 0.9, "MTF": 0.85, "MANUAL": 0.7},
			HighThreshold:   0.7,
			MediumThreshold: 0.5,
		},
		AdapterConfig:  AdapterConfig{Mode: "PAPER", SubmitTimeout: 10 * time.Second, RetryJitterMax: 500 * time.Millisecond},
		PipelineConfig: PipelineConfig{WorkerCount: 8, QueueDepth: 256, ContextFetchTimeout: 5 * time.Second},
	}
}

func applyEnvOverrides(cfg *Config) {
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", orInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", orStr(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", orStr(cfg.ServerConfig.AllowedOrigins, "*"))
	cfg.ServerConfig.TLSEnabled = getEnvOrDefault("SERVER_TLS_ENABLED", "false") == "true"
	cfg.ServerConfig.TLSCertFile = getEnvOrDefault("SERVER_TLS_CERT", cfg.ServerConfig.TLSCertFile)
	cfg.ServerConfig.TLSKeyFile = getEnvOrDefault("SERVER_TLS_KEY", cfg.ServerConfig.TLSKeyFile)
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", orInt(cfg.ServerConfig.ReadTimeout, 30))
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", orInt(cfg.ServerConfig.WriteTimeout, 30))
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", orInt(cfg.ServerConfig.ShutdownTimeout, 10))
	cfg.ServerConfig.RateLimitPerMinute = getEnvIntOrDefault("SERVER_RATE_LIMIT_PER_MINUTE", orInt(cfg.ServerConfig.RateLimitPerMinute, 600))

	cfg.AuthConfig.Enabled = getEnvOrDefault("AUTH_ENABLED", "true") == "true"
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", orDuration(cfg.AuthConfig.AccessTokenDuration, 12*time.Hour))
	cfg.AuthConfig.OperatorUsername = getEnvOrDefault("AUTH_OPERATOR_USERNAME", orStr(cfg.AuthConfig.OperatorUsername, "operator"))
	cfg.AuthConfig.OperatorPasswordHash = getEnvOrDefault("AUTH_OPERATOR_PASSWORD_HASH", cfg.AuthConfig.OperatorPasswordHash)

	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", orStr(cfg.VaultConfig.Address, "http://localhost:8200"))
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", orStr(cfg.VaultConfig.MountPath, "secret"))
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", orStr(cfg.VaultConfig.SecretPath, "options-controller/broker"))
	cfg.VaultConfig.TLSEnabled = getEnvOrDefault("VAULT_TLS_ENABLED", "false") == "true"
	cfg.VaultConfig.CACert = getEnvOrDefault("VAULT_CA_CERT", cfg.VaultConfig.CACert)

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "true") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", orStr(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", orInt(cfg.RedisConfig.PoolSize, 10))

	cfg.DatabaseConfig.DSN = getEnvOrDefault("DATABASE_DSN", orStr(cfg.DatabaseConfig.DSN, "postgres://localhost:5432/options_controller?sslmode=disable"))
	cfg.DatabaseConfig.MaxConns = int32(getEnvIntOrDefault("DATABASE_MAX_CONNS", int(orInt32(cfg.DatabaseConfig.MaxConns, 20))))
	cfg.DatabaseConfig.MinConns = int32(getEnvIntOrDefault("DATABASE_MIN_CONNS", int(orInt32(cfg.DatabaseConfig.MinConns, 2))))
	cfg.DatabaseConfig.MaxConnLifetime = getEnvDurationOrDefault("DATABASE_MAX_CONN_LIFETIME", orDuration(cfg.DatabaseConfig.MaxConnLifetime, time.Hour))
	cfg.DatabaseConfig.MaxConnIdleTime = getEnvDurationOrDefault("DATABASE_MAX_CONN_IDLE_TIME", orDuration(cfg.DatabaseConfig.MaxConnIdleTime, 30*time.Minute))

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", orStr(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", orStr(cfg.LoggingConfig.Output, "stdout"))
	cfg.LoggingConfig.Pretty = getEnvOrDefault("LOG_FORMAT", "json") == "console"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", "false") == "true"

	cfg.DedupConfig.WindowSeconds = getEnvIntOrDefault("DEDUP_WINDOW_SECONDS", orInt(cfg.DedupConfig.WindowSeconds, 300))
	cfg.DedupConfig.MaxEntries = getEnvIntOrDefault("DEDUP_MAX_ENTRIES", orInt(cfg.DedupConfig.MaxEntries, 10000))

	cfg.ConfidenceConfig.BaseConfidence = getEnvIntOrDefault("CONFIDENCE_BASE", orInt(cfg.ConfidenceConfig.BaseConfidence, 50))
	cfg.ConfidenceConfig.ContextAdjustmentRange = getEnvIntOrDefault("CONFIDENCE_CONTEXT_RANGE", orInt(cfg.ConfidenceConfig.ContextAdjustmentRange, 30))
	cfg.ConfidenceConfig.PositioningAdjustmentRange = getEnvIntOrDefault("CONFIDENCE_POSITIONING_RANGE", orInt(cfg.ConfidenceConfig.PositioningAdjustmentRange, 10))
	cfg.ConfidenceConfig.GEXAdjustmentRange = getEnvIntOrDefault("CONFIDENCE_GEX_RANGE", orInt(cfg.ConfidenceConfig.GEXAdjustmentRange, 20))
	cfg.ConfidenceConfig.ConfluenceBoostThreshold = getEnvFloatOrDefault("CONFIDENCE_CONFLUENCE_BOOST_THRESHOLD", orFloat(cfg.ConfidenceConfig.ConfluenceBoostThreshold, 0.7))
	cfg.ConfidenceConfig.ConfluenceBoost = getEnvIntOrDefault("CONFIDENCE_CONFLUENCE_BOOST", orInt(cfg.ConfidenceConfig.ConfluenceBoost, 10))

	cfg.SizingConfig.BaseSize = getEnvIntOrDefault("SIZING_BASE_SIZE", orInt(cfg.SizingConfig.BaseSize, 1))
	cfg.SizingConfig.KellyFraction = getEnvFloatOrDefault("SIZING_KELLY_FRACTION", orFloat(cfg.SizingConfig.KellyFraction, 0.5))
	cfg.SizingConfig.MinSize = getEnvIntOrDefault("SIZING_MIN_SIZE", orInt(cfg.SizingConfig.MinSize, 1))
	cfg.SizingConfig.MaxSize = getEnvIntOrDefault("SIZING_MAX_SIZE", orInt(cfg.SizingConfig.MaxSize, 10))

	cfg.RiskConfig.MaxVixForEntry = getEnvFloatOrDefault("RISK_MAX_VIX_FOR_ENTRY", orFloat(cfg.RiskConfig.MaxVixForEntry, 50))
	cfg.RiskConfig.VixPositionSizeReduction = getEnvFloatOrDefault("RISK_VIX_POSITION_SIZE_REDUCTION", orFloat(cfg.RiskConfig.VixPositionSizeReduction, 0.5))
	cfg.RiskConfig.VixReductionThreshold = getEnvFloatOrDefault("RISK_VIX_REDUCTION_THRESHOLD", orFloat(cfg.RiskConfig.VixReductionThreshold, 30))
	cfg.RiskConfig.MaxTotalExposure = getEnvFloatOrDefault("RISK_MAX_TOTAL_EXPOSURE", orFloat(cfg.RiskConfig.MaxTotalExposure, 50000))

	cfg.GEXConfig.MaxStaleMinutes = getEnvIntOrDefault("GEX_MAX_STALE_MINUTES", orInt(cfg.GEXConfig.MaxStaleMinutes, 240))
	cfg.GEXConfig.StaleWeightReduction = getEnvFloatOrDefault("GEX_STALE_WEIGHT_REDUCTION", orFloat(cfg.GEXConfig.StaleWeightReduction, 0.5))

	cfg.ExitConfig.ProfitTargetPercent = getEnvFloatOrDefault("EXIT_PROFIT_TARGET_PERCENT", orFloat(cfg.ExitConfig.ProfitTargetPercent, 50))
	cfg.ExitConfig.StopLossPercent = getEnvFloatOrDefault("EXIT_STOP_LOSS_PERCENT", orFloat(cfg.ExitConfig.StopLossPercent, -30))
	cfg.ExitConfig.SweepInterval = getEnvDurationOrDefault("EXIT_SWEEP_INTERVAL", orDuration(cfg.ExitConfig.SweepInterval, time.Minute))
	cfg.ExitConfig.MarketDataTimeout = getEnvDurationOrDefault("EXIT_MARKET_DATA_TIMEOUT", orDuration(cfg.ExitConfig.MarketDataTimeout, 5*time.Second))

	cfg.ValidationConfig.MarketHoursStart = getEnvOrDefault("VALIDATION_MARKET_HOURS_START", orStr(cfg.ValidationConfig.MarketHoursStart, "09:30"))
	cfg.ValidationConfig.MarketHoursEnd = getEnvOrDefault("VALIDATION_MARKET_HOURS_END", orStr(cfg.ValidationConfig.MarketHoursEnd, "16:00"))
	cfg.ValidationConfig.Timezone = getEnvOrDefault("VALIDATION_TIMEZONE", orStr(cfg.ValidationConfig.Timezone, "America/New_York"))
	cfg.ValidationConfig.MaxTimestampSkew = getEnvDurationOrDefault("VALIDATION_MAX_TIMESTAMP_SKEW", orDuration(cfg.ValidationConfig.MaxTimestampSkew, 5*time.Minute))

	if cfg.ConfluenceConfig.SourceWeights == nil {
		cfg.ConfluenceConfig.SourceWeights = map[string]float64{"TRADINGVIEW": 1.0, "GEX": 0.9, "MTF": 0.85, "MANUAL": 0.7}
	}
	cfg.ConfluenceConfig.HighThreshold = getEnvFloatOrDefault("CONFLUENCE_HIGH_THRESHOLD", orFloat(cfg.ConfluenceConfig.HighThreshold, 0.7))
	cfg.ConfluenceConfig.MediumThreshold = getEnvFloatOrDefault("CONFLUENCE_MEDIUM_THRESHOLD", orFloat(cfg.ConfluenceConfig.MediumThreshold, 0.5))

	cfg.AdapterConfig.Mode = getEnvOrDefault("ADAPTER_MODE", orStr(cfg.AdapterConfig.Mode, "PAPER"))
	cfg.AdapterConfig.SubmitTimeout = getEnvDurationOrDefault("ADAPTER_SUBMIT_TIMEOUT", orDuration(cfg.AdapterConfig.SubmitTimeout, 10*time.Second))
	cfg.AdapterConfig.RetryJitterMax = getEnvDurationOrDefault("ADAPTER_RETRY_JITTER_MAX", orDuration(cfg.AdapterConfig.RetryJitterMax, 500*time.Millisecond))

	cfg.PipelineConfig.WorkerCount = getEnvIntOrDefault("PIPELINE_WORKER_COUNT", orInt(cfg.PipelineConfig.WorkerCount, 8))
	cfg.PipelineConfig.QueueDepth = getEnvIntOrDefault("PIPELINE_QUEUE_DEPTH", orInt(cfg.PipelineConfig.QueueDepth, 256))
	cfg.PipelineConfig.ContextFetchTimeout = getEnvDurationOrDefault("PIPELINE_CONTEXT_FETCH_TIMEOUT", orDuration(cfg.PipelineConfig.ContextFetchTimeout, 5*time.Second))
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	cfg := defaultConfig()
	if err := json.Unmarshal(file, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func orStr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func orInt(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}

func orInt32(v int32, fallback int32) int32 {
	if v == 0 {
		return fallback
	}
	return v
}

func orFloat(v, fallback float64) float64 {
	if v == 0 {
		return fallback
	}
	return v
}

func orDuration(v, fallback time.Duration) time.Duration {
	if v == 0 {
		return fallback
	}
	return v
}

// GenerateSampleConfig writes a sample configuration file to disk.
func GenerateSampleConfig(filename string) error {
	cfg := defaultConfig()
	cfg.ServerConfig = ServerConfig{Port: 8080, Host: "0.0.0.0", AllowedOrigins: "*", ReadTimeout: 30, WriteTimeout: 30, ShutdownTimeout: 10, RateLimitPerMinute: 600}
	cfg.AuthConfig.AccessTokenDuration = 12 * time.Hour
	cfg.AuthConfig.OperatorUsername = "operator"
	cfg.DatabaseConfig.DSN = "postgres://localhost:5432/options_controller?sslmode=disable"
	cfg.DatabaseConfig.MaxConns = 20
	cfg.DatabaseConfig.MinConns = 2
	cfg.RedisConfig = RedisConfig{Enabled: true, Address: "localhost:6379", PoolSize: 10}
	cfg.LoggingConfig = LoggingConfig{Level: "info", Output: "stdout"}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
