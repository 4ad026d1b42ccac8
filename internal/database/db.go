// Package database wraps the pgx connection pool and owns schema bootstrap
// for the controller's persisted entities: signals, refactored_signals,
// refactored_decisions, refactored_positions, refactored_pipeline_failures,
// refactored_context_snapshots, orders, trades, adapter_logs, gex_signals.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"options-controller/config"
	"options-controller/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// isNoRows reports whether err is pgx's not-found sentinel, letting
// repositories distinguish "no such row" from a real query failure.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// DB wraps the PostgreSQL connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB creates a new database connection pool from the given DSN-based config.
func NewDB(cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	logging.WithComponent("database").Info("connected to postgres")
	return &DB{Pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		logging.WithComponent("database").Info("database connection closed")
	}
}

// HealthCheck performs a database health check.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// RunMigrations bootstraps every table this controller persists to, as
// plain idempotent DDL statements run at boot rather than a migration
// framework.
func (db *DB) RunMigrations(ctx context.Context) error {
	logging.WithComponent("database").Info("running schema bootstrap")

	migrations := []string{
		// Canonical inbound signal log — every webhook payload that parsed,
		// whatever the outcome downstream.
		`CREATE TABLE IF NOT EXISTS signals (
			id TEXT PRIMARY KEY,
			correlation_id TEXT NOT NULL,
			source VARCHAR(20) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			signal_timestamp TIMESTAMPTZ NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_correlation_id ON signals(correlation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_symbol_timeframe ON signals(symbol, timeframe)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_timestamp ON signals(signal_timestamp)`,

		// Fingerprinted view of accepted signals, one row per deduplicated
		// intake — backs invariant 6 (one row per fingerprint).
		`CREATE TABLE IF NOT EXISTS refactored_signals (
			id TEXT PRIMARY KEY,
			correlation_id TEXT NOT NULL,
			fingerprint VARCHAR(64) NOT NULL UNIQUE,
			source VARCHAR(20) NOT NULL,
			symbol VARCHAR(20) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			price DECIMAL(20, 8),
			signal_timestamp TIMESTAMPTZ NOT NULL,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refactored_signals_correlation_id ON refactored_signals(correlation_id)`,

		// Every Entry/Exit decision the orchestrator produces, with its full
		// calculations audit trail.
		`CREATE TABLE IF NOT EXISTS refactored_decisions (
			id TEXT PRIMARY KEY,
			correlation_id TEXT NOT NULL,
			signal_id TEXT,
			position_id TEXT,
			decision_type VARCHAR(10) NOT NULL, -- ENTRY or EXIT
			decision VARCHAR(10) NOT NULL,      -- ENTER/REJECT or EXIT/HOLD
			exit_reason VARCHAR(20),
			confidence INT,
			position_size INT,
			reasoning JSONB NOT NULL,
			calculations JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refactored_decisions_correlation_id ON refactored_decisions(correlation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_refactored_decisions_position_id ON refactored_decisions(position_id)`,

		// Open/closed position ledger.
		`CREATE TABLE IF NOT EXISTS refactored_positions (
			id TEXT PRIMARY KEY,
			signal_id TEXT NOT NULL UNIQUE,
			symbol VARCHAR(20) NOT NULL,
			underlying VARCHAR(20) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			option_type VARCHAR(4) NOT NULL,
			strike DECIMAL(20, 4) NOT NULL,
			expiration DATE NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			quantity INT NOT NULL,
			entry_price DECIMAL(20, 4) NOT NULL,
			entry_time TIMESTAMPTZ NOT NULL,
			current_price DECIMAL(20, 4),
			unrealized_pnl DECIMAL(20, 4),
			exit_price DECIMAL(20, 4),
			exit_time TIMESTAMPTZ,
			realized_pnl DECIMAL(20, 4),
			status VARCHAR(10) NOT NULL DEFAULT 'OPEN',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refactored_positions_status ON refactored_positions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_refactored_positions_symbol ON refactored_positions(symbol)`,

		// Every pipeline-stage failure (ParseError, ValidationError, ...),
		// never a crash — this table is the audit trail for rejections.
		`CREATE TABLE IF NOT EXISTS refactored_pipeline_failures (
			id TEXT PRIMARY KEY,
			correlation_id TEXT NOT NULL,
			stage VARCHAR(30) NOT NULL,
			reason TEXT NOT NULL,
			payload JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_failures_correlation_id ON refactored_pipeline_failures(correlation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_pipeline_failures_stage ON refactored_pipeline_failures(stage)`,

		// Historical snapshots of market context, refreshed on CONTEXT webhooks.
		`CREATE TABLE IF NOT EXISTS refactored_context_snapshots (
			id TEXT PRIMARY KEY,
			vix DECIMAL(10, 4) NOT NULL,
			trend VARCHAR(10) NOT NULL,
			bias DECIMAL(6, 4) NOT NULL,
			regime VARCHAR(10) NOT NULL,
			context_timestamp TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_context_snapshots_timestamp ON refactored_context_snapshots(context_timestamp DESC)`,

		// Orders submitted to the brokerage adapter.
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			correlation_id TEXT NOT NULL,
			signal_id TEXT,
			position_id TEXT,
			occ_symbol VARCHAR(30) NOT NULL,
			side VARCHAR(20) NOT NULL,
			quantity INT NOT NULL,
			status VARCHAR(20) NOT NULL,
			broker_order_id VARCHAR(100),
			filled_quantity INT NOT NULL DEFAULT 0,
			avg_fill_price DECIMAL(20, 4),
			submitted_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_correlation_id ON orders(correlation_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_position_id ON orders(position_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,

		// Fills against orders.
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position_id TEXT NOT NULL,
			quantity INT NOT NULL,
			price DECIMAL(20, 4) NOT NULL,
			executed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_order_id ON trades(order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_position_id ON trades(position_id)`,

		// Raw adapter request/response pairs for postmortem debugging.
		`CREATE TABLE IF NOT EXISTS adapter_logs (
			id TEXT PRIMARY KEY,
			correlation_id TEXT NOT NULL,
			adapter_name VARCHAR(50) NOT NULL,
			operation VARCHAR(30) NOT NULL,
			request JSONB,
			response JSONB,
			error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_adapter_logs_correlation_id ON adapter_logs(correlation_id)`,

		// GEX positioning signals, keyed by symbol+timeframe, newest first.
		`CREATE TABLE IF NOT EXISTS gex_signals (
			id TEXT PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			strength DECIMAL(10, 4) NOT NULL,
			direction VARCHAR(10) NOT NULL,
			signal_timestamp TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gex_signals_symbol_timeframe ON gex_signals(symbol, timeframe, signal_timestamp DESC)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	logging.WithComponent("database").Info("schema bootstrap completed")
	return nil
}
