package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"options-controller/internal/domain"
)

// SignalRepository persists the canonical signal log and the deduplicated
// refactored_signals view, plus pipeline failures.
type SignalRepository struct {
	db *DB
}

// NewSignalRepository creates a new SignalRepository.
func NewSignalRepository(db *DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// InsertSignal records an inbound signal in the canonical log, regardless of
// downstream outcome.
func (r *SignalRepository) InsertSignal(ctx context.Context, correlationID string, s domain.Signal) error {
	metadata, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO signals (id, correlation_id, source, symbol, direction, timeframe, signal_timestamp, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		s.ID, correlationID, s.Source, s.Symbol, s.Direction, s.Timeframe, s.Timestamp, metadata)
	if err != nil {
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// InsertRefactoredSignal records the deduplicated, fingerprinted view. A
// fingerprint that is already present (e.g. a duplicate that slipped past
// the in-process dedup cache after a restart) is skipped by ON CONFLICT DO
// NOTHING and returns nil, so the caller cannot tell it apart from a fresh
// insert and does not report it as a duplicate.
func (r *SignalRepository) InsertRefactoredSignal(ctx context.Context, correlationID, fingerprint string, s domain.Signal) error {
	metadata, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO refactored_signals (id, correlation_id, fingerprint, source, symbol, direction, timeframe, price, signal_timestamp, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (fingerprint) DO NOTHING`,
		s.ID, correlationID, fingerprint, s.Source, s.Symbol, s.Direction, s.Timeframe, s.Price, s.Timestamp, metadata)
	if err != nil {
		return fmt.Errorf("insert refactored signal: %w", err)
	}
	return nil
}

// InsertPipelineFailure records a non-crashing pipeline-stage failure.
func (r *SignalRepository) InsertPipelineFailure(ctx context.Context, f domain.PipelineFailure) error {
	payload, err := json.Marshal(f.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO refactored_pipeline_failures (id, correlation_id, stage, reason, payload)
		VALUES ($1, $2, $3, $4, $5)`,
		f.ID, f.CorrelationID, f.Stage, f.Reason, payload)
	if err != nil {
		return fmt.Errorf("insert pipeline failure: %w", err)
	}
	return nil
}

// CountRefactoredSignalsByFingerprint returns how many refactored_signals
// rows exist for a fingerprint. A fingerprint is unique, so this is always 0
// or 1.
func (r *SignalRepository) CountRefactoredSignalsByFingerprint(ctx context.Context, fingerprint string) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM refactored_signals WHERE fingerprint = $1`, fingerprint).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count refactored signals: %w", err)
	}
	return count, nil
}

// RecentBySymbolTimeframe returns the most recent canonical signals sharing
// symbol and timeframe, within lookback — the peer pool the confluence
// calculator scores an inbound signal against.
func (r *SignalRepository) RecentBySymbolTimeframe(ctx context.Context, symbol, timeframe string, lookback time.Duration, limit int) ([]domain.Signal, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, source, symbol, direction, timeframe, signal_timestamp, metadata
		FROM signals
		WHERE symbol = $1 AND timeframe = $2 AND signal_timestamp >= $3
		ORDER BY signal_timestamp DESC LIMIT $4`,
		symbol, timeframe, time.Now().Add(-lookback), limit)
	if err != nil {
		return nil, fmt.Errorf("list peer signals: %w", err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		var s domain.Signal
		var metadata []byte
		var ts time.Time
		if err := rows.Scan(&s.ID, &s.Source, &s.Symbol, &s.Direction, &s.Timeframe, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("scan peer signal: %w", err)
		}
		s.Timestamp = ts
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &s.Metadata)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListRecentSignals returns the most recent canonical signals, for the
// /signals read endpoint.
func (r *SignalRepository) ListRecentSignals(ctx context.Context, limit int) ([]domain.Signal, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, source, symbol, direction, timeframe, signal_timestamp, metadata
		FROM signals ORDER BY signal_timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		var s domain.Signal
		var metadata []byte
		var ts time.Time
		if err := rows.Scan(&s.ID, &s.Source, &s.Symbol, &s.Direction, &s.Timeframe, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.Timestamp = ts
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &s.Metadata)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
