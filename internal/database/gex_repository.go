package database

import (
	"context"
	"fmt"

	"options-controller/internal/domain"

	"github.com/google/uuid"
)

// GEXRepository persists GEX positioning signals and serves flip history.
type GEXRepository struct {
	db *DB
}

// NewGEXRepository creates a new GEXRepository.
func NewGEXRepository(db *DB) *GEXRepository {
	return &GEXRepository{db: db}
}

// Insert records a new GEX signal.
func (r *GEXRepository) Insert(ctx context.Context, g domain.GEXSignal) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO gex_signals (id, symbol, timeframe, strength, direction, signal_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), g.Symbol, g.Timeframe, g.Strength, g.Direction, g.Timestamp)
	if err != nil {
		return fmt.Errorf("insert gex signal: %w", err)
	}
	return nil
}

// Latest returns the newest GEX signal for a symbol/timeframe, or nil if none exist.
func (r *GEXRepository) Latest(ctx context.Context, symbol, timeframe string) (*domain.GEXSignal, error) {
	var g domain.GEXSignal
	err := r.db.Pool.QueryRow(ctx, `
		SELECT symbol, timeframe, strength, direction, signal_timestamp
		FROM gex_signals WHERE symbol = $1 AND timeframe = $2
		ORDER BY signal_timestamp DESC LIMIT 1`, symbol, timeframe).
		Scan(&g.Symbol, &g.Timeframe, &g.Strength, &g.Direction, &g.Timestamp)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest gex signal: %w", err)
	}
	return &g, nil
}

// RecentTwo returns the two most recent GEX signals for detectFlip, newest first.
func (r *GEXRepository) RecentTwo(ctx context.Context, symbol, timeframe string) ([]domain.GEXSignal, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT symbol, timeframe, strength, direction, signal_timestamp
		FROM gex_signals WHERE symbol = $1 AND timeframe = $2
		ORDER BY signal_timestamp DESC LIMIT 2`, symbol, timeframe)
	if err != nil {
		return nil, fmt.Errorf("recent gex signals: %w", err)
	}
	defer rows.Close()

	var out []domain.GEXSignal
	for rows.Next() {
		var g domain.GEXSignal
		if err := rows.Scan(&g.Symbol, &g.Timeframe, &g.Strength, &g.Direction, &g.Timestamp); err != nil {
			return nil, fmt.Errorf("scan gex signal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
