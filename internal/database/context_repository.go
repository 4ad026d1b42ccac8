package database

import (
	"context"
	"fmt"

	"options-controller/internal/domain"

	"github.com/google/uuid"
)

// ContextRepository persists market-context snapshots, refreshed on CONTEXT webhooks.
type ContextRepository struct {
	db *DB
}

// NewContextRepository creates a new ContextRepository.
func NewContextRepository(db *DB) *ContextRepository {
	return &ContextRepository{db: db}
}

// Insert records a new context snapshot.
func (r *ContextRepository) Insert(ctx context.Context, c domain.ContextData) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO refactored_context_snapshots (id, vix, trend, bias, regime, context_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.NewString(), c.VIX, c.Trend, c.Bias, c.Regime, c.Timestamp)
	if err != nil {
		return fmt.Errorf("insert context snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent context snapshot, used to seed the context
// cache on restart so a cold cache doesn't report ContextUnavailable before
// the first CONTEXT webhook arrives.
func (r *ContextRepository) Latest(ctx context.Context) (*domain.ContextData, error) {
	var c domain.ContextData
	err := r.db.Pool.QueryRow(ctx, `
		SELECT vix, trend, bias, regime, context_timestamp
		FROM refactored_context_snapshots ORDER BY context_timestamp DESC LIMIT 1`).
		Scan(&c.VIX, &c.Trend, &c.Bias, &c.Regime, &c.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("latest context snapshot: %w", err)
	}
	return &c, nil
}
