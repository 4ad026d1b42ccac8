package database

import (
	"context"
	"encoding/json"
	"fmt"

	"options-controller/internal/domain"

	"github.com/google/uuid"
)

// DecisionRepository persists Entry/Exit decisions with their full
// calculations audit trail.
type DecisionRepository struct {
	db *DB
}

// NewDecisionRepository creates a new DecisionRepository.
func NewDecisionRepository(db *DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// InsertEntryDecision records an EntryDecision.
func (r *DecisionRepository) InsertEntryDecision(ctx context.Context, correlationID string, d domain.EntryDecision) error {
	reasoning, err := json.Marshal(d.Reasoning)
	if err != nil {
		return fmt.Errorf("marshal reasoning: %w", err)
	}
	calculations, err := json.Marshal(d.Calculations)
	if err != nil {
		return fmt.Errorf("marshal calculations: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO refactored_decisions
			(id, correlation_id, signal_id, decision_type, decision, confidence, position_size, reasoning, calculations)
		VALUES ($1, $2, $3, 'ENTRY', $4, $5, $6, $7, $8)`,
		uuid.NewString(), correlationID, d.Signal.ID, d.Decision, d.Confidence, d.PositionSize, reasoning, calculations)
	if err != nil {
		return fmt.Errorf("insert entry decision: %w", err)
	}
	return nil
}

// InsertExitDecision records an ExitDecision.
func (r *DecisionRepository) InsertExitDecision(ctx context.Context, correlationID string, d domain.ExitDecision) error {
	reasoning, err := json.Marshal(d.Reasoning)
	if err != nil {
		return fmt.Errorf("marshal reasoning: %w", err)
	}
	calculations, err := json.Marshal(d.Calculations)
	if err != nil {
		return fmt.Errorf("marshal calculations: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO refactored_decisions
			(id, correlation_id, position_id, decision_type, decision, exit_reason, reasoning, calculations)
		VALUES ($1, $2, $3, 'EXIT', $4, $5, $6, $7)`,
		uuid.NewString(), correlationID, d.Position.ID, d.Decision, d.ExitReason, reasoning, calculations)
	if err != nil {
		return fmt.Errorf("insert exit decision: %w", err)
	}
	return nil
}
