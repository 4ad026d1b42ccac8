package database

import (
	"context"
	"errors"
	"fmt"

	"options-controller/internal/domain"

	"github.com/jackc/pgx/v5"
)

// ErrPositionNotFound is returned when a position lookup misses.
var ErrPositionNotFound = errors.New("position not found")

// PositionRepository persists the open/closed position ledger.
type PositionRepository struct {
	db *DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Insert persists a newly opened position.
func (r *PositionRepository) Insert(ctx context.Context, p domain.Position) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO refactored_positions
			(id, signal_id, symbol, underlying, direction, option_type, strike, expiration, timeframe,
			 quantity, entry_price, entry_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		p.ID, p.SignalID, p.Symbol, p.Underlying, p.Direction, p.OptionType, p.Strike, p.Expiration,
		p.Timeframe, p.Quantity, p.EntryPrice, p.EntryTime, domain.PositionOpen)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// UpdateMark updates current price / unrealized PnL for an open position.
func (r *PositionRepository) UpdateMark(ctx context.Context, positionID string, currentPrice, unrealizedPnL float64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE refactored_positions SET current_price = $2, unrealized_pnl = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'OPEN'`, positionID, currentPrice, unrealizedPnL)
	if err != nil {
		return fmt.Errorf("update position mark: %w", err)
	}
	return nil
}

// Close marks a position CLOSED with its realized PnL.
func (r *PositionRepository) Close(ctx context.Context, p domain.Position) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE refactored_positions
		SET status = 'CLOSED', exit_price = $2, exit_time = $3, realized_pnl = $4, updated_at = NOW()
		WHERE id = $1`, p.ID, p.ExitPrice, p.ExitTime, p.RealizedPnL)
	if err != nil {
		return fmt.Errorf("close position: %w", err)
	}
	return nil
}

// UpdateQuantity reduces quantity after a partial exit.
func (r *PositionRepository) UpdateQuantity(ctx context.Context, positionID string, quantity int) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE refactored_positions SET quantity = $2, updated_at = NOW() WHERE id = $1`, positionID, quantity)
	if err != nil {
		return fmt.Errorf("update position quantity: %w", err)
	}
	return nil
}

// GetBySignalID looks up the position opened for a given signal, if any.
func (r *PositionRepository) GetBySignalID(ctx context.Context, signalID string) (*domain.Position, error) {
	return r.scanOne(ctx, `
		SELECT id, signal_id, symbol, underlying, direction, option_type, strike, expiration, timeframe,
		       quantity, entry_price, entry_time, current_price, unrealized_pnl, exit_price, exit_time,
		       realized_pnl, status
		FROM refactored_positions WHERE signal_id = $1`, signalID)
}

// ListOpen returns every OPEN position, used to rehydrate the in-memory
// index on startup (C9 loadPositions) and by the Exit Worker sweep.
func (r *PositionRepository) ListOpen(ctx context.Context) ([]domain.Position, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, signal_id, symbol, underlying, direction, option_type, strike, expiration, timeframe,
		       quantity, entry_price, entry_time, current_price, unrealized_pnl, exit_price, exit_time,
		       realized_pnl, status
		FROM refactored_positions WHERE status = 'OPEN'`)
	if err != nil {
		return nil, fmt.Errorf("list open positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListAll returns every position (open and closed), for the /positions read endpoint.
func (r *PositionRepository) ListAll(ctx context.Context, limit int) ([]domain.Position, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, signal_id, symbol, underlying, direction, option_type, strike, expiration, timeframe,
		       quantity, entry_price, entry_time, current_price, unrealized_pnl, exit_price, exit_time,
		       realized_pnl, status
		FROM refactored_positions ORDER BY entry_time DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// TotalOpenExposure sums entryPrice*quantity*100 (options multiplier) over
// OPEN positions — backs C9's totalExposure / wouldExceedMaxExposure.
func (r *PositionRepository) TotalOpenExposure(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(entry_price * quantity * 100), 0) FROM refactored_positions WHERE status = 'OPEN'`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum open exposure: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPosition(row rowScanner) (domain.Position, error) {
	var p domain.Position
	if err := row.Scan(&p.ID, &p.SignalID, &p.Symbol, &p.Underlying, &p.Direction, &p.OptionType, &p.Strike,
		&p.Expiration, &p.Timeframe, &p.Quantity, &p.EntryPrice, &p.EntryTime, &p.CurrentPrice, &p.UnrealizedPnL,
		&p.ExitPrice, &p.ExitTime, &p.RealizedPnL, &p.Status); err != nil {
		return domain.Position{}, fmt.Errorf("scan position: %w", err)
	}
	return p, nil
}

func (r *PositionRepository) scanOne(ctx context.Context, query string, args ...interface{}) (*domain.Position, error) {
	row := r.db.Pool.QueryRow(ctx, query, args...)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPositionNotFound
		}
		return nil, err
	}
	return &p, nil
}
