package database

import (
	"context"
	"encoding/json"
	"fmt"

	"options-controller/internal/domain"

	"github.com/google/uuid"
)

// OrderRepository persists orders, their fills, and raw adapter call logs.
type OrderRepository struct {
	db *DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Insert persists a new order.
func (r *OrderRepository) Insert(ctx context.Context, o domain.Order) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO orders
			(id, correlation_id, signal_id, position_id, occ_symbol, side, quantity, status,
			 broker_order_id, filled_quantity, avg_fill_price, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID, o.CorrelationID, o.SignalID, o.PositionID, o.OCCSymbol, o.Side, o.Quantity, o.Status,
		o.BrokerOrderID, o.FilledQuantity, o.AvgFillPrice, o.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// UpdateStatus updates an order's terminal status and fill details.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID, status string, filledQuantity int, avgFillPrice float64) error {
	_, err := r.db.Pool.Exec(ctx, `
		UPDATE orders SET status = $2, filled_quantity = $3, avg_fill_price = $4, updated_at = NOW()
		WHERE id = $1`, orderID, status, filledQuantity, avgFillPrice)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// ListRecent returns the most recent orders, for the /orders read endpoint.
func (r *OrderRepository) ListRecent(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, correlation_id, signal_id, position_id, occ_symbol, side, quantity, status,
		       broker_order_id, filled_quantity, avg_fill_price, submitted_at, updated_at
		FROM orders ORDER BY submitted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.CorrelationID, &o.SignalID, &o.PositionID, &o.OCCSymbol, &o.Side,
			&o.Quantity, &o.Status, &o.BrokerOrderID, &o.FilledQuantity, &o.AvgFillPrice, &o.SubmittedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// InsertTrade records a fill against an order.
func (r *OrderRepository) InsertTrade(ctx context.Context, t domain.Trade) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO trades (id, order_id, position_id, quantity, price, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.OrderID, t.PositionID, t.Quantity, t.Price, t.ExecutedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// LogAdapterCall records a raw adapter request/response pair for postmortem debugging.
func (r *OrderRepository) LogAdapterCall(ctx context.Context, correlationID, adapterName, operation string, request, response interface{}, callErr error) error {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("marshal adapter request: %w", err)
	}
	respJSON, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal adapter response: %w", err)
	}
	var errMsg *string
	if callErr != nil {
		msg := callErr.Error()
		errMsg = &msg
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO adapter_logs (id, correlation_id, adapter_name, operation, request, response, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), correlationID, adapterName, operation, reqJSON, respJSON, errMsg)
	if err != nil {
		return fmt.Errorf("insert adapter log: %w", err)
	}
	return nil
}
