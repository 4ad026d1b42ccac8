// Package position implements the open/closed position ledger, with an
// in-memory index mirroring persisted state so exposure checks never pay a
// database round trip: a repository-backed store fronted by an in-memory
// map under a single exclusive lock, rehydrated at boot.
package position

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"options-controller/internal/domain"
	"options-controller/internal/events"
	"options-controller/internal/logging"

	"github.com/google/uuid"
)

// optionsMultiplier is the contract multiplier applied to every P&L and
// exposure calculation (one equity option contract controls 100 shares).
const optionsMultiplier = 100

// ErrDuplicatePosition is returned by OpenPosition when signalID already has one.
var ErrDuplicatePosition = errors.New("position already exists for signal")

// Repository is the persistence dependency the manager reads/writes through.
type Repository interface {
	Insert(ctx context.Context, p domain.Position) error
	UpdateMark(ctx context.Context, positionID string, currentPrice, unrealizedPnL float64) error
	Close(ctx context.Context, p domain.Position) error
	UpdateQuantity(ctx context.Context, positionID string, quantity int) error
	GetBySignalID(ctx context.Context, signalID string) (*domain.Position, error)
	ListOpen(ctx context.Context) ([]domain.Position, error)
	TotalOpenExposure(ctx context.Context) (float64, error)
}

// Manager owns the in-memory index of open positions and persists every
// mutation before returning success.
type Manager struct {
	repo   Repository
	bus    *events.EventBus
	maxExposure float64

	mu            sync.Mutex
	byID          map[string]*domain.Position
	bySignalID    map[string]string // signalID -> positionID
	totalExposure float64
}

// NewManager creates a Position Manager. maxExposure bounds total open
// notional, per RiskConfig.MaxTotalExposure.
func NewManager(repo Repository, bus *events.EventBus, maxExposure float64) *Manager {
	return &Manager{
		repo:        repo,
		bus:         bus,
		maxExposure: maxExposure,
		byID:        make(map[string]*domain.Position),
		bySignalID:  make(map[string]string),
	}
}

// LoadPositions rehydrates the in-memory index of OPEN positions from the
// persistent store, called once at boot.
func (m *Manager) LoadPositions(ctx context.Context) error {
	open, err := m.repo.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.byID = make(map[string]*domain.Position, len(open))
	m.bySignalID = make(map[string]string, len(open))
	m.totalExposure = 0

	for i := range open {
		p := open[i]
		m.byID[p.ID] = &p
		m.bySignalID[p.SignalID] = p.ID
		m.totalExposure += p.EntryPrice * float64(p.Quantity) * optionsMultiplier
	}

	logging.WithComponent("position-manager").Info("loaded open positions", "count", len(open))
	return nil
}

// OpenPosition creates and persists a new Position. Rejects with
// ErrDuplicatePosition if signal.ID already has an open position.
func (m *Manager) OpenPosition(ctx context.Context, signal domain.Signal, quantity int, entryPrice float64) (domain.Position, error) {
	m.mu.Lock()
	if _, exists := m.bySignalID[signal.ID]; exists {
		m.mu.Unlock()
		return domain.Position{}, ErrDuplicatePosition
	}
	// Reserve signal.ID under the same lock as the duplicate check, before
	// the DB round trip, so a concurrent OpenPosition for the same signal
	// sees the reservation instead of racing the insert.
	m.bySignalID[signal.ID] = ""
	m.mu.Unlock()

	p := domain.Position{
		ID:         uuid.NewString(),
		SignalID:   signal.ID,
		Symbol:     signal.Symbol,
		Direction:  signal.Direction,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		EntryTime:  time.Now(),
		Underlying: signal.Underlying,
		Strike:     signal.Strike,
		Expiration: signal.Expiration,
		OptionType: signal.OptionType,
		Timeframe:  signal.Timeframe,
		Status:     domain.PositionOpen,
	}

	if err := m.repo.Insert(ctx, p); err != nil {
		m.mu.Lock()
		delete(m.bySignalID, signal.ID)
		m.mu.Unlock()
		return domain.Position{}, fmt.Errorf("open position: %w", err)
	}

	m.mu.Lock()
	m.byID[p.ID] = &p
	m.bySignalID[p.SignalID] = p.ID
	m.totalExposure += entryPrice * float64(quantity) * optionsMultiplier
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.PublishPositionOpened(p.ID, p.Symbol, p.Quantity, p.EntryPrice)
	}

	return p, nil
}

// CalculateUnrealizedPnL computes mark-to-market P&L for an open position.
func CalculateUnrealizedPnL(p domain.Position, currentPrice float64) float64 {
	return (currentPrice - p.EntryPrice) * float64(p.Quantity) * optionsMultiplier
}

// MarkPosition updates a position's current price and unrealized P&L, both
// in the persistent store and the in-memory index.
func (m *Manager) MarkPosition(ctx context.Context, positionID string, currentPrice float64) error {
	m.mu.Lock()
	p, ok := m.byID[positionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("mark position: %w", ErrPositionNotInIndex)
	}
	unrealized := CalculateUnrealizedPnL(*p, currentPrice)
	p.CurrentPrice = &currentPrice
	p.UnrealizedPnL = &unrealized
	m.mu.Unlock()

	if err := m.repo.UpdateMark(ctx, positionID, currentPrice, unrealized); err != nil {
		return fmt.Errorf("mark position: %w", err)
	}

	if m.bus != nil {
		m.bus.PublishPositionMarked(positionID, currentPrice, unrealized)
	}
	return nil
}

// ErrPositionNotInIndex means the positionID isn't in the in-memory open index.
var ErrPositionNotInIndex = errors.New("position not found in open index")

// ClosePosition marks a position CLOSED with realized P&L equal to its
// unrealized P&L at exitPrice.
func (m *Manager) ClosePosition(ctx context.Context, positionID string, exitPrice float64, exitReason string) (domain.Position, error) {
	m.mu.Lock()
	p, ok := m.byID[positionID]
	if !ok {
		m.mu.Unlock()
		return domain.Position{}, ErrPositionNotInIndex
	}
	closed := *p
	now := time.Now()
	realized := CalculateUnrealizedPnL(closed, exitPrice)
	closed.Status = domain.PositionClosed
	closed.ExitPrice = &exitPrice
	closed.ExitTime = &now
	closed.RealizedPnL = &realized
	m.mu.Unlock()

	if err := m.repo.Close(ctx, closed); err != nil {
		return domain.Position{}, fmt.Errorf("close position: %w", err)
	}

	m.mu.Lock()
	delete(m.byID, positionID)
	delete(m.bySignalID, closed.SignalID)
	m.totalExposure -= closed.EntryPrice * float64(closed.Quantity) * optionsMultiplier
	m.mu.Unlock()

	if m.bus != nil {
		m.bus.PublishPositionClosed(positionID, exitPrice, realized, exitReason)
	}
	return closed, nil
}

// ReduceQuantity persists a partial exit's remaining quantity, adjusting
// tracked exposure proportionally.
func (m *Manager) ReduceQuantity(ctx context.Context, positionID string, newQuantity int) error {
	m.mu.Lock()
	p, ok := m.byID[positionID]
	if !ok {
		m.mu.Unlock()
		return ErrPositionNotInIndex
	}
	delta := float64(p.Quantity-newQuantity) * p.EntryPrice * optionsMultiplier
	p.Quantity = newQuantity
	m.totalExposure -= delta
	m.mu.Unlock()

	if err := m.repo.UpdateQuantity(ctx, positionID, newQuantity); err != nil {
		return fmt.Errorf("reduce quantity: %w", err)
	}
	return nil
}

// TotalExposure returns the in-memory running total of entryPrice ×
// quantity × 100 across all OPEN positions.
func (m *Manager) TotalExposure() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalExposure
}

// WouldExceedMaxExposure reports whether adding additional notional would
// push total exposure past the configured maximum.
func (m *Manager) WouldExceedMaxExposure(additional float64) bool {
	return (m.TotalExposure() + additional) > m.maxExposure
}

// GetOpenPosition returns the in-memory record of an open position by ID.
func (m *Manager) GetOpenPosition(positionID string) (domain.Position, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[positionID]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// ListOpenPositions returns a snapshot of every currently open position,
// used by the Exit Worker's sweep.
func (m *Manager) ListOpenPositions() []domain.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Position, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out
}
