// Package domain holds the canonical value types shared across every stage
// of the signal-to-order pipeline. It is intentionally dependency-free so
// every other package can import it without creating cycles; cross-package
// notifications route through internal/events instead of direct imports.
package domain

import "time"

// Signal sources.
const (
	SourceTradingView = "TRADINGVIEW"
	SourceGEX         = "GEX"
	SourceMTF         = "MTF"
	SourceManual      = "MANUAL"
)

// Signal directions.
const (
	DirectionCall = "CALL"
	DirectionPut  = "PUT"
)

// Market regimes.
const (
	RegimeLowVol = "LOW_VOL"
	RegimeHighVol = "HIGH_VOL"
	RegimeNormal = "NORMAL"
)

// Market trends.
const (
	TrendBullish = "BULLISH"
	TrendBearish = "BEARISH"
	TrendNeutral = "NEUTRAL"
)

// Position status.
const (
	PositionOpen   = "OPEN"
	PositionClosed = "CLOSED"
)

// Entry/Exit decision outcomes.
const (
	DecisionEnter = "ENTER"
	DecisionReject = "REJECT"
	DecisionExit  = "EXIT"
	DecisionHold  = "HOLD"
)

// Exit reasons, priority order matters: ProfitTarget beats StopLoss beats
// GEXFlip beats TimeExit when more than one condition is true simultaneously.
const (
	ExitProfitTarget = "PROFIT_TARGET"
	ExitStopLoss     = "STOP_LOSS"
	ExitGEXFlip      = "GEX_FLIP"
	ExitTimeExit     = "TIME_EXIT"
)

// Order sides.
const (
	SideBuyToOpen   = "BUY_TO_OPEN"
	SideSellToClose = "SELL_TO_CLOSE"
)

// Order status.
const (
	OrderPending   = "PENDING"
	OrderFilled    = "FILLED"
	OrderRejected  = "REJECTED"
	OrderCancelled = "CANCELLED"
)

// Signal is the canonical inbound trading event, normalized from an
// arbitrary webhook payload.
type Signal struct {
	ID        string
	Source    string
	Symbol    string
	Direction string
	Timeframe string
	Price     float64
	Timestamp time.Time
	Metadata  map[string]string

	// Contract details, populated when the signal carries option specifics;
	// falls back to the Position's own fields when absent on exit.
	Underlying string
	Strike     float64
	Expiration time.Time
	OptionType string
}

// ContextData is the latest market snapshot, refreshed on CONTEXT webhooks.
type ContextData struct {
	VIX       float64
	Trend     string
	Bias      float64
	Regime    string
	Timestamp time.Time
}

// GEXSignal is a positioning indicator row.
type GEXSignal struct {
	Symbol    string
	Timeframe string
	Strength  float64
	Direction string
	Timestamp time.Time
}

// Age returns how old this signal is relative to now.
func (g GEXSignal) Age(now time.Time) time.Duration {
	return now.Sub(g.Timestamp)
}

// Position is an open or closed options contract.
type Position struct {
	ID         string
	SignalID   string
	Symbol     string
	Direction  string
	Quantity   int
	EntryPrice float64
	EntryTime  time.Time

	CurrentPrice   *float64
	UnrealizedPnL  *float64
	ExitPrice      *float64
	ExitTime       *time.Time
	RealizedPnL    *float64
	Status         string

	Underlying string
	Strike     float64
	Expiration time.Time
	OptionType string
	Timeframe  string
}

// EntryDecision is the Orchestrator's verdict on whether to open a position.
type EntryDecision struct {
	Decision     string
	Signal       Signal
	Confidence   int
	PositionSize int
	Reasoning    []string
	Calculations map[string]interface{}
}

// ExitDecision is the Orchestrator's verdict on whether to close a position.
type ExitDecision struct {
	Decision     string
	Position     Position
	ExitReason   string
	Reasoning    []string
	Calculations map[string]interface{}
}

// PipelineFailure records a non-crashing failure at any pipeline stage.
type PipelineFailure struct {
	ID            string
	CorrelationID string
	Stage         string
	Reason        string
	Payload       map[string]interface{}
	CreatedAt     time.Time
}

// Order is a brokerage adapter submission.
type Order struct {
	ID             string
	CorrelationID  string
	SignalID       string
	PositionID     string
	OCCSymbol      string
	Side           string
	Quantity       int
	Status         string
	BrokerOrderID  string
	FilledQuantity int
	AvgFillPrice   float64
	SubmittedAt    time.Time
	UpdatedAt      time.Time
}

// Trade is a single fill against an order.
type Trade struct {
	ID         string
	OrderID    string
	PositionID string
	Quantity   int
	Price      float64
	ExecutedAt time.Time
}
