// Package events provides an in-process publish/subscribe bus so the
// websocket layer (internal/api) can observe pipeline activity without the
// pipeline importing it, avoiding an import cycle between the persistence
// and transport layers. The degraded-mode tracker (internal/audit) publishes
// on the bus; nothing in internal/audit subscribes to it.
package events

import (
	"sync"
	"time"
)

// EventType identifies the kind of event carried on the bus.
type EventType string

const (
	EventSignalReceived  EventType = "SIGNAL_RECEIVED"
	EventSignalRejected  EventType = "SIGNAL_REJECTED"
	EventSignalDuplicate EventType = "SIGNAL_DUPLICATE"
	EventContextUpdated  EventType = "CONTEXT_UPDATED"
	EventGEXUpdated      EventType = "GEX_UPDATED"
	EventEntryDecision   EventType = "ENTRY_DECISION"
	EventExitDecision    EventType = "EXIT_DECISION"
	EventOrderSubmitted  EventType = "ORDER_SUBMITTED"
	EventOrderFilled     EventType = "ORDER_FILLED"
	EventOrderRejected   EventType = "ORDER_REJECTED"
	EventPositionOpened  EventType = "POSITION_OPENED"
	EventPositionClosed  EventType = "POSITION_CLOSED"
	EventPositionMarked  EventType = "POSITION_MARKED"
	EventDegradedMode    EventType = "DEGRADED_MODE_CHANGED"
	EventPipelineFailure EventType = "PIPELINE_FAILURE"
)

// Event is a single occurrence published on the bus.
type Event struct {
	Type          EventType              `json:"type"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlationId,omitempty"`
	Data          map[string]interface{} `json:"data"`
}

// Subscriber handles a published event.
type Subscriber func(Event)

// EventBus fans out published events to per-type and catch-all subscribers.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Subscriber
	allSubs     []Subscriber
}

// NewEventBus creates an empty EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[EventType][]Subscriber),
	}
}

// Subscribe registers a handler for one event type.
func (eb *EventBus) Subscribe(eventType EventType, subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscriber)
}

// SubscribeAll registers a handler invoked for every event, used by the
// websocket decision stream (C-websocket) to fan everything out to clients.
func (eb *EventBus) SubscribeAll(subscriber Subscriber) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.allSubs = append(eb.allSubs, subscriber)
}

// Publish notifies subscribers of event. Handlers run in their own
// goroutine so a slow subscriber (e.g. a stalled websocket write) can never
// block the pipeline stage that published the event.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if subs, ok := eb.subscribers[event.Type]; ok {
		for _, sub := range subs {
			go sub(event)
		}
	}
	for _, sub := range eb.allSubs {
		go sub(event)
	}
}

// PublishSignalReceived announces an accepted, deduplicated signal entering the pipeline.
func (eb *EventBus) PublishSignalReceived(correlationID, underlying, direction string, source string) {
	eb.Publish(Event{
		Type:          EventSignalReceived,
		CorrelationID: correlationID,
		Data: map[string]interface{}{
			"underlying": underlying,
			"direction":  direction,
			"source":     source,
		},
	})
}

// PublishSignalRejected announces a signal rejected by validation.
func (eb *EventBus) PublishSignalRejected(correlationID, reason string) {
	eb.Publish(Event{
		Type:          EventSignalRejected,
		CorrelationID: correlationID,
		Data:          map[string]interface{}{"reason": reason},
	})
}

// PublishSignalDuplicate announces a signal dropped by the dedup cache.
func (eb *EventBus) PublishSignalDuplicate(correlationID, fingerprint string) {
	eb.Publish(Event{
		Type:          EventSignalDuplicate,
		CorrelationID: correlationID,
		Data:          map[string]interface{}{"fingerprint": fingerprint},
	})
}

// PublishContextUpdated announces a refreshed market-context snapshot.
func (eb *EventBus) PublishContextUpdated(vix float64, trend, bias, regime string) {
	eb.Publish(Event{
		Type: EventContextUpdated,
		Data: map[string]interface{}{
			"vix":    vix,
			"trend":  trend,
			"bias":   bias,
			"regime": regime,
		},
	})
}

// PublishGEXUpdated announces a refreshed GEX signal for a symbol/timeframe.
func (eb *EventBus) PublishGEXUpdated(symbol, timeframe string, gexValue float64, flip bool) {
	eb.Publish(Event{
		Type: EventGEXUpdated,
		Data: map[string]interface{}{
			"symbol":    symbol,
			"timeframe": timeframe,
			"gexValue":  gexValue,
			"flip":      flip,
		},
	})
}

// PublishEntryDecision announces the Decision Engine's verdict for an incoming signal.
func (eb *EventBus) PublishEntryDecision(correlationID string, decision string, confidence float64, positionSize int) {
	eb.Publish(Event{
		Type:          EventEntryDecision,
		CorrelationID: correlationID,
		Data: map[string]interface{}{
			"decision":     decision,
			"confidence":   confidence,
			"positionSize": positionSize,
		},
	})
}

// PublishExitDecision announces an exit decision for an open position.
func (eb *EventBus) PublishExitDecision(correlationID, positionID, exitReason string) {
	eb.Publish(Event{
		Type:          EventExitDecision,
		CorrelationID: correlationID,
		Data: map[string]interface{}{
			"positionId": positionID,
			"exitReason": exitReason,
		},
	})
}

// PublishOrderSubmitted announces an order sent to the adapter.
func (eb *EventBus) PublishOrderSubmitted(correlationID, occSymbol, side string, quantity int) {
	eb.Publish(Event{
		Type:          EventOrderSubmitted,
		CorrelationID: correlationID,
		Data: map[string]interface{}{
			"occSymbol": occSymbol,
			"side":      side,
			"quantity":  quantity,
		},
	})
}

// PublishOrderFilled announces an adapter fill.
func (eb *EventBus) PublishOrderFilled(correlationID, orderID string, avgFillPrice float64, filledQuantity int) {
	eb.Publish(Event{
		Type:          EventOrderFilled,
		CorrelationID: correlationID,
		Data: map[string]interface{}{
			"orderId":        orderID,
			"avgFillPrice":   avgFillPrice,
			"filledQuantity": filledQuantity,
		},
	})
}

// PublishOrderRejected announces an adapter rejection.
func (eb *EventBus) PublishOrderRejected(correlationID, orderID, reason string) {
	eb.Publish(Event{
		Type:          EventOrderRejected,
		CorrelationID: correlationID,
		Data: map[string]interface{}{
			"orderId": orderID,
			"reason":  reason,
		},
	})
}

// PublishPositionOpened announces a new open position.
func (eb *EventBus) PublishPositionOpened(positionID, occSymbol string, quantity int, entryPrice float64) {
	eb.Publish(Event{
		Type: EventPositionOpened,
		Data: map[string]interface{}{
			"positionId": positionID,
			"occSymbol":  occSymbol,
			"quantity":   quantity,
			"entryPrice": entryPrice,
		},
	})
}

// PublishPositionClosed announces a position closing, with realized P&L.
func (eb *EventBus) PublishPositionClosed(positionID string, exitPrice, realizedPnL float64, exitReason string) {
	eb.Publish(Event{
		Type: EventPositionClosed,
		Data: map[string]interface{}{
			"positionId":  positionID,
			"exitPrice":   exitPrice,
			"realizedPnl": realizedPnL,
			"exitReason":  exitReason,
		},
	})
}

// PublishPositionMarked announces an intra-day mark-to-market update.
func (eb *EventBus) PublishPositionMarked(positionID string, currentPrice, unrealizedPnL float64) {
	eb.Publish(Event{
		Type: EventPositionMarked,
		Data: map[string]interface{}{
			"positionId":    positionID,
			"currentPrice":  currentPrice,
			"unrealizedPnl": unrealizedPnL,
		},
	})
}

// PublishDegradedMode announces a dependency transitioning between healthy and degraded.
func (eb *EventBus) PublishDegradedMode(dependency, state, reason string) {
	eb.Publish(Event{
		Type: EventDegradedMode,
		Data: map[string]interface{}{
			"dependency": dependency,
			"state":      state,
			"reason":     reason,
		},
	})
}

// PublishPipelineFailure announces a signal dropping out of the pipeline due
// to an unexpected error rather than a deliberate rejection.
func (eb *EventBus) PublishPipelineFailure(correlationID, stage, errMsg string) {
	eb.Publish(Event{
		Type:          EventPipelineFailure,
		CorrelationID: correlationID,
		Data: map[string]interface{}{
			"stage": stage,
			"error": errMsg,
		},
	})
}
