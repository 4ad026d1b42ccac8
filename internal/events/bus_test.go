package events

import (
	"testing"
	"time"
)

func awaitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribeReceivesMatchingEventType(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(EventSignalReceived, func(ev Event) { ch <- ev })

	bus.PublishSignalReceived("corr-1", "SPY", "CALL", "TRADINGVIEW")

	ev := awaitEvent(t, ch)
	if ev.Type != EventSignalReceived {
		t.Errorf("Type = %q, want SIGNAL_RECEIVED", ev.Type)
	}
	if ev.Data["underlying"] != "SPY" {
		t.Errorf("Data[underlying] = %v, want SPY", ev.Data["underlying"])
	}
}

func TestSubscribeIgnoresNonMatchingEventType(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(EventOrderFilled, func(ev Event) { ch <- ev })

	bus.PublishSignalRejected("corr-1", "stale timestamp")

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event delivered: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeAllReceivesEveryEventType(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 2)
	bus.SubscribeAll(func(ev Event) { ch <- ev })

	bus.PublishSignalDuplicate("corr-1", "fp-1")
	bus.PublishOrderFilled("corr-1", "order-1", 5.0, 2)

	first := awaitEvent(t, ch)
	second := awaitEvent(t, ch)
	// Publish runs each subscriber in its own goroutine, so arrival order is not fixed.
	got := map[EventType]bool{first.Type: true, second.Type: true}
	if !got[EventSignalDuplicate] || !got[EventOrderFilled] {
		t.Errorf("got types %q, %q; want SIGNAL_DUPLICATE and ORDER_FILLED in either order", first.Type, second.Type)
	}
}

func TestPublishStampsTimestampWhenZero(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.SubscribeAll(func(ev Event) { ch <- ev })

	bus.Publish(Event{Type: EventContextUpdated, Data: map[string]interface{}{}})

	ev := awaitEvent(t, ch)
	if ev.Timestamp.IsZero() {
		t.Error("expected Publish to stamp a non-zero Timestamp")
	}
}

func TestPublishDegradedModeCarriesFields(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(EventDegradedMode, func(ev Event) { ch <- ev })

	bus.PublishDegradedMode("adapter", "degraded", "circuit tripped")

	ev := awaitEvent(t, ch)
	if ev.Data["dependency"] != "adapter" || ev.Data["state"] != "degraded" {
		t.Errorf("Data = %+v, want dependency=adapter state=degraded", ev.Data)
	}
}
