// Package events defines the in-process event bus the CRM modules use to
// react to each other's state changes without importing one another. Lead
// capture, funnel progression and journey completion all fan out through
// this package.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event routed through the bus.
type Event interface {
	// EventName returns the routing key handlers subscribe on,
	// e.g. "leads.created".
	EventName() string
	// OccurredAt returns when the event was recorded.
	OccurredAt() time.Time
}

// BaseEvent carries the timestamp shared by every concrete event.
// Embed it and implement EventName on the concrete type.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// OccurredAt returns when the event was recorded.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events delivered by the bus.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

// Handle invokes the wrapped function.
func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish delivers the event to every handler subscribed to its name.
	// Delivery is asynchronous; publishers never block on handlers.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event and waits for every handler,
	// returning the first handler error.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler under an event name as returned
	// by Event.EventName.
	Subscribe(eventName string, handler Handler)
}
