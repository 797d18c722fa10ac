package events

import (
	"context"
	"time"
)

// Event defines the contract for all domain events flowing through the bus.
type Event interface {
	// EventType returns the unique code for this event (e.g., "MESSAGE_SENT").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the plain implementation used by publishers.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Handler processes a single event. Returning an error signals the bus
// to redeliver where the backend supports it.
type Handler func(ctx context.Context, event Event) error

// Publisher sends events onto the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Subscriber registers handlers for event subjects.
type Subscriber interface {
	// Subscribe binds handler to the subject pattern. durableName identifies
	// the consumer on backends with persistent consumer state.
	Subscribe(subject string, durableName string, handler Handler) error
	Close()
}
