package events

import "context"

// EventStore provides persistence for run events.
type EventStore interface {
	// Append adds a new event to the store, chaining it to the previous event.
	Append(event *BaseEvent) error

	// LoadAll returns all events in chronological order.
	LoadAll() ([]*BaseEvent, error)

	// LoadByAggregate returns events for a specific aggregate.
	LoadByAggregate(aggregateType, aggregateID string) ([]*BaseEvent, error)

	// LoadByType returns events of a specific type.
	LoadByType(eventType string) ([]*BaseEvent, error)

	// Count returns the total number of events.
	Count() (int, error)
}

// Publisher broadcasts events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event *BaseEvent) error
}
