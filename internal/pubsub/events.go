// Package pubsub provides a generic publish/subscribe event system used to
// fan out engine state to the terminal host and to the log listener.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"

	// Engine lifecycle events.
	TickEvent          EventType = "tick"
	ModeChangedEvent   EventType = "mode_changed"
	RunStateEvent      EventType = "run_state"
	SessionQueuedEvent EventType = "session_queued"
	PersistFailedEvent EventType = "persist_failed"
	BreakDueEvent      EventType = "break_due"
	BreakEndedEvent    EventType = "break_ended"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
