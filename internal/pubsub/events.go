// Package pubsub provides a generic publish/subscribe event system used for
// log fan-out and pagination progress reporting.
package pubsub

import (
	"context"
	"time"
)

// EventType classifies a published event.
type EventType string

const (
	CreatedEvent  EventType = "created"
	UpdatedEvent  EventType = "updated"
	ProgressEvent EventType = "progress"
)

// Event is a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Progress is the payload published while a page map build walks the book's
// chapters.
type Progress struct {
	// Done is the number of chapters paginated so far.
	Done int
	// Total is the chapter count of the document.
	Total int
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher publishes events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
