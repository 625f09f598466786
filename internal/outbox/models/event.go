package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one domain fact recorded alongside the state change that produced
// it, in the same storage transaction. The relay publishes events after the
// transaction commits, so consumers never observe an event whose state change
// rolled back.
//
// AggregateID is the owning entity's id; it becomes the partition key so all
// events for one entity stay ordered.
type Event struct {
	ID          uuid.UUID       `json:"id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	PublishedAt time.Time       `json:"published_at,omitempty"`
}

func NewEvent(eventType, aggregateID string, payload json.RawMessage, now time.Time) *Event {
	return &Event{
		ID:          uuid.New(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		CreatedAt:   now,
	}
}

// Published reports whether the relay has already delivered the event.
func (e *Event) Published() bool {
	return !e.PublishedAt.IsZero()
}
