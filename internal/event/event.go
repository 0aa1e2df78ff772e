package event

import "time"

// Event is the interface all inbound event payloads implement.
// Every event carries the upstream eventId used for deduplication and the
// operation it maps to in the fixed enumeration.
type Event interface {
	// EventID returns the unique upstream event identifier.
	EventID() string

	// Operation returns the business operation this event requests.
	Operation() Operation
}

// Base carries the fields common to every inbound event.
// Timestamp is the upstream-assigned event time, not wall-clock at receipt.
type Base struct {
	ID        string
	Timestamp time.Time
}

func (b *Base) EventID() string { return b.ID }

// EventTime returns the upstream-assigned timestamp. Zero when the
// producer omitted it.
func (b *Base) EventTime() time.Time { return b.Timestamp }
