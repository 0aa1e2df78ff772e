package entity

import "time"

// ProcessedEvent is the durable idempotency marker for one eventId.
// Created once after the event's result is accepted downstream, never
// mutated. Markers older than the broker's redelivery window may be
// evicted without correctness loss.
type ProcessedEvent struct {
	EventID     string    `json:"event_id"`
	Operation   string    `json:"operation"`
	ProcessedAt time.Time `json:"processed_at"`
}
