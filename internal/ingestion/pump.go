package ingestion

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/andt14111999/test-exchange-sub006/internal/event"
	"github.com/andt14111999/test-exchange-sub006/internal/observability"
)

// Pump decodes raw messages and hands typed events to the dispatch loop.
// Messages that fail validation but carry an eventId continue downstream
// as invalid events so the rejection is reported; only messages with no
// recoverable identity are acked and counted, since redelivery cannot fix
// a malformed payload.
type Pump struct {
	raw     <-chan RawEvent
	events  chan<- event.Event
	logger  zerolog.Logger
	metrics *observability.Metrics
}

func NewPump(raw <-chan RawEvent, events chan<- event.Event, logger zerolog.Logger, metrics *observability.Metrics) *Pump {
	return &Pump{
		raw:     raw,
		events:  events,
		logger:  logger,
		metrics: metrics,
	}
}

// Run decodes until ctx is cancelled or the raw channel closes. The typed
// channel is closed on return so the engine drains and exits.
func (p *Pump) Run(ctx context.Context) error {
	defer close(p.events)

	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-p.raw:
			if !ok {
				return nil
			}
			p.handle(ctx, raw)
		}
	}
}

func (p *Pump) handle(ctx context.Context, raw RawEvent) {
	evt, err := ParseRawEvent(raw)
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			// No eventId to attribute the failure to, so there is no
			// result to publish either.
			p.logger.Warn().
				Str("subject", raw.Subject).
				Err(err).
				Msg("discarding message without event identity")
			if p.metrics != nil {
				p.metrics.EventsSkipped.WithLabelValues("unparseable").Inc()
			}
			raw.Ack()
			return
		}
		p.logger.Warn().
			Str("subject", raw.Subject).
			Str("event_id", perr.EventID).
			Err(perr.Err).
			Msg("invalid event forwarded for rejection")
		evt = &event.Invalid{
			Base:   event.Base{ID: perr.EventID, Timestamp: perr.Timestamp},
			Op:     perr.Operation,
			Reason: perr.Err.Error(),
		}
	}

	select {
	case p.events <- evt:
		raw.Ack()
	case <-ctx.Done():
		raw.Nak()
	}
}
