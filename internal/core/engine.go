package core

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/andt14111999/test-exchange-sub006/internal/event"
	"github.com/andt14111999/test-exchange-sub006/internal/observability"
)

// Engine is the single-writer event loop. Exactly one goroutine runs Run,
// so every cache mutation happens in arrival order; the only other readers
// of entity state are the query path and the flusher, both of which go
// through the caches' own locking.
type Engine struct {
	dispatcher *Dispatcher
	guard      *IdempotencyGuard
	results    chan<- *Result
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

func NewEngine(dispatcher *Dispatcher, guard *IdempotencyGuard, results chan<- *Result, logger zerolog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		dispatcher: dispatcher,
		guard:      guard,
		results:    results,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run consumes events until ctx is cancelled or the channel closes. The
// result send blocks, so a slow output sink backpressures the loop instead
// of dropping notifications. The results channel is closed on return so
// the publisher downstream drains and exits; the engine is its only
// writer.
func (en *Engine) Run(ctx context.Context, events <-chan event.Event) error {
	defer close(en.results)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			en.handle(ctx, evt)
		}
	}
}

func (en *Engine) handle(ctx context.Context, evt event.Event) {
	if !en.guard.ShouldProcess(ctx, evt.EventID()) {
		en.logger.Debug().
			Str("event_id", evt.EventID()).
			Str("operation", evt.Operation().String()).
			Msg("duplicate event skipped")
		if en.metrics != nil {
			en.metrics.EventsSkipped.WithLabelValues("duplicate").Inc()
		}
		return
	}

	res := en.dispatcher.Dispatch(evt)

	select {
	case en.results <- res:
	case <-ctx.Done():
		// Shutdown mid-event: the result is lost but the event stays
		// unmarked, so a restart replays it.
		return
	}

	// The durable marker is written by the publisher once the result is
	// accepted downstream; the in-memory note covers duplicates arriving
	// in the meantime.
	en.guard.NoteSeen(evt.EventID())
}
