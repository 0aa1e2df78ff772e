package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
	"github.com/andt14111999/test-exchange-sub006/internal/observability"
)

// Flusher periodically sweeps every cache and writes the dirty entries of
// flush-worthy ones to the store. Transient write failures are retried
// with exponential backoff; when retries are exhausted the flusher reports
// the error through Run's return value so the process can shut down
// instead of silently accumulating unflushed state.
type Flusher struct {
	caches     *cache.Registry
	store      *Store
	interval   time.Duration
	maxTries   uint
	maxElapsed time.Duration
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

func NewFlusher(caches *cache.Registry, store *Store, interval time.Duration, logger zerolog.Logger, metrics *observability.Metrics) *Flusher {
	return &Flusher{
		caches:     caches,
		store:      store,
		interval:   interval,
		maxTries:   8,
		maxElapsed: 30 * time.Second,
		logger:     logger,
		metrics:    metrics,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. A cancelled ctx
// returns nil; callers run FinalFlush afterwards to drain what remains.
func (f *Flusher) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.sweep(ctx); err != nil {
				return err
			}
		}
	}
}

func (f *Flusher) sweep(ctx context.Context) error {
	for _, c := range f.caches.All() {
		f.observeGauges(c)
		if !c.ShouldFlush() {
			continue
		}
		if err := f.flushOne(ctx, c); err != nil {
			return fmt.Errorf("flush %s: %w", c.Kind(), err)
		}
	}
	return nil
}

func (f *Flusher) flushOne(ctx context.Context, c cache.Flushable) error {
	start := time.Now()
	n, err := c.Flush(ctx, f.retryingWrite(c.Kind()))
	if err != nil {
		return err
	}

	if f.metrics != nil {
		f.metrics.FlushDuration.WithLabelValues(c.Kind()).Observe(time.Since(start).Seconds())
		f.metrics.FlushedEntities.WithLabelValues(c.Kind()).Add(float64(n))
	}
	if n > 0 {
		f.logger.Debug().
			Str("cache", c.Kind()).
			Int("entities", n).
			Dur("took", time.Since(start)).
			Msg("cache flushed")
	}
	return nil
}

// retryingWrite wraps the store upsert in exponential backoff. A context
// cancellation is permanent; everything else is retried until maxTries or
// maxElapsed.
func (f *Flusher) retryingWrite(kind string) cache.WriteFunc {
	return func(ctx context.Context, k string, recs []cache.Record) error {
		op := func() (struct{}, error) {
			err := f.store.PutBatch(ctx, k, recs)
			if err != nil {
				if f.metrics != nil {
					f.metrics.FlushErrors.WithLabelValues(kind).Inc()
				}
				f.logger.Warn().
					Str("cache", kind).
					Int("entities", len(recs)).
					Err(err).
					Msg("flush write failed, retrying")
				if ctx.Err() != nil {
					return struct{}{}, backoff.Permanent(err)
				}
			}
			return struct{}{}, err
		}

		_, err := backoff.Retry(ctx, op,
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(f.maxTries),
			backoff.WithMaxElapsedTime(f.maxElapsed),
		)
		return err
	}
}

// FinalFlush drains every cache regardless of flush-worthiness. Called on
// shutdown after the dispatch loop has stopped.
func (f *Flusher) FinalFlush(ctx context.Context) error {
	for _, c := range f.caches.All() {
		if c.DirtyCount() == 0 {
			continue
		}
		if err := f.flushOne(ctx, c); err != nil {
			return fmt.Errorf("final flush %s: %w", c.Kind(), err)
		}
	}
	return nil
}

func (f *Flusher) observeGauges(c cache.Flushable) {
	if f.metrics == nil {
		return
	}
	f.metrics.CacheEntries.WithLabelValues(c.Kind()).Set(float64(c.Len()))
	f.metrics.CacheDirty.WithLabelValues(c.Kind()).Set(float64(c.DirtyCount()))
}
