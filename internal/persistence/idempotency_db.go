package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
)

// dedupLookupTimeout bounds the store tier of the idempotency guard so a
// slow database cannot stall the dispatch loop.
const dedupLookupTimeout = 500 * time.Millisecond

// DedupChecker answers idempotency lookups against the persisted
// processed-event markers.
type DedupChecker struct {
	store *Store
}

func NewDedupChecker(store *Store) *DedupChecker {
	return &DedupChecker{store: store}
}

// HasProcessed reports whether a processed-event marker exists for eventID.
func (c *DedupChecker) HasProcessed(ctx context.Context, eventID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dedupLookupTimeout)
	defer cancel()

	_, err := c.store.Get(ctx, cache.KindProcessedEvent, eventID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
