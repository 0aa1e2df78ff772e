package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Record is one serialized entity snapshot bound for the persistent store.
type Record struct {
	Key   string
	Value []byte
}

// WriteFunc persists a batch of records for one entity kind.
type WriteFunc func(ctx context.Context, kind string, recs []Record) error

// Flushable is the type-erased view of a Cache the flush scheduler works
// with.
type Flushable interface {
	Kind() string
	Len() int
	DirtyCount() int
	ShouldFlush() bool
	Flush(ctx context.Context, write WriteFunc) (int, error)
	Hydrate(key string, data []byte) error
}

// Cache is the in-memory authoritative map for one entity kind, with
// write-back persistence. Mutations land in memory immediately and are
// marked dirty; the flush scheduler drains dirty entries to the store in
// batches.
//
// Values put into the cache must not be mutated afterwards. Processors
// clone, mutate the clone, and Put it back. That keeps concurrent readers
// (the query path) and the flusher's marshalling race-free without holding
// the cache lock across a store write.
type Cache[V any] struct {
	kind      string
	maxDirty  int
	maxAge    time.Duration
	marshal   func(V) ([]byte, error)
	unmarshal func([]byte) (V, error)

	mu        sync.RWMutex
	entries   map[string]V
	dirty     map[string]uint64 // key -> mutation seq at last Put
	seq       uint64
	lastFlush time.Time
	flushDue  bool
}

// New creates a cache for one entity kind. The cache becomes flush-worthy
// once it holds maxDirty dirty entries, or once any dirty entry is older
// than maxAge since the previous flush; either way the condition is sticky
// until a flush drains it.
func New[V any](
	kind string,
	maxDirty int,
	maxAge time.Duration,
	marshal func(V) ([]byte, error),
	unmarshal func([]byte) (V, error),
) *Cache[V] {
	return &Cache[V]{
		kind:      kind,
		maxDirty:  maxDirty,
		maxAge:    maxAge,
		marshal:   marshal,
		unmarshal: unmarshal,
		entries:   make(map[string]V),
		dirty:     make(map[string]uint64),
		lastFlush: time.Now(),
	}
}

// Kind returns the entity kind this cache owns.
func (c *Cache[V]) Kind() string { return c.kind }

// Get returns the entity for key.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores an entity and marks it dirty for the next flush.
func (c *Cache[V]) Put(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
	c.seq++
	c.dirty[key] = c.seq
	c.evaluateFlushLocked(time.Now())
}

// Load stores an entity without marking it dirty. Used for startup
// hydration, where the store already holds the snapshot.
func (c *Cache[V]) Load(key string, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// Hydrate decodes a stored snapshot and loads it.
func (c *Cache[V]) Hydrate(key string, data []byte) error {
	v, err := c.unmarshal(data)
	if err != nil {
		return fmt.Errorf("hydrate %s/%s: %w", c.kind, key, err)
	}
	c.Load(key, v)
	return nil
}

// Len returns the number of cached entities.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// DirtyCount returns the number of entries awaiting flush.
func (c *Cache[V]) DirtyCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.dirty)
}

// Keys returns all cached keys. Intended for the read-only query path.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}

// ShouldFlush reports whether the cache is flush-worthy. Once true it
// stays true until Flush drains the dirty set.
func (c *Cache[V]) ShouldFlush() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evaluateFlushLocked(time.Now())
	return c.flushDue
}

func (c *Cache[V]) evaluateFlushLocked(now time.Time) {
	if c.flushDue || len(c.dirty) == 0 {
		return
	}
	if len(c.dirty) >= c.maxDirty || now.Sub(c.lastFlush) >= c.maxAge {
		c.flushDue = true
	}
}

// Flush serializes the currently dirty entries and hands them to write.
// Entries dirtied again while the store write is in flight keep their
// dirty mark and are picked up by the next flush.
func (c *Cache[V]) Flush(ctx context.Context, write WriteFunc) (int, error) {
	c.mu.Lock()
	recs := make([]Record, 0, len(c.dirty))
	snapshot := make(map[string]uint64, len(c.dirty))
	for key, seq := range c.dirty {
		data, err := c.marshal(c.entries[key])
		if err != nil {
			c.mu.Unlock()
			return 0, fmt.Errorf("marshal %s/%s: %w", c.kind, key, err)
		}
		recs = append(recs, Record{Key: key, Value: data})
		snapshot[key] = seq
	}
	c.mu.Unlock()

	if len(recs) > 0 {
		if err := write(ctx, c.kind, recs); err != nil {
			return 0, err
		}
	}

	c.mu.Lock()
	for key, seq := range snapshot {
		if c.dirty[key] == seq {
			delete(c.dirty, key)
		}
	}
	c.lastFlush = time.Now()
	c.flushDue = false
	c.evaluateFlushLocked(c.lastFlush)
	c.mu.Unlock()

	return len(recs), nil
}
