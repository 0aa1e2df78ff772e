package core

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
	"github.com/andt14111999/test-exchange-sub006/internal/observability"
)

// StoreChecker answers whether an event ID was marked processed in the
// persistent store. It is the slowest dedup tier and only consulted when
// the in-memory tiers miss.
type StoreChecker interface {
	HasProcessed(ctx context.Context, eventID string) (bool, error)
}

// IdempotencyGuard decides whether an incoming event should be processed.
// Lookup order: bounded LRU, processed-event cache, persistent store. A hit
// in a slower tier back-fills the LRU. When the store lookup errors the
// guard lets the event through; processors are written so that replaying a
// completed event is harmless.
type IdempotencyGuard struct {
	lru       *dedupLRU
	processed *cache.Cache[*entity.ProcessedEvent]
	store     StoreChecker
	metrics   *observability.Metrics
}

// NewIdempotencyGuard builds a guard with the given LRU capacity. store may
// be nil, in which case only the in-memory tiers are consulted.
func NewIdempotencyGuard(capacity int, processed *cache.Cache[*entity.ProcessedEvent], store StoreChecker, metrics *observability.Metrics) *IdempotencyGuard {
	return &IdempotencyGuard{
		lru:       newDedupLRU(capacity),
		processed: processed,
		store:     store,
		metrics:   metrics,
	}
}

// ShouldProcess reports whether eventID has not been seen before.
func (g *IdempotencyGuard) ShouldProcess(ctx context.Context, eventID string) bool {
	if g.lru.Contains(eventID) {
		g.countDuplicate("lru")
		return false
	}
	if _, ok := g.processed.Get(eventID); ok {
		g.lru.Add(eventID)
		g.countDuplicate("cache")
		return false
	}
	if g.store != nil {
		start := time.Now()
		dup, err := g.store.HasProcessed(ctx, eventID)
		if g.metrics != nil {
			g.metrics.DedupStoreDur.Observe(time.Since(start).Seconds())
		}
		if err == nil && dup {
			g.lru.Add(eventID)
			g.countDuplicate("store")
			return false
		}
	}
	return true
}

// NoteSeen records eventID in the in-memory tier only. The dispatch loop
// calls it as soon as the event is applied so back-to-back duplicates are
// caught, while the durable marker waits for the output sink to accept
// the result. A crash before that acceptance loses only the LRU entry,
// so the event is replayed rather than its notification lost.
func (g *IdempotencyGuard) NoteSeen(eventID string) {
	g.lru.Add(eventID)
}

// MarkProcessed records eventID as done in the durable tiers. Called only
// after the result was accepted by the output sink.
func (g *IdempotencyGuard) MarkProcessed(eventID string, op event.Operation) {
	g.lru.Add(eventID)
	g.processed.Put(eventID, &entity.ProcessedEvent{
		EventID:     eventID,
		Operation:   op.String(),
		ProcessedAt: time.Now(),
	})
	if g.metrics != nil {
		g.metrics.DedupLRUSize.Set(float64(g.lru.Len()))
	}
}

func (g *IdempotencyGuard) countDuplicate(tier string) {
	if g.metrics != nil {
		g.metrics.DedupDuplicates.WithLabelValues(tier).Inc()
	}
}

// dedupLRU is a fixed-capacity set of recently seen event IDs.
type dedupLRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

func newDedupLRU(capacity int) *dedupLRU {
	if capacity <= 0 {
		capacity = 10000
	}
	return &dedupLRU{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

func (l *dedupLRU) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	el, ok := l.index[id]
	if ok {
		l.order.MoveToFront(el)
	}
	return ok
}

func (l *dedupLRU) Add(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.index[id]; ok {
		l.order.MoveToFront(el)
		return
	}
	l.index[id] = l.order.PushFront(id)
	for l.order.Len() > l.capacity {
		oldest := l.order.Back()
		l.order.Remove(oldest)
		delete(l.index, oldest.Value.(string))
	}
}

func (l *dedupLRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
