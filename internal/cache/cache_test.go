package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
)

type widget struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newWidgetCache(maxDirty int, maxAge time.Duration) *cache.Cache[*widget] {
	return cache.New("widget", maxDirty, maxAge,
		func(w *widget) ([]byte, error) { return json.Marshal(w) },
		func(data []byte) (*widget, error) {
			var w widget
			err := json.Unmarshal(data, &w)
			return &w, err
		},
	)
}

func TestCachePutGet(t *testing.T) {
	c := newWidgetCache(100, time.Hour)

	c.Put("a", &widget{Name: "a", Count: 1})
	got, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Count != 1 {
		t.Errorf("count: got %d, want 1", got.Count)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
	if c.DirtyCount() != 1 {
		t.Errorf("dirty count: got %d, want 1", c.DirtyCount())
	}
}

func TestCacheShouldFlushBySize(t *testing.T) {
	c := newWidgetCache(3, time.Hour)

	c.Put("a", &widget{})
	c.Put("b", &widget{})
	if c.ShouldFlush() {
		t.Fatal("below maxDirty, should not be flush-worthy")
	}

	c.Put("c", &widget{})
	if !c.ShouldFlush() {
		t.Fatal("at maxDirty, should be flush-worthy")
	}

	// Sticky until flushed, even if re-evaluated.
	if !c.ShouldFlush() {
		t.Error("flush-worthiness must be sticky")
	}
}

func TestCacheShouldFlushByAge(t *testing.T) {
	c := newWidgetCache(1000, 10*time.Millisecond)

	c.Put("a", &widget{})
	time.Sleep(20 * time.Millisecond)
	if !c.ShouldFlush() {
		t.Fatal("dirty entry older than maxAge should make the cache flush-worthy")
	}
}

func TestCacheFlushDrainsDirty(t *testing.T) {
	c := newWidgetCache(1, time.Hour)
	c.Put("a", &widget{Name: "a", Count: 7})
	c.Put("b", &widget{Name: "b", Count: 9})

	var written []cache.Record
	n, err := c.Flush(context.Background(), func(_ context.Context, kind string, recs []cache.Record) error {
		if kind != "widget" {
			t.Errorf("kind: got %s, want widget", kind)
		}
		written = recs
		return nil
	})
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n != 2 || len(written) != 2 {
		t.Fatalf("flushed: got %d records, want 2", n)
	}
	if c.DirtyCount() != 0 {
		t.Errorf("dirty after flush: got %d, want 0", c.DirtyCount())
	}
	if c.ShouldFlush() {
		t.Error("flush-worthiness should reset after flush")
	}
	// Entries stay resident.
	if c.Len() != 2 {
		t.Errorf("len after flush: got %d, want 2", c.Len())
	}
}

func TestCacheFlushKeepsReDirtiedEntries(t *testing.T) {
	c := newWidgetCache(100, time.Hour)
	c.Put("a", &widget{Count: 1})

	n, err := c.Flush(context.Background(), func(_ context.Context, _ string, _ []cache.Record) error {
		// Concurrent mutation while the store write is in flight.
		c.Put("a", &widget{Count: 2})
		return nil
	})
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n != 1 {
		t.Fatalf("flushed: got %d, want 1", n)
	}
	if c.DirtyCount() != 1 {
		t.Errorf("entry re-dirtied during flush must stay dirty: got %d dirty, want 1", c.DirtyCount())
	}
}

func TestCacheFlushErrorKeepsDirty(t *testing.T) {
	c := newWidgetCache(100, time.Hour)
	c.Put("a", &widget{})

	writeErr := errors.New("store down")
	_, err := c.Flush(context.Background(), func(_ context.Context, _ string, _ []cache.Record) error {
		return writeErr
	})
	if !errors.Is(err, writeErr) {
		t.Fatalf("flush error: got %v, want %v", err, writeErr)
	}
	if c.DirtyCount() != 1 {
		t.Errorf("dirty after failed flush: got %d, want 1", c.DirtyCount())
	}
}

func TestCacheHydrateNotDirty(t *testing.T) {
	c := newWidgetCache(100, time.Hour)

	data, _ := json.Marshal(&widget{Name: "a", Count: 5})
	if err := c.Hydrate("a", data); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	got, ok := c.Get("a")
	if !ok || got.Count != 5 {
		t.Fatalf("hydrated entity missing or wrong: %+v", got)
	}
	if c.DirtyCount() != 0 {
		t.Errorf("hydration must not mark entries dirty: got %d", c.DirtyCount())
	}
}

func TestRegistryHydrate(t *testing.T) {
	reg := cache.NewRegistry(cache.DefaultConfig())

	src := scannerFunc(func(_ context.Context, kind string, fn func(string, []byte) error) error {
		if kind != cache.KindAccount {
			return nil
		}
		return fn("acc-1", []byte(`{"key":"acc-1","available_balance":"21.21","frozen_balance":"0"}`))
	})

	if err := reg.Hydrate(context.Background(), src); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	acct, ok := reg.Accounts.Get("acc-1")
	if !ok {
		t.Fatal("hydrated account missing")
	}
	if got := acct.AvailableBalance.String(); got != "21.21" {
		t.Errorf("available: got %s, want 21.21", got)
	}
}

type scannerFunc func(ctx context.Context, kind string, fn func(key string, value []byte) error) error

func (f scannerFunc) ScanKind(ctx context.Context, kind string, fn func(key string, value []byte) error) error {
	return f(ctx, kind, fn)
}
