package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/persistence"
	"github.com/andt14111999/test-exchange-sub006/internal/testutil"
)

func TestFlusherFinalFlushDrainsAllCaches(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := persistence.NewStore(db)
	caches := cache.NewRegistry(cache.Config{MaxDirty: 1000, MaxAge: time.Hour})
	flusher := persistence.NewFlusher(caches, store, time.Second, zerolog.Nop(), nil)

	now := time.Now()
	caches.Accounts.Put("acc-1", entity.NewAccount("acc-1", now))
	caches.AmmPools.Put("BTC/USDT", &entity.AmmPool{Pair: "BTC/USDT", Active: true, CreatedAt: now})

	if err := flusher.FinalFlush(context.Background()); err != nil {
		t.Fatalf("final flush: %v", err)
	}

	for _, c := range caches.All() {
		if c.DirtyCount() != 0 {
			t.Errorf("cache %s still dirty after final flush", c.Kind())
		}
	}

	if _, err := store.Get(context.Background(), cache.KindAccount, "acc-1"); err != nil {
		t.Errorf("account not persisted: %v", err)
	}
	if _, err := store.Get(context.Background(), cache.KindAmmPool, "BTC/USDT"); err != nil {
		t.Errorf("pool not persisted: %v", err)
	}
}

func TestFlushThenHydrateRoundTrip(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := persistence.NewStore(db)
	ctx := context.Background()

	first := cache.NewRegistry(cache.DefaultConfig())
	acct := entity.NewAccount("acc-1", time.Now())
	acct.Version = 3
	first.Accounts.Put(acct.Key, acct)

	flusher := persistence.NewFlusher(first, store, time.Second, zerolog.Nop(), nil)
	if err := flusher.FinalFlush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	// Cold start: a fresh registry hydrates the same state back.
	second := cache.NewRegistry(cache.DefaultConfig())
	if err := second.Hydrate(ctx, store); err != nil {
		t.Fatalf("hydrate: %v", err)
	}

	got, ok := second.Accounts.Get("acc-1")
	if !ok {
		t.Fatal("hydrated account missing")
	}
	if got.Version != 3 {
		t.Errorf("version: got %d, want 3", got.Version)
	}
	if second.Accounts.DirtyCount() != 0 {
		t.Error("hydrated entries must not be dirty")
	}
}
