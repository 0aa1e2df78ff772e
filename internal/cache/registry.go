package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/andt14111999/test-exchange-sub006/internal/entity"
)

// Entity kinds, used as both cache names and persistent-store key prefixes.
const (
	KindAccount        = "account"
	KindCoinDeposit    = "coin_deposit"
	KindCoinWithdrawal = "coin_withdrawal"
	KindBalanceLock    = "balance_lock"
	KindAmmPool        = "amm_pool"
	KindAmmPosition    = "amm_position"
	KindTick           = "tick"
	KindTickBitmap     = "tick_bitmap"
	KindAccountHistory = "account_history"
	KindProcessedEvent = "processed_event"
)

// Config tunes the flush-worthiness predicate shared by all caches.
type Config struct {
	MaxDirty int
	MaxAge   time.Duration
}

// DefaultConfig matches the production flush cadence.
func DefaultConfig() Config {
	return Config{MaxDirty: 500, MaxAge: 5 * time.Second}
}

// Registry holds one cache per entity kind. It is constructed once at
// startup and handed to everything that touches state; there is no
// global registry, so tests build a fresh one each.
type Registry struct {
	Accounts        *Cache[*entity.Account]
	Deposits        *Cache[*entity.CoinDeposit]
	Withdrawals     *Cache[*entity.CoinWithdrawal]
	BalanceLocks    *Cache[*entity.BalanceLock]
	AmmPools        *Cache[*entity.AmmPool]
	AmmPositions    *Cache[*entity.AmmPosition]
	Ticks           *Cache[*entity.Tick]
	TickBitmaps     *Cache[*entity.TickBitmap]
	Histories       *Cache[*entity.AccountHistory]
	ProcessedEvents *Cache[*entity.ProcessedEvent]
}

// NewRegistry constructs all entity caches.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		Accounts:        newJSONCache[*entity.Account](KindAccount, cfg),
		Deposits:        newJSONCache[*entity.CoinDeposit](KindCoinDeposit, cfg),
		Withdrawals:     newJSONCache[*entity.CoinWithdrawal](KindCoinWithdrawal, cfg),
		BalanceLocks:    newJSONCache[*entity.BalanceLock](KindBalanceLock, cfg),
		AmmPools:        newJSONCache[*entity.AmmPool](KindAmmPool, cfg),
		AmmPositions:    newJSONCache[*entity.AmmPosition](KindAmmPosition, cfg),
		Ticks:           newJSONCache[*entity.Tick](KindTick, cfg),
		TickBitmaps:     newJSONCache[*entity.TickBitmap](KindTickBitmap, cfg),
		Histories:       newJSONCache[*entity.AccountHistory](KindAccountHistory, cfg),
		ProcessedEvents: newJSONCache[*entity.ProcessedEvent](KindProcessedEvent, cfg),
	}
}

func newJSONCache[V any](kind string, cfg Config) *Cache[V] {
	return New(kind, cfg.MaxDirty, cfg.MaxAge,
		func(v V) ([]byte, error) { return json.Marshal(v) },
		func(data []byte) (V, error) {
			var v V
			err := json.Unmarshal(data, &v)
			return v, err
		},
	)
}

// All returns every cache as a Flushable, in a stable order.
func (r *Registry) All() []Flushable {
	return []Flushable{
		r.Accounts,
		r.Deposits,
		r.Withdrawals,
		r.BalanceLocks,
		r.AmmPools,
		r.AmmPositions,
		r.Ticks,
		r.TickBitmaps,
		r.Histories,
		r.ProcessedEvents,
	}
}

// Scanner is the slice of the persistent store hydration needs.
type Scanner interface {
	ScanKind(ctx context.Context, kind string, fn func(key string, value []byte) error) error
}

// Hydrate loads every cache from the persistent store. Run before any
// event is dispatched so cold-start state matches the last successful
// flush.
func (r *Registry) Hydrate(ctx context.Context, src Scanner) error {
	for _, c := range r.All() {
		err := src.ScanKind(ctx, c.Kind(), func(key string, value []byte) error {
			return c.Hydrate(key, value)
		})
		if err != nil {
			return fmt.Errorf("hydrate kind %s: %w", c.Kind(), err)
		}
	}
	return nil
}
