package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
	"github.com/andt14111999/test-exchange-sub006/internal/entity"
)

// ErrNotFound is returned when the requested entity is not in memory.
// Caches hold the full working set after hydration, so a miss here means
// the entity does not exist.
var ErrNotFound = errors.New("not found")

// Service is the read-only view over the entity caches. It runs on the
// query path, never mutates, and sees each entity exactly as the dispatch
// loop last published it.
type Service struct {
	caches *cache.Registry
}

func NewService(caches *cache.Registry) *Service {
	return &Service{caches: caches}
}

// GetAccount returns one account by key.
func (s *Service) GetAccount(key string) (*entity.Account, error) {
	acct, ok := s.caches.Accounts.Get(key)
	if !ok {
		return nil, fmt.Errorf("account %s: %w", key, ErrNotFound)
	}
	return acct, nil
}

// GetDeposit returns one deposit by id.
func (s *Service) GetDeposit(id string) (*entity.CoinDeposit, error) {
	dep, ok := s.caches.Deposits.Get(id)
	if !ok {
		return nil, fmt.Errorf("deposit %s: %w", id, ErrNotFound)
	}
	return dep, nil
}

// GetWithdrawal returns one withdrawal by id.
func (s *Service) GetWithdrawal(id string) (*entity.CoinWithdrawal, error) {
	wd, ok := s.caches.Withdrawals.Get(id)
	if !ok {
		return nil, fmt.Errorf("withdrawal %s: %w", id, ErrNotFound)
	}
	return wd, nil
}

// GetBalanceLock returns one balance lock by id.
func (s *Service) GetBalanceLock(id string) (*entity.BalanceLock, error) {
	lock, ok := s.caches.BalanceLocks.Get(id)
	if !ok {
		return nil, fmt.Errorf("balance lock %s: %w", id, ErrNotFound)
	}
	return lock, nil
}

// GetPool returns one AMM pool by pair.
func (s *Service) GetPool(pair string) (*entity.AmmPool, error) {
	pool, ok := s.caches.AmmPools.Get(pair)
	if !ok {
		return nil, fmt.Errorf("pool %s: %w", pair, ErrNotFound)
	}
	return pool, nil
}

// GetPosition returns one AMM position by id.
func (s *Service) GetPosition(id string) (*entity.AmmPosition, error) {
	pos, ok := s.caches.AmmPositions.Get(id)
	if !ok {
		return nil, fmt.Errorf("position %s: %w", id, ErrNotFound)
	}
	return pos, nil
}

// PoolLiquiditySummary describes the initialized ticks of one pool.
type PoolLiquiditySummary struct {
	Pair             string          `json:"pair"`
	InitializedTicks int             `json:"initializedTicks"`
	ActiveTicks      []int32         `json:"activeTicks"`
	TotalGross       decimal.Decimal `json:"totalGrossLiquidity"`
}

// GetPoolLiquidity summarizes the tick bitmap and per-tick gross liquidity
// of one pool.
func (s *Service) GetPoolLiquidity(pair string) (*PoolLiquiditySummary, error) {
	if _, ok := s.caches.AmmPools.Get(pair); !ok {
		return nil, fmt.Errorf("pool %s: %w", pair, ErrNotFound)
	}

	summary := &PoolLiquiditySummary{Pair: pair, TotalGross: decimal.Zero}

	bm, ok := s.caches.TickBitmaps.Get(pair)
	if ok {
		summary.InitializedTicks = bm.SetBits()
		for word, bits := range bm.Words {
			for bit := int32(0); bit < 64; bit++ {
				if bits&(1<<uint(bit)) != 0 {
					summary.ActiveTicks = append(summary.ActiveTicks, word*64+bit)
				}
			}
		}
	}
	sort.Slice(summary.ActiveTicks, func(i, j int) bool {
		return summary.ActiveTicks[i] < summary.ActiveTicks[j]
	})

	for _, idx := range summary.ActiveTicks {
		if tick, ok := s.caches.Ticks.Get(entity.TickKey(pair, idx)); ok {
			summary.TotalGross = summary.TotalGross.Add(tick.LiquidityGross)
		}
	}
	return summary, nil
}

// AccountHistoryPage is a chronological slice of one account's balance
// changes.
type AccountHistoryPage struct {
	AccountKey string                   `json:"accountKey"`
	Records    []*entity.AccountHistory `json:"records"`
}

// GetAccountHistory returns up to limit history records for one account,
// oldest first.
func (s *Service) GetAccountHistory(accountKey string, limit int) (*AccountHistoryPage, error) {
	if _, ok := s.caches.Accounts.Get(accountKey); !ok {
		return nil, fmt.Errorf("account %s: %w", accountKey, ErrNotFound)
	}
	if limit <= 0 {
		limit = 100
	}

	page := &AccountHistoryPage{AccountKey: accountKey}
	for _, key := range s.caches.Histories.Keys() {
		h, ok := s.caches.Histories.Get(key)
		if !ok || h.AccountKey != accountKey {
			continue
		}
		page.Records = append(page.Records, h)
	}
	sort.Slice(page.Records, func(i, j int) bool {
		return page.Records[i].CreatedAt.Before(page.Records[j].CreatedAt)
	})
	if len(page.Records) > limit {
		page.Records = page.Records[:limit]
	}
	return page, nil
}
