package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// LockStatus is the lifecycle state of a balance lock.
type LockStatus string

const (
	LockStatusLocked   LockStatus = "LOCKED"
	LockStatusReleased LockStatus = "RELEASED"
)

// BalanceLock freezes a snapshot of multiple accounts' available balances
// under one identifier. LockedBalances maps account key to the amount
// frozen at lock time; accounts with zero available balance are absent.
// A lock is releasable exactly once.
type BalanceLock struct {
	LockID         string                     `json:"lock_id"`
	AccountKeys    []string                   `json:"account_keys"`
	LockedBalances map[string]decimal.Decimal `json:"locked_balances"`
	Status         LockStatus                 `json:"status"`
	CreatedAt      time.Time                  `json:"created_at"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// Clone returns a deep copy safe to mutate while readers still hold the
// original.
func (l *BalanceLock) Clone() *BalanceLock {
	c := *l
	c.AccountKeys = append([]string(nil), l.AccountKeys...)
	c.LockedBalances = make(map[string]decimal.Decimal, len(l.LockedBalances))
	for k, v := range l.LockedBalances {
		c.LockedBalances[k] = v
	}
	return &c
}
