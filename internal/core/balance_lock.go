package core

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

// processBalancesLockCreate freezes the full available balance of every
// listed account. Accounts that are missing or already at zero available
// are skipped rather than failing the lock; a lock that captures nothing
// is still created and releasable.
func (d *Dispatcher) processBalancesLockCreate(e *event.BalancesLockCreate) *Result {
	res := newResult(e)
	if len(e.AccountKeys) == 0 {
		return res.fail(ErrKindValidation, "accountKeys must not be empty")
	}

	lockID := e.LockID
	if lockID == "" {
		lockID = uuid.NewString()
	}

	if existing, ok := d.caches.BalanceLocks.Get(lockID); ok {
		res.BalanceLock = existing
		res.Note = "lock already exists"
		return res
	}

	now := eventTime(e.Timestamp)
	lock := &entity.BalanceLock{
		LockID:         lockID,
		AccountKeys:    append([]string(nil), e.AccountKeys...),
		LockedBalances: make(map[string]decimal.Decimal, len(e.AccountKeys)),
		Status:         entity.LockStatusLocked,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	for _, key := range e.AccountKeys {
		acct, ok := d.caches.Accounts.Get(key)
		if !ok || !acct.AvailableBalance.IsPositive() {
			continue
		}

		amount := acct.AvailableBalance
		beforeAvailable, beforeFrozen := acct.AvailableBalance, acct.FrozenBalance
		updated := acct.Clone()
		updated.AvailableBalance = decimal.Zero
		updated.FrozenBalance = updated.FrozenBalance.Add(amount)
		updated.Version++
		updated.UpdatedAt = now
		d.caches.Accounts.Put(updated.Key, updated)

		lock.LockedBalances[key] = amount
		d.recordHistory(res, updated, beforeAvailable, beforeFrozen, lockID, e.Operation().String(), now)
	}

	d.caches.BalanceLocks.Put(lock.LockID, lock)
	res.BalanceLock = lock

	d.logger.Info().
		Str("lock_id", lock.LockID).
		Int("accounts_requested", len(e.AccountKeys)).
		Int("accounts_locked", len(lock.LockedBalances)).
		Msg("balances locked")
	return res
}

// processBalancesLockRelease returns every recorded locked amount to its
// account. Validation runs over all accounts before the first write so a
// release either applies completely or not at all.
func (d *Dispatcher) processBalancesLockRelease(e *event.BalancesLockRelease) *Result {
	res := newResult(e)
	if e.LockID == "" {
		return res.fail(ErrKindValidation, "lockId is required")
	}

	lock, ok := d.caches.BalanceLocks.Get(e.LockID)
	if !ok {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("balance lock %s not found", e.LockID))
	}
	res.BalanceLock = lock
	if lock.Status == entity.LockStatusReleased {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("balance lock %s already released", e.LockID))
	}

	for _, key := range lock.AccountKeys {
		amount, locked := lock.LockedBalances[key]
		if !locked {
			continue
		}
		acct, ok := d.caches.Accounts.Get(key)
		if !ok {
			return res.fail(ErrKindBusinessRule, fmt.Sprintf("account %s not found", key))
		}
		if acct.FrozenBalance.LessThan(amount) {
			return res.fail(ErrKindBusinessRule,
				fmt.Sprintf("account %s frozen balance %s below locked amount %s",
					key, acct.FrozenBalance, amount))
		}
	}

	now := eventTime(e.Timestamp)
	for _, key := range lock.AccountKeys {
		amount, locked := lock.LockedBalances[key]
		if !locked {
			continue
		}
		acct, _ := d.caches.Accounts.Get(key)

		beforeAvailable, beforeFrozen := acct.AvailableBalance, acct.FrozenBalance
		updated := acct.Clone()
		updated.AvailableBalance = updated.AvailableBalance.Add(amount)
		updated.FrozenBalance = updated.FrozenBalance.Sub(amount)
		updated.Version++
		updated.UpdatedAt = now
		d.caches.Accounts.Put(updated.Key, updated)
		d.recordHistory(res, updated, beforeAvailable, beforeFrozen, lock.LockID, e.Operation().String(), now)
	}

	released := lock.Clone()
	released.Status = entity.LockStatusReleased
	released.UpdatedAt = now
	d.caches.BalanceLocks.Put(released.LockID, released)
	res.BalanceLock = released

	d.logger.Info().
		Str("lock_id", lock.LockID).
		Int("accounts_released", len(lock.LockedBalances)).
		Msg("balances released")
	return res
}
