package core

import (
	"fmt"

	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

func (d *Dispatcher) processDepositCreate(e *event.DepositCreate) *Result {
	res := newResult(e)
	switch {
	case e.DepositID == "":
		return res.fail(ErrKindValidation, "depositId is required")
	case e.AccountKey == "":
		return res.fail(ErrKindValidation, "accountKey is required")
	case !e.Amount.IsPositive():
		return res.fail(ErrKindValidation, "amount must be positive")
	}

	if existing, ok := d.caches.Deposits.Get(e.DepositID); ok {
		res.Deposit = existing
		res.Note = "deposit already recorded"
		if existing.Status == entity.StatusFailed {
			return res.fail(ErrKindBusinessRule, existing.StatusExplanation)
		}
		return res
	}

	now := eventTime(e.Timestamp)
	dep := &entity.CoinDeposit{
		ID:         e.DepositID,
		AccountKey: e.AccountKey,
		Amount:     e.Amount,
		Status:     entity.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	acct, ok := d.caches.Accounts.Get(e.AccountKey)
	if !ok {
		// The failed deposit is persisted so the failure is queryable
		// and a replay resolves to the same answer.
		dep.Status = entity.StatusFailed
		dep.StatusExplanation = fmt.Sprintf("account %s not found", e.AccountKey)
		d.caches.Deposits.Put(dep.ID, dep)
		res.Deposit = dep
		return res.fail(ErrKindBusinessRule, dep.StatusExplanation)
	}

	beforeAvailable, beforeFrozen := acct.AvailableBalance, acct.FrozenBalance
	updated := acct.Clone()
	updated.AvailableBalance = updated.AvailableBalance.Add(e.Amount)
	updated.Version++
	updated.UpdatedAt = now
	d.caches.Accounts.Put(updated.Key, updated)

	dep.Status = entity.StatusCompleted
	d.caches.Deposits.Put(dep.ID, dep)

	res.Account = updated
	res.Deposit = dep
	d.recordHistory(res, updated, beforeAvailable, beforeFrozen, dep.ID, e.Operation().String(), now)

	d.logger.Info().
		Str("deposit_id", dep.ID).
		Str("account_key", acct.Key).
		Str("amount", e.Amount.String()).
		Msg("deposit completed")
	return res
}
