package core

import (
	"fmt"

	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

func (d *Dispatcher) processWithdrawalCreate(e *event.WithdrawalCreate) *Result {
	res := newResult(e)
	switch {
	case e.WithdrawalID == "":
		return res.fail(ErrKindValidation, "withdrawalId is required")
	case e.AccountKey == "":
		return res.fail(ErrKindValidation, "accountKey is required")
	case !e.Amount.IsPositive():
		return res.fail(ErrKindValidation, "amount must be positive")
	case e.Fee.IsNegative():
		return res.fail(ErrKindValidation, "fee must not be negative")
	}

	if existing, ok := d.caches.Withdrawals.Get(e.WithdrawalID); ok {
		res.Withdrawal = existing
		res.Note = "withdrawal already recorded"
		if existing.Status == entity.StatusFailed {
			return res.fail(ErrKindBusinessRule, existing.StatusExplanation)
		}
		return res
	}

	now := eventTime(e.Timestamp)
	wd := &entity.CoinWithdrawal{
		ID:                  e.WithdrawalID,
		AccountKey:          e.AccountKey,
		RecipientAccountKey: e.RecipientAccountKey,
		Amount:              e.Amount,
		Fee:                 e.Fee,
		Status:              entity.StatusPending,
		Verified:            e.Verified,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	acct, ok := d.caches.Accounts.Get(e.AccountKey)
	if !ok {
		wd.Status = entity.StatusFailed
		wd.StatusExplanation = fmt.Sprintf("account %s not found", e.AccountKey)
		d.caches.Withdrawals.Put(wd.ID, wd)
		res.Withdrawal = wd
		return res.fail(ErrKindBusinessRule, wd.StatusExplanation)
	}

	total := wd.TotalDeduction()
	if e.Verified && acct.AvailableBalance.LessThan(total) {
		wd.Status = entity.StatusFailed
		wd.StatusExplanation = fmt.Sprintf("insufficient available balance: have %s, need %s",
			acct.AvailableBalance, total)
		d.caches.Withdrawals.Put(wd.ID, wd)
		res.Withdrawal = wd
		return res.fail(ErrKindBusinessRule, wd.StatusExplanation)
	}

	beforeAvailable, beforeFrozen := acct.AvailableBalance, acct.FrozenBalance
	updated := acct.Clone()
	if e.Verified {
		updated.AvailableBalance = updated.AvailableBalance.Sub(total)
		updated.FrozenBalance = updated.FrozenBalance.Add(total)
		wd.FundsFrozen = true
	}
	updated.Version++
	updated.UpdatedAt = now
	d.caches.Accounts.Put(updated.Key, updated)

	wd.Status = entity.StatusProcessing
	d.caches.Withdrawals.Put(wd.ID, wd)

	res.Account = updated
	res.Withdrawal = wd
	d.recordHistory(res, updated, beforeAvailable, beforeFrozen, wd.ID, e.Operation().String(), now)

	d.logger.Info().
		Str("withdrawal_id", wd.ID).
		Str("account_key", acct.Key).
		Str("amount", e.Amount.String()).
		Str("fee", e.Fee.String()).
		Bool("funds_frozen", wd.FundsFrozen).
		Msg("withdrawal accepted")
	return res
}

// processWithdrawalReleasing settles a processing withdrawal: the frozen
// total (amount plus fee) leaves the sender, and when a recipient key is
// present the recipient is credited the amount only. The fee is retained
// by the exchange. All lookups happen before any cache write so a failure
// leaves every balance untouched.
func (d *Dispatcher) processWithdrawalReleasing(e *event.WithdrawalReleasing) *Result {
	res := newResult(e)
	if e.WithdrawalID == "" {
		return res.fail(ErrKindValidation, "withdrawalId is required")
	}

	wd, ok := d.caches.Withdrawals.Get(e.WithdrawalID)
	if !ok {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("withdrawal %s not found", e.WithdrawalID))
	}
	res.Withdrawal = wd
	if wd.Status.Terminal() {
		res.Note = "withdrawal already settled"
		if wd.Status != entity.StatusCompleted {
			return res.fail(ErrKindBusinessRule,
				fmt.Sprintf("withdrawal %s is %s and cannot be released", wd.ID, wd.Status))
		}
		return res
	}
	if wd.Status != entity.StatusProcessing {
		return res.fail(ErrKindBusinessRule,
			fmt.Sprintf("withdrawal %s is %s, expected %s", wd.ID, wd.Status, entity.StatusProcessing))
	}

	acct, ok := d.caches.Accounts.Get(wd.AccountKey)
	if !ok {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("account %s not found", wd.AccountKey))
	}
	total := wd.TotalDeduction()
	if wd.FundsFrozen && acct.FrozenBalance.LessThan(total) {
		return res.fail(ErrKindBusinessRule,
			fmt.Sprintf("frozen balance %s below withdrawal total %s", acct.FrozenBalance, total))
	}

	var recipient *entity.Account
	if wd.RecipientAccountKey != "" {
		recipient, ok = d.caches.Accounts.Get(wd.RecipientAccountKey)
		if !ok {
			return res.fail(ErrKindBusinessRule,
				fmt.Sprintf("recipient account %s not found", wd.RecipientAccountKey))
		}
	}

	now := eventTime(e.Timestamp)

	beforeAvailable, beforeFrozen := acct.AvailableBalance, acct.FrozenBalance
	updated := acct.Clone()
	if wd.FundsFrozen {
		updated.FrozenBalance = updated.FrozenBalance.Sub(total)
	}
	updated.Version++
	updated.UpdatedAt = now
	d.caches.Accounts.Put(updated.Key, updated)
	res.Account = updated
	d.recordHistory(res, updated, beforeAvailable, beforeFrozen, wd.ID, e.Operation().String(), now)

	if recipient != nil {
		recBeforeAvailable, recBeforeFrozen := recipient.AvailableBalance, recipient.FrozenBalance
		recUpdated := recipient.Clone()
		recUpdated.AvailableBalance = recUpdated.AvailableBalance.Add(wd.Amount)
		recUpdated.Version++
		recUpdated.UpdatedAt = now
		d.caches.Accounts.Put(recUpdated.Key, recUpdated)
		res.RecipientAccount = recUpdated
		d.recordHistory(res, recUpdated, recBeforeAvailable, recBeforeFrozen, wd.ID, e.Operation().String(), now)
	}

	settled := wd.Clone()
	settled.Status = entity.StatusCompleted
	settled.UpdatedAt = now
	d.caches.Withdrawals.Put(settled.ID, settled)
	res.Withdrawal = settled

	d.logger.Info().
		Str("withdrawal_id", wd.ID).
		Str("account_key", wd.AccountKey).
		Str("recipient", wd.RecipientAccountKey).
		Msg("withdrawal released")
	return res
}

// terminateWithdrawal handles the failed and cancelled transitions, which
// differ only in the terminal status. Funds are returned to available only
// when this withdrawal actually froze them.
func (d *Dispatcher) terminateWithdrawal(evt event.Event, withdrawalID, reason string, status entity.Status) *Result {
	res := newResult(evt)
	if withdrawalID == "" {
		return res.fail(ErrKindValidation, "withdrawalId is required")
	}

	wd, ok := d.caches.Withdrawals.Get(withdrawalID)
	if !ok {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("withdrawal %s not found", withdrawalID))
	}
	res.Withdrawal = wd
	if wd.Status.Terminal() {
		if wd.Status == status {
			res.Note = fmt.Sprintf("withdrawal already %s", status)
			return res
		}
		return res.fail(ErrKindBusinessRule,
			fmt.Sprintf("withdrawal %s is %s and cannot transition to %s", wd.ID, wd.Status, status))
	}

	acct, ok := d.caches.Accounts.Get(wd.AccountKey)
	if !ok {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("account %s not found", wd.AccountKey))
	}

	now := eventTime(evtTimestamp(evt))

	terminal := wd.Clone()
	terminal.Status = status
	terminal.StatusExplanation = reason
	terminal.UpdatedAt = now

	beforeAvailable, beforeFrozen := acct.AvailableBalance, acct.FrozenBalance
	updated := acct.Clone()
	if wd.FundsFrozen {
		total := wd.TotalDeduction()
		updated.AvailableBalance = updated.AvailableBalance.Add(total)
		updated.FrozenBalance = updated.FrozenBalance.Sub(total)
		terminal.FundsFrozen = false
	}
	updated.Version++
	updated.UpdatedAt = now
	d.caches.Accounts.Put(updated.Key, updated)
	d.caches.Withdrawals.Put(terminal.ID, terminal)

	res.Account = updated
	res.Withdrawal = terminal
	d.recordHistory(res, updated, beforeAvailable, beforeFrozen, wd.ID, evt.Operation().String(), now)

	d.logger.Info().
		Str("withdrawal_id", wd.ID).
		Str("status", string(status)).
		Str("reason", reason).
		Msg("withdrawal terminated")
	return res
}
