package core

import (
	"github.com/shopspring/decimal"

	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

// historyOpCreateAccount is the operation recorded on the history row for
// a fresh account, distinct from the wire operation name.
const historyOpCreateAccount = "create_new_account"

func (d *Dispatcher) processAccountCreate(e *event.AccountCreate) *Result {
	res := newResult(e)
	if e.AccountKey == "" {
		return res.fail(ErrKindValidation, "accountKey is required")
	}

	if existing, ok := d.caches.Accounts.Get(e.AccountKey); ok {
		// Replayed create: return the live account without touching it.
		res.Account = existing
		res.Note = "account already exists"
		return res
	}

	now := eventTime(e.Timestamp)
	acct := entity.NewAccount(e.AccountKey, now)
	d.caches.Accounts.Put(acct.Key, acct)
	res.Account = acct
	d.recordHistory(res, acct, decimal.Zero, decimal.Zero, acct.Key, historyOpCreateAccount, now)

	d.logger.Info().Str("account_key", acct.Key).Msg("account created")
	return res
}
