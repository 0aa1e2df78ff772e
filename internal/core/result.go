package core

import (
	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

// ErrorKind classifies why an event failed.
type ErrorKind string

const (
	ErrKindNone         ErrorKind = ""
	ErrKindValidation   ErrorKind = "validation"
	ErrKindBusinessRule ErrorKind = "business_rule"
	ErrKindUnexpected   ErrorKind = "unexpected"
)

// Result is the aggregate outcome of applying one event: the entities the
// processor touched plus success/error status. It is owned by the
// processor that built it and read-only afterwards; the output sink
// serializes it into the outbound notification.
type Result struct {
	EventID      string
	Operation    event.Operation
	Success      bool
	ErrorKind    ErrorKind
	ErrorMessage string

	// Note carries a human-readable remark for successful no-ops
	// (existing account, unchanged pool update, ...).
	Note string

	Account          *entity.Account
	RecipientAccount *entity.Account
	Deposit          *entity.CoinDeposit
	Withdrawal       *entity.CoinWithdrawal
	BalanceLock      *entity.BalanceLock
	AmmPool          *entity.AmmPool
	AmmPosition      *entity.AmmPosition
	Histories        []*entity.AccountHistory
}

func newResult(evt event.Event) *Result {
	return &Result{
		EventID:   evt.EventID(),
		Operation: evt.Operation(),
		Success:   true,
	}
}

func (r *Result) fail(kind ErrorKind, msg string) *Result {
	r.Success = false
	r.ErrorKind = kind
	r.ErrorMessage = msg
	return r
}

// Outcome returns the metrics label for this result.
func (r *Result) Outcome() string {
	if r.Success {
		return "success"
	}
	return "error"
}
