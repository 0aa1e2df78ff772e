package event

import "github.com/shopspring/decimal"

// DepositCreate credits an account's available balance.
// DepositID is the business identifier: replays with the same id after the
// deposit reached a terminal status are no-ops.
type DepositCreate struct {
	Base
	DepositID  string
	AccountKey string
	Amount     decimal.Decimal
}

func (e *DepositCreate) Operation() Operation { return OpCoinDepositCreate }

// WithdrawalCreate opens a withdrawal and, when Verified, freezes
// amount+fee on the source account.
type WithdrawalCreate struct {
	Base
	WithdrawalID        string
	AccountKey          string
	RecipientAccountKey string
	Amount              decimal.Decimal
	Fee                 decimal.Decimal
	Verified            bool
}

func (e *WithdrawalCreate) Operation() Operation { return OpCoinWithdrawalCreate }

// WithdrawalReleasing completes a processing withdrawal: the frozen
// amount+fee leaves the sender, and the recipient (if any) is credited
// with the amount only.
type WithdrawalReleasing struct {
	Base
	WithdrawalID string
}

func (e *WithdrawalReleasing) Operation() Operation { return OpCoinWithdrawalReleasing }

// WithdrawalFailed reverses the freeze and marks the withdrawal failed.
type WithdrawalFailed struct {
	Base
	WithdrawalID string
	Reason       string
}

func (e *WithdrawalFailed) Operation() Operation { return OpCoinWithdrawalFailed }

// WithdrawalCancelled reverses the freeze and marks the withdrawal cancelled.
type WithdrawalCancelled struct {
	Base
	WithdrawalID string
	Reason       string
}

func (e *WithdrawalCancelled) Operation() Operation { return OpCoinWithdrawalCancelled }
