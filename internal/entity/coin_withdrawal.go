package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoinWithdrawal tracks one withdrawal transaction. FundsFrozen records
// whether the create step actually applied the freeze: unverified
// withdrawals skip it, and the releasing/failed/cancelled paths must not
// move frozen funds that were never frozen.
type CoinWithdrawal struct {
	ID                  string          `json:"id"`
	AccountKey          string          `json:"account_key"`
	RecipientAccountKey string          `json:"recipient_account_key,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	Fee                 decimal.Decimal `json:"fee"`
	Status              Status          `json:"status"`
	StatusExplanation   string          `json:"status_explanation,omitempty"`
	Verified            bool            `json:"verified"`
	FundsFrozen         bool            `json:"funds_frozen"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TotalDeduction returns amount + fee, the quantity frozen on create and
// removed from the sender on release.
func (w *CoinWithdrawal) TotalDeduction() decimal.Decimal {
	return w.Amount.Add(w.Fee)
}

// Clone returns a copy safe to mutate while readers still hold the original.
func (w *CoinWithdrawal) Clone() *CoinWithdrawal {
	c := *w
	return &c
}
