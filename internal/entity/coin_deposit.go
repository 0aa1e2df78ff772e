package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// CoinDeposit is the immutable-identifier record of one deposit transaction.
// It is created on the first event referencing its id and always persisted,
// including on failure paths, so the financial record shows attempted
// transactions even when no balance moved.
type CoinDeposit struct {
	ID                string          `json:"id"`
	AccountKey        string          `json:"account_key"`
	Amount            decimal.Decimal `json:"amount"`
	Status            Status          `json:"status"`
	StatusExplanation string          `json:"status_explanation,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Clone returns a copy safe to mutate while readers still hold the original.
func (d *CoinDeposit) Clone() *CoinDeposit {
	c := *d
	return &c
}
