package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountHistory is a write-once audit record of one balance mutation:
// which identifier caused it, the operation, and the balances before and
// after. History rows are never updated after creation.
type AccountHistory struct {
	ID              string          `json:"id"`
	AccountKey      string          `json:"account_key"`
	Identifier      string          `json:"identifier"`
	Operation       string          `json:"operation"`
	AvailableBefore decimal.Decimal `json:"available_before"`
	AvailableAfter  decimal.Decimal `json:"available_after"`
	FrozenBefore    decimal.Decimal `json:"frozen_before"`
	FrozenAfter     decimal.Decimal `json:"frozen_after"`
	CreatedAt       time.Time       `json:"created_at"`
}
