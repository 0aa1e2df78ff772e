package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a user's coin account. Available and frozen balances are
// exact decimals and individually never negative; freeze/unfreeze mutations
// are always paired so available+frozen is conserved.
type Account struct {
	Key              string          `json:"key"`
	AvailableBalance decimal.Decimal `json:"available_balance"`
	FrozenBalance    decimal.Decimal `json:"frozen_balance"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NewAccount creates an account with zero balances.
func NewAccount(key string, now time.Time) *Account {
	return &Account{
		Key:              key,
		AvailableBalance: decimal.Zero,
		FrozenBalance:    decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// TotalBalance returns available + frozen.
func (a *Account) TotalBalance() decimal.Decimal {
	return a.AvailableBalance.Add(a.FrozenBalance)
}

// Clone returns a copy safe to mutate while readers still hold the original.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
