package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position lifecycle states.
const (
	PositionStatusOpen   = "open"
	PositionStatusClosed = "closed"
)

// AmmPosition is a liquidity position between two ticks of a pool.
// TokensOwed accumulate fees owed to the owner and are drained by the
// collect-fee operation.
type AmmPosition struct {
	ID              string          `json:"id"`
	Pair            string          `json:"pair"`
	OwnerAccountKey string          `json:"owner_account_key"`
	TickLower       int32           `json:"tick_lower"`
	TickUpper       int32           `json:"tick_upper"`
	Liquidity       decimal.Decimal `json:"liquidity"`
	TokensOwed0     decimal.Decimal `json:"tokens_owed0"`
	TokensOwed1     decimal.Decimal `json:"tokens_owed1"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Clone returns a copy safe to mutate while readers still hold the original.
func (p *AmmPosition) Clone() *AmmPosition {
	c := *p
	return &c
}
