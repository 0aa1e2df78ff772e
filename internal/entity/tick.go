package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tick records the gross liquidity referencing one tick index of a pool.
// Gross liquidity crossing zero in either direction flips the pool's
// tick bitmap.
type Tick struct {
	Pair           string          `json:"pair"`
	Index          int32           `json:"index"`
	LiquidityGross decimal.Decimal `json:"liquidity_gross"`
}

// TickKey is the cache/store key for a (pair, tick index) pair.
func TickKey(pair string, index int32) string {
	return fmt.Sprintf("%s:%d", pair, index)
}

// Key returns the tick's cache/store key.
func (t *Tick) Key() string {
	return TickKey(t.Pair, t.Index)
}

// Clone returns a copy safe to mutate while readers still hold the original.
func (t *Tick) Clone() *Tick {
	c := *t
	return &c
}
