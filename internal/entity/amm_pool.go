package entity

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// AmmPool is a concentrated-liquidity pool, one per trading pair.
type AmmPool struct {
	Pair                  string          `json:"pair"`
	Active                bool            `json:"active"`
	FeePercentage         decimal.Decimal `json:"fee_percentage"`
	ProtocolFeePercentage decimal.Decimal `json:"protocol_fee_percentage"`
	InitPrice             decimal.Decimal `json:"init_price"`
	CurrentPrice          decimal.Decimal `json:"current_price"`
	CurrentTick           int32           `json:"current_tick"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// Clone returns a copy safe to mutate while readers still hold the original.
func (p *AmmPool) Clone() *AmmPool {
	c := *p
	return &c
}

// tickBase is the price ratio between two adjacent ticks.
const tickBase = 1.0001

// PriceToTick returns the tick index whose price is the largest tick price
// not exceeding the given price: floor(log_1.0001(price)). A non-positive
// price maps to tick 0.
func PriceToTick(price decimal.Decimal) int32 {
	f, _ := price.Float64()
	if f <= 0 {
		return 0
	}
	return int32(math.Floor(math.Log(f) / math.Log(tickBase)))
}
