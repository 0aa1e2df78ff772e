package event

import "github.com/shopspring/decimal"

// AmmPoolCreate creates an AMM pool for a trading pair. A pool for an
// existing pair is an error; the pair is the pool's unique key.
type AmmPoolCreate struct {
	Base
	Pair                  string
	FeePercentage         decimal.Decimal
	ProtocolFeePercentage decimal.Decimal
	InitPrice             decimal.Decimal
}

func (e *AmmPoolCreate) Operation() Operation { return OpAmmPoolCreate }

// AmmPoolUpdate updates a pool in place. Nil pointer fields are "leave
// unchanged"; an update that changes nothing is a successful no-op.
type AmmPoolUpdate struct {
	Base
	Pair                  string
	Active                *bool
	FeePercentage         *decimal.Decimal
	ProtocolFeePercentage *decimal.Decimal
	InitPrice             *decimal.Decimal
}

func (e *AmmPoolUpdate) Operation() Operation { return OpAmmPoolUpdate }

// AmmPositionCreate mints liquidity between two ticks of an existing pool.
type AmmPositionCreate struct {
	Base
	PositionID      string
	Pair            string
	OwnerAccountKey string
	TickLower       int32
	TickUpper       int32
	Liquidity       decimal.Decimal
}

func (e *AmmPositionCreate) Operation() Operation { return OpAmmPositionCreate }

// AmmPositionCollectFee drains a position's accumulated owed fees.
type AmmPositionCollectFee struct {
	Base
	PositionID string
}

func (e *AmmPositionCollectFee) Operation() Operation { return OpAmmPositionCollectFee }

// AmmPositionClose burns a position's liquidity and closes it.
type AmmPositionClose struct {
	Base
	PositionID string
}

func (e *AmmPositionClose) Operation() Operation { return OpAmmPositionClose }
