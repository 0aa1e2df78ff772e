package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

func (d *Dispatcher) processAmmPositionCreate(e *event.AmmPositionCreate) *Result {
	res := newResult(e)
	switch {
	case e.PositionID == "":
		return res.fail(ErrKindValidation, "positionId is required")
	case e.Pair == "":
		return res.fail(ErrKindValidation, "pair is required")
	case !e.Liquidity.IsPositive():
		return res.fail(ErrKindValidation, "liquidity must be positive")
	case e.TickLower >= e.TickUpper:
		return res.fail(ErrKindValidation,
			fmt.Sprintf("tickLower %d must be below tickUpper %d", e.TickLower, e.TickUpper))
	}

	pool, ok := d.caches.AmmPools.Get(e.Pair)
	if !ok {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("pool %s not found", e.Pair))
	}

	if existing, ok := d.caches.AmmPositions.Get(e.PositionID); ok {
		res.AmmPosition = existing
		res.Note = "position already exists"
		return res
	}

	now := eventTime(e.Timestamp)
	d.addTickLiquidity(e.Pair, e.TickLower, e.Liquidity, now)
	d.addTickLiquidity(e.Pair, e.TickUpper, e.Liquidity, now)

	pos := &entity.AmmPosition{
		ID:              e.PositionID,
		Pair:            e.Pair,
		OwnerAccountKey: e.OwnerAccountKey,
		TickLower:       e.TickLower,
		TickUpper:       e.TickUpper,
		Liquidity:       e.Liquidity,
		TokensOwed0:     decimal.Zero,
		TokensOwed1:     decimal.Zero,
		Status:          entity.PositionStatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	d.caches.AmmPositions.Put(pos.ID, pos)

	res.AmmPosition = pos
	res.AmmPool = pool
	d.logger.Info().
		Str("position_id", pos.ID).
		Str("pair", pos.Pair).
		Int32("tick_lower", pos.TickLower).
		Int32("tick_upper", pos.TickUpper).
		Str("liquidity", pos.Liquidity.String()).
		Msg("amm position opened")
	return res
}

// processAmmPositionCollectFee drains the position's accumulated fees.
// When nothing is owed the position is acknowledged untouched.
func (d *Dispatcher) processAmmPositionCollectFee(e *event.AmmPositionCollectFee) *Result {
	res := newResult(e)
	if e.PositionID == "" {
		return res.fail(ErrKindValidation, "positionId is required")
	}

	pos, ok := d.caches.AmmPositions.Get(e.PositionID)
	if !ok {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("position %s not found", e.PositionID))
	}
	res.AmmPosition = pos
	if pos.Status != entity.PositionStatusOpen {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("position %s is %s", pos.ID, pos.Status))
	}

	if pos.TokensOwed0.IsZero() && pos.TokensOwed1.IsZero() {
		res.Note = "no fees to collect"
		return res
	}

	collected0, collected1 := pos.TokensOwed0, pos.TokensOwed1
	updated := pos.Clone()
	updated.TokensOwed0 = decimal.Zero
	updated.TokensOwed1 = decimal.Zero
	updated.UpdatedAt = eventTime(e.Timestamp)
	d.caches.AmmPositions.Put(updated.ID, updated)

	res.AmmPosition = updated
	res.Note = fmt.Sprintf("collected fees: %s / %s", collected0, collected1)
	d.logger.Info().
		Str("position_id", pos.ID).
		Str("collected0", collected0.String()).
		Str("collected1", collected1.String()).
		Msg("amm position fees collected")
	return res
}

// processAmmPositionClose removes the position's liquidity from both bound
// ticks and clears their bitmap bits when gross liquidity returns to zero.
// Tick state is validated before any write.
func (d *Dispatcher) processAmmPositionClose(e *event.AmmPositionClose) *Result {
	res := newResult(e)
	if e.PositionID == "" {
		return res.fail(ErrKindValidation, "positionId is required")
	}

	pos, ok := d.caches.AmmPositions.Get(e.PositionID)
	if !ok {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("position %s not found", e.PositionID))
	}
	res.AmmPosition = pos
	if pos.Status == entity.PositionStatusClosed {
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("position %s already closed", pos.ID))
	}

	for _, idx := range []int32{pos.TickLower, pos.TickUpper} {
		tick, ok := d.caches.Ticks.Get(entity.TickKey(pos.Pair, idx))
		if !ok || tick.LiquidityGross.LessThan(pos.Liquidity) {
			return res.fail(ErrKindBusinessRule,
				fmt.Sprintf("tick %d of pool %s holds less gross liquidity than position %s",
					idx, pos.Pair, pos.ID))
		}
	}

	now := eventTime(e.Timestamp)
	d.removeTickLiquidity(pos.Pair, pos.TickLower, pos.Liquidity, now)
	d.removeTickLiquidity(pos.Pair, pos.TickUpper, pos.Liquidity, now)

	updated := pos.Clone()
	updated.Status = entity.PositionStatusClosed
	updated.UpdatedAt = now
	d.caches.AmmPositions.Put(updated.ID, updated)

	res.AmmPosition = updated
	d.logger.Info().Str("position_id", pos.ID).Str("pair", pos.Pair).Msg("amm position closed")
	return res
}

func (d *Dispatcher) addTickLiquidity(pair string, index int32, liquidity decimal.Decimal, now time.Time) {
	key := entity.TickKey(pair, index)
	before := decimal.Zero
	tick, ok := d.caches.Ticks.Get(key)
	if ok {
		before = tick.LiquidityGross
		tick = tick.Clone()
	} else {
		tick = &entity.Tick{Pair: pair, Index: index}
	}
	tick.LiquidityGross = before.Add(liquidity)
	d.caches.Ticks.Put(key, tick)
	d.flipBitmap(pair, index, before, tick.LiquidityGross, now)
}

func (d *Dispatcher) removeTickLiquidity(pair string, index int32, liquidity decimal.Decimal, now time.Time) {
	key := entity.TickKey(pair, index)
	tick, ok := d.caches.Ticks.Get(key)
	if !ok {
		return
	}
	before := tick.LiquidityGross
	updated := tick.Clone()
	updated.LiquidityGross = before.Sub(liquidity)
	d.caches.Ticks.Put(key, updated)
	d.flipBitmap(pair, index, before, updated.LiquidityGross, now)
}

func (d *Dispatcher) flipBitmap(pair string, index int32, before, after decimal.Decimal, now time.Time) {
	bm, ok := d.caches.TickBitmaps.Get(pair)
	if ok {
		bm = bm.Clone()
	} else {
		bm = entity.NewTickBitmap(pair, now)
	}
	if bm.Flip(index, before, after) || !ok {
		bm.UpdatedAt = now
		d.caches.TickBitmaps.Put(pair, bm)
	}
}
