package core

import (
	"fmt"

	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

func (d *Dispatcher) processAmmPoolCreate(e *event.AmmPoolCreate) *Result {
	res := newResult(e)
	switch {
	case e.Pair == "":
		return res.fail(ErrKindValidation, "pair is required")
	case !e.InitPrice.IsPositive():
		return res.fail(ErrKindValidation, "initPrice must be positive")
	case e.FeePercentage.IsNegative() || e.ProtocolFeePercentage.IsNegative():
		return res.fail(ErrKindValidation, "fee percentages must not be negative")
	}

	if existing, ok := d.caches.AmmPools.Get(e.Pair); ok {
		// The live pool rides along on the error so the caller can see
		// what it collided with.
		res.AmmPool = existing
		return res.fail(ErrKindBusinessRule, fmt.Sprintf("pool %s already exists", e.Pair))
	}

	now := eventTime(e.Timestamp)
	pool := &entity.AmmPool{
		Pair:                  e.Pair,
		Active:                true,
		FeePercentage:         e.FeePercentage,
		ProtocolFeePercentage: e.ProtocolFeePercentage,
		InitPrice:             e.InitPrice,
		CurrentPrice:          e.InitPrice,
		CurrentTick:           entity.PriceToTick(e.InitPrice),
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	d.caches.AmmPools.Put(pool.Pair, pool)

	if _, ok := d.caches.TickBitmaps.Get(e.Pair); !ok {
		d.caches.TickBitmaps.Put(e.Pair, entity.NewTickBitmap(e.Pair, now))
	}

	res.AmmPool = pool
	d.logger.Info().
		Str("pair", pool.Pair).
		Str("init_price", pool.InitPrice.String()).
		Int32("current_tick", pool.CurrentTick).
		Msg("amm pool created")
	return res
}

// processAmmPoolUpdate loads the pool, or constructs an inactive default
// when the pair is unknown, then applies only the fields present in the
// event and only when they differ from the stored value. An update that
// changes nothing is acknowledged without rewriting the pool.
func (d *Dispatcher) processAmmPoolUpdate(e *event.AmmPoolUpdate) *Result {
	res := newResult(e)
	if e.Pair == "" {
		return res.fail(ErrKindValidation, "pair is required")
	}

	now := eventTime(e.Timestamp)
	var updated *entity.AmmPool
	created := false
	if pool, ok := d.caches.AmmPools.Get(e.Pair); ok {
		updated = pool.Clone()
	} else {
		updated = &entity.AmmPool{Pair: e.Pair, CreatedAt: now}
		created = true
	}
	changed := false

	if e.Active != nil && *e.Active != updated.Active {
		updated.Active = *e.Active
		changed = true
	}
	if e.FeePercentage != nil && !e.FeePercentage.Equal(updated.FeePercentage) {
		if e.FeePercentage.IsNegative() {
			return res.fail(ErrKindValidation, "feePercentage must not be negative")
		}
		updated.FeePercentage = *e.FeePercentage
		changed = true
	}
	if e.ProtocolFeePercentage != nil && !e.ProtocolFeePercentage.Equal(updated.ProtocolFeePercentage) {
		if e.ProtocolFeePercentage.IsNegative() {
			return res.fail(ErrKindValidation, "protocolFeePercentage must not be negative")
		}
		updated.ProtocolFeePercentage = *e.ProtocolFeePercentage
		changed = true
	}
	if e.InitPrice != nil && !e.InitPrice.Equal(updated.InitPrice) {
		if !e.InitPrice.IsPositive() {
			return res.fail(ErrKindValidation, "initPrice must be positive")
		}
		updated.InitPrice = *e.InitPrice
		updated.CurrentPrice = *e.InitPrice
		updated.CurrentTick = entity.PriceToTick(*e.InitPrice)
		changed = true
	}

	if !changed && !created {
		res.AmmPool = updated
		res.Note = "no changes detected"
		return res
	}

	updated.UpdatedAt = now
	d.caches.AmmPools.Put(updated.Pair, updated)
	if created {
		if _, ok := d.caches.TickBitmaps.Get(e.Pair); !ok {
			d.caches.TickBitmaps.Put(e.Pair, entity.NewTickBitmap(e.Pair, now))
		}
	}
	res.AmmPool = updated

	d.logger.Info().Str("pair", updated.Pair).Bool("constructed", created).Msg("amm pool updated")
	return res
}
