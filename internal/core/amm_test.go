package core_test

import (
	"testing"

	"github.com/andt14111999/test-exchange-sub006/internal/core"
	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

func createPool(t *testing.T, disp *core.Dispatcher, pair string) {
	t.Helper()
	res := disp.Dispatch(&event.AmmPoolCreate{
		Base:                  base("seed-pool-" + pair),
		Pair:                  pair,
		FeePercentage:         d("0.003"),
		ProtocolFeePercentage: d("0.001"),
		InitPrice:             d("100"),
	})
	if !res.Success {
		t.Fatalf("seed pool %s: %s", pair, res.ErrorMessage)
	}
}

func TestAmmPoolCreate(t *testing.T) {
	disp, caches := newTestDispatcher(t)

	res := disp.Dispatch(&event.AmmPoolCreate{
		Base:                  base("evt-1"),
		Pair:                  "BTC/USDT",
		FeePercentage:         d("0.003"),
		ProtocolFeePercentage: d("0.001"),
		InitPrice:             d("100"),
	})
	if !res.Success {
		t.Fatalf("pool create failed: %s", res.ErrorMessage)
	}
	pool := res.AmmPool
	if !pool.CurrentPrice.Equal(d("100")) {
		t.Errorf("current price: got %s, want 100", pool.CurrentPrice)
	}
	if pool.CurrentTick != entity.PriceToTick(d("100")) {
		t.Errorf("current tick: got %d, want %d", pool.CurrentTick, entity.PriceToTick(d("100")))
	}
	if _, ok := caches.TickBitmaps.Get("BTC/USDT"); !ok {
		t.Error("pool create should initialize an empty tick bitmap")
	}
}

func TestAmmPoolCreateDuplicate(t *testing.T) {
	disp, _ := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")

	res := disp.Dispatch(&event.AmmPoolCreate{
		Base:      base("evt-2"),
		Pair:      "BTC/USDT",
		InitPrice: d("200"),
	})
	if res.Success {
		t.Fatal("duplicate pool create must fail")
	}
	if res.AmmPool == nil {
		t.Fatal("error result should carry the existing pool")
	}
	// Existing pool untouched.
	if !res.AmmPool.InitPrice.Equal(d("100")) {
		t.Errorf("existing init price: got %s, want 100", res.AmmPool.InitPrice)
	}
}

func TestAmmPoolUpdatePartial(t *testing.T) {
	disp, _ := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")

	inactive := false
	newFee := d("0.005")
	res := disp.Dispatch(&event.AmmPoolUpdate{
		Base:          base("evt-2"),
		Pair:          "BTC/USDT",
		Active:        &inactive,
		FeePercentage: &newFee,
	})
	if !res.Success {
		t.Fatalf("pool update failed: %s", res.ErrorMessage)
	}
	if res.AmmPool.Active {
		t.Error("pool should be inactive")
	}
	if !res.AmmPool.FeePercentage.Equal(newFee) {
		t.Errorf("fee: got %s, want %s", res.AmmPool.FeePercentage, newFee)
	}
	// Untouched fields keep their values.
	if !res.AmmPool.ProtocolFeePercentage.Equal(d("0.001")) {
		t.Errorf("protocol fee: got %s, want 0.001", res.AmmPool.ProtocolFeePercentage)
	}
}

func TestAmmPoolUpdateConstructsMissingPool(t *testing.T) {
	disp, caches := newTestDispatcher(t)

	active := true
	price := d("100")
	res := disp.Dispatch(&event.AmmPoolUpdate{
		Base:      base("evt-1"),
		Pair:      "BTC/USDT",
		Active:    &active,
		InitPrice: &price,
	})
	if !res.Success {
		t.Fatalf("update for unknown pair failed: %s", res.ErrorMessage)
	}

	pool, ok := caches.AmmPools.Get("BTC/USDT")
	if !ok {
		t.Fatal("update should construct the missing pool")
	}
	if !pool.Active {
		t.Error("provided active flag should apply to the constructed pool")
	}
	if !pool.CurrentPrice.Equal(price) {
		t.Errorf("current price: got %s, want %s", pool.CurrentPrice, price)
	}
	if pool.CurrentTick != entity.PriceToTick(price) {
		t.Errorf("current tick: got %d, want %d", pool.CurrentTick, entity.PriceToTick(price))
	}
	if _, ok := caches.TickBitmaps.Get("BTC/USDT"); !ok {
		t.Error("constructed pool should initialize a tick bitmap")
	}
}

func TestAmmPoolUpdateNoChanges(t *testing.T) {
	disp, caches := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")
	drain(t, caches)

	samePrice := d("100")
	res := disp.Dispatch(&event.AmmPoolUpdate{
		Base:      base("evt-2"),
		Pair:      "BTC/USDT",
		InitPrice: &samePrice,
	})
	if !res.Success {
		t.Fatalf("no-op update failed: %s", res.ErrorMessage)
	}
	if res.Note == "" {
		t.Error("no-op update should carry a note")
	}
	if caches.AmmPools.DirtyCount() != 0 {
		t.Error("no-op update must not rewrite the pool")
	}
}

func TestAmmPoolUpdateInitPriceMovesTick(t *testing.T) {
	disp, _ := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")

	newPrice := d("200")
	res := disp.Dispatch(&event.AmmPoolUpdate{
		Base:      base("evt-2"),
		Pair:      "BTC/USDT",
		InitPrice: &newPrice,
	})
	if !res.Success {
		t.Fatalf("update failed: %s", res.ErrorMessage)
	}
	if res.AmmPool.CurrentTick != entity.PriceToTick(newPrice) {
		t.Errorf("tick: got %d, want %d", res.AmmPool.CurrentTick, entity.PriceToTick(newPrice))
	}
	if !res.AmmPool.CurrentPrice.Equal(newPrice) {
		t.Errorf("price: got %s, want 200", res.AmmPool.CurrentPrice)
	}
}

func TestAmmPositionCreate(t *testing.T) {
	disp, caches := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")

	res := disp.Dispatch(&event.AmmPositionCreate{
		Base:            base("evt-2"),
		PositionID:      "pos-1",
		Pair:            "BTC/USDT",
		OwnerAccountKey: "acc-1",
		TickLower:       -100,
		TickUpper:       200,
		Liquidity:       d("1000"),
	})
	if !res.Success {
		t.Fatalf("position create failed: %s", res.ErrorMessage)
	}
	if res.AmmPosition.Status != entity.PositionStatusOpen {
		t.Errorf("status: got %s, want open", res.AmmPosition.Status)
	}

	for _, idx := range []int32{-100, 200} {
		tick, ok := caches.Ticks.Get(entity.TickKey("BTC/USDT", idx))
		if !ok {
			t.Fatalf("tick %d not created", idx)
		}
		if !tick.LiquidityGross.Equal(d("1000")) {
			t.Errorf("tick %d gross: got %s, want 1000", idx, tick.LiquidityGross)
		}
	}

	bm, _ := caches.TickBitmaps.Get("BTC/USDT")
	if !bm.IsSet(-100) || !bm.IsSet(200) {
		t.Error("bound ticks should be set in the bitmap")
	}
	if got := bm.SetBits(); got != 2 {
		t.Errorf("set bits: got %d, want 2", got)
	}
}

func TestAmmPositionCreateRequiresPool(t *testing.T) {
	disp, _ := newTestDispatcher(t)

	res := disp.Dispatch(&event.AmmPositionCreate{
		Base:       base("evt-1"),
		PositionID: "pos-1",
		Pair:       "GHOST/USDT",
		TickLower:  0,
		TickUpper:  10,
		Liquidity:  d("1"),
	})
	if res.Success {
		t.Fatal("position on a missing pool must fail")
	}
	if res.ErrorKind != core.ErrKindBusinessRule {
		t.Errorf("error kind: got %s, want %s", res.ErrorKind, core.ErrKindBusinessRule)
	}
}

func TestAmmPositionCreateInvalidTickRange(t *testing.T) {
	disp, _ := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")

	res := disp.Dispatch(&event.AmmPositionCreate{
		Base:       base("evt-2"),
		PositionID: "pos-1",
		Pair:       "BTC/USDT",
		TickLower:  50,
		TickUpper:  50,
		Liquidity:  d("1"),
	})
	if res.Success {
		t.Fatal("tickLower >= tickUpper must fail")
	}
	if res.ErrorKind != core.ErrKindValidation {
		t.Errorf("error kind: got %s, want %s", res.ErrorKind, core.ErrKindValidation)
	}
}

func TestAmmPositionSharedTickAccumulates(t *testing.T) {
	disp, caches := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")

	disp.Dispatch(&event.AmmPositionCreate{
		Base: base("evt-2"), PositionID: "pos-1", Pair: "BTC/USDT",
		TickLower: 0, TickUpper: 100, Liquidity: d("600"),
	})
	disp.Dispatch(&event.AmmPositionCreate{
		Base: base("evt-3"), PositionID: "pos-2", Pair: "BTC/USDT",
		TickLower: 0, TickUpper: 50, Liquidity: d("400"),
	})

	tick, _ := caches.Ticks.Get(entity.TickKey("BTC/USDT", 0))
	if !tick.LiquidityGross.Equal(d("1000")) {
		t.Errorf("shared tick gross: got %s, want 1000", tick.LiquidityGross)
	}

	// Closing one position leaves the shared tick set.
	disp.Dispatch(&event.AmmPositionClose{Base: base("evt-4"), PositionID: "pos-2"})

	bm, _ := caches.TickBitmaps.Get("BTC/USDT")
	if !bm.IsSet(0) {
		t.Error("shared tick must remain set while pos-1 references it")
	}
	if bm.IsSet(50) {
		t.Error("tick 50 should clear when its only position closes")
	}
	tick, _ = caches.Ticks.Get(entity.TickKey("BTC/USDT", 0))
	if !tick.LiquidityGross.Equal(d("600")) {
		t.Errorf("tick 0 gross after close: got %s, want 600", tick.LiquidityGross)
	}
}

func TestAmmPositionClose(t *testing.T) {
	disp, caches := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")
	disp.Dispatch(&event.AmmPositionCreate{
		Base: base("evt-2"), PositionID: "pos-1", Pair: "BTC/USDT",
		TickLower: -10, TickUpper: 10, Liquidity: d("500"),
	})

	res := disp.Dispatch(&event.AmmPositionClose{Base: base("evt-3"), PositionID: "pos-1"})
	if !res.Success {
		t.Fatalf("close failed: %s", res.ErrorMessage)
	}
	if res.AmmPosition.Status != entity.PositionStatusClosed {
		t.Errorf("status: got %s, want closed", res.AmmPosition.Status)
	}

	bm, _ := caches.TickBitmaps.Get("BTC/USDT")
	if bm.SetBits() != 0 {
		t.Errorf("bitmap should be empty after closing the only position, got %d bits", bm.SetBits())
	}

	// Close is not replayable.
	res = disp.Dispatch(&event.AmmPositionClose{Base: base("evt-4"), PositionID: "pos-1"})
	if res.Success {
		t.Fatal("double close must fail")
	}
}

func TestAmmPositionCollectFee(t *testing.T) {
	disp, caches := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")
	disp.Dispatch(&event.AmmPositionCreate{
		Base: base("evt-2"), PositionID: "pos-1", Pair: "BTC/USDT",
		TickLower: 0, TickUpper: 10, Liquidity: d("100"),
	})

	// Nothing owed yet: acknowledged without a write.
	drain(t, caches)
	res := disp.Dispatch(&event.AmmPositionCollectFee{Base: base("evt-3"), PositionID: "pos-1"})
	if !res.Success {
		t.Fatalf("collect on zero owed failed: %s", res.ErrorMessage)
	}
	if res.Note == "" {
		t.Error("zero-owed collect should carry a note")
	}
	if caches.AmmPositions.DirtyCount() != 0 {
		t.Error("zero-owed collect must not rewrite the position")
	}

	// Accrue fees out of band, then collect.
	pos, _ := caches.AmmPositions.Get("pos-1")
	accrued := pos.Clone()
	accrued.TokensOwed0 = d("1.5")
	accrued.TokensOwed1 = d("0.25")
	caches.AmmPositions.Put(accrued.ID, accrued)

	res = disp.Dispatch(&event.AmmPositionCollectFee{Base: base("evt-4"), PositionID: "pos-1"})
	if !res.Success {
		t.Fatalf("collect failed: %s", res.ErrorMessage)
	}
	if !res.AmmPosition.TokensOwed0.IsZero() || !res.AmmPosition.TokensOwed1.IsZero() {
		t.Errorf("owed after collect: %s / %s, want 0 / 0",
			res.AmmPosition.TokensOwed0, res.AmmPosition.TokensOwed1)
	}
}

func TestAmmPositionCreateIdempotent(t *testing.T) {
	disp, caches := newTestDispatcher(t)
	createPool(t, disp, "BTC/USDT")
	disp.Dispatch(&event.AmmPositionCreate{
		Base: base("evt-2"), PositionID: "pos-1", Pair: "BTC/USDT",
		TickLower: 0, TickUpper: 10, Liquidity: d("100"),
	})

	res := disp.Dispatch(&event.AmmPositionCreate{
		Base: base("evt-3"), PositionID: "pos-1", Pair: "BTC/USDT",
		TickLower: 0, TickUpper: 10, Liquidity: d("100"),
	})
	if !res.Success {
		t.Fatalf("replayed create should succeed: %s", res.ErrorMessage)
	}
	if res.Note == "" {
		t.Error("replayed create should carry a note")
	}
	// Gross liquidity must not double.
	tick, _ := caches.Ticks.Get(entity.TickKey("BTC/USDT", 0))
	if !tick.LiquidityGross.Equal(d("100")) {
		t.Errorf("tick gross after replay: got %s, want 100", tick.LiquidityGross)
	}
}
