package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
	"github.com/andt14111999/test-exchange-sub006/internal/core"
	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestDispatcher(t *testing.T) (*core.Dispatcher, *cache.Registry) {
	t.Helper()
	caches := cache.NewRegistry(cache.DefaultConfig())
	return core.NewDispatcher(caches, zerolog.Nop(), nil), caches
}

func base(id string) event.Base {
	return event.Base{ID: id, Timestamp: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
}

// seedAccount creates an account and credits it via a deposit so balances
// flow through the same paths production uses.
func seedAccount(t *testing.T, disp *core.Dispatcher, key, amount string) {
	t.Helper()
	res := disp.Dispatch(&event.AccountCreate{Base: base("seed-acct-" + key), AccountKey: key})
	if !res.Success {
		t.Fatalf("seed account %s: %s", key, res.ErrorMessage)
	}
	if amount == "0" {
		return
	}
	res = disp.Dispatch(&event.DepositCreate{
		Base:       base("seed-dep-" + key),
		DepositID:  "dep-seed-" + key,
		AccountKey: key,
		Amount:     d(amount),
	})
	if !res.Success {
		t.Fatalf("seed deposit %s: %s", key, res.ErrorMessage)
	}
}

func TestAccountCreate(t *testing.T) {
	disp, _ := newTestDispatcher(t)

	res := disp.Dispatch(&event.AccountCreate{Base: base("evt-1"), AccountKey: "acc-1"})
	if !res.Success {
		t.Fatalf("create failed: %s", res.ErrorMessage)
	}
	if res.Account == nil || res.Account.Key != "acc-1" {
		t.Fatalf("result account: %+v", res.Account)
	}
	if !res.Account.AvailableBalance.IsZero() || !res.Account.FrozenBalance.IsZero() {
		t.Error("new account must start with zero balances")
	}
	if len(res.Histories) != 1 {
		t.Fatalf("histories: got %d, want 1", len(res.Histories))
	}
	if res.Histories[0].Operation != "create_new_account" {
		t.Errorf("history operation: got %s, want create_new_account", res.Histories[0].Operation)
	}
}

func TestAccountCreateIdempotent(t *testing.T) {
	disp, caches := newTestDispatcher(t)

	disp.Dispatch(&event.AccountCreate{Base: base("evt-1"), AccountKey: "acc-1"})
	disp.Dispatch(&event.DepositCreate{Base: base("evt-2"), DepositID: "dep-1", AccountKey: "acc-1", Amount: d("10.50")})

	// Drain dirty state so we can observe whether the replay writes.
	drain(t, caches)

	res := disp.Dispatch(&event.AccountCreate{Base: base("evt-3"), AccountKey: "acc-1"})
	if !res.Success {
		t.Fatalf("replayed create failed: %s", res.ErrorMessage)
	}
	if res.Note == "" {
		t.Error("replayed create should carry a note")
	}
	if got := res.Account.AvailableBalance.String(); got != "10.5" {
		t.Errorf("existing balance: got %s, want 10.5", got)
	}
	if caches.Accounts.DirtyCount() != 0 {
		t.Error("replayed create must not rewrite the account")
	}
	if len(res.Histories) != 0 {
		t.Errorf("replayed create histories: got %d, want 0", len(res.Histories))
	}
}

func TestAccountCreateValidation(t *testing.T) {
	disp, _ := newTestDispatcher(t)

	res := disp.Dispatch(&event.AccountCreate{Base: base("evt-1")})
	if res.Success {
		t.Fatal("empty accountKey should fail")
	}
	if res.ErrorKind != core.ErrKindValidation {
		t.Errorf("error kind: got %s, want %s", res.ErrorKind, core.ErrKindValidation)
	}
}

func TestDepositCreate(t *testing.T) {
	disp, _ := newTestDispatcher(t)
	seedAccount(t, disp, "acc-1", "0")

	res := disp.Dispatch(&event.DepositCreate{
		Base:       base("evt-1"),
		DepositID:  "dep-1",
		AccountKey: "acc-1",
		Amount:     d("21.21"),
	})
	if !res.Success {
		t.Fatalf("deposit failed: %s", res.ErrorMessage)
	}
	if got := res.Account.AvailableBalance.String(); got != "21.21" {
		t.Errorf("available: got %s, want 21.21", got)
	}
	if res.Deposit.Status != entity.StatusCompleted {
		t.Errorf("deposit status: got %s, want completed", res.Deposit.Status)
	}
	if len(res.Histories) != 1 {
		t.Fatalf("histories: got %d, want 1", len(res.Histories))
	}
	h := res.Histories[0]
	if !h.AvailableBefore.IsZero() || h.AvailableAfter.String() != "21.21" {
		t.Errorf("history balances: before=%s after=%s", h.AvailableBefore, h.AvailableAfter)
	}
}

func TestDepositCreateAccountNotFound(t *testing.T) {
	disp, caches := newTestDispatcher(t)

	res := disp.Dispatch(&event.DepositCreate{
		Base:       base("evt-1"),
		DepositID:  "dep-1",
		AccountKey: "ghost",
		Amount:     d("5"),
	})
	if res.Success {
		t.Fatal("deposit to missing account should fail")
	}
	if res.ErrorKind != core.ErrKindBusinessRule {
		t.Errorf("error kind: got %s, want %s", res.ErrorKind, core.ErrKindBusinessRule)
	}

	// The failed deposit is still persisted and queryable.
	dep, ok := caches.Deposits.Get("dep-1")
	if !ok {
		t.Fatal("failed deposit should be recorded")
	}
	if dep.Status != entity.StatusFailed {
		t.Errorf("status: got %s, want failed", dep.Status)
	}
	if dep.StatusExplanation == "" {
		t.Error("failed deposit should carry an explanation")
	}
}

func TestDepositDecimalExactness(t *testing.T) {
	disp, _ := newTestDispatcher(t)
	seedAccount(t, disp, "acc-1", "0")

	amounts := []string{"21.21", "10.50", "99.99", "0.01", "1000.25"}
	want := decimal.Zero
	for i, amt := range amounts {
		res := disp.Dispatch(&event.DepositCreate{
			Base:       base(string(rune('a' + i))),
			DepositID:  "dep-" + amt,
			AccountKey: "acc-1",
			Amount:     d(amt),
		})
		if !res.Success {
			t.Fatalf("deposit %s: %s", amt, res.ErrorMessage)
		}
		want = want.Add(d(amt))
	}

	res := disp.Dispatch(&event.DepositCreate{Base: base("final"), DepositID: "dep-final", AccountKey: "acc-1", Amount: d("0.04")})
	want = want.Add(d("0.04"))
	if !res.Account.AvailableBalance.Equal(want) {
		t.Errorf("sum: got %s, want %s", res.Account.AvailableBalance, want)
	}
}

func TestDispatchInvalidEvent(t *testing.T) {
	disp, _ := newTestDispatcher(t)

	res := disp.Dispatch(&event.Invalid{
		Base:   base("evt-bad"),
		Op:     event.OpCoinDepositCreate,
		Reason: "depositId and accountKey are required",
	})
	if res.Success {
		t.Fatal("invalid event must produce an error result")
	}
	if res.ErrorKind != core.ErrKindValidation {
		t.Errorf("error kind: got %s, want %s", res.ErrorKind, core.ErrKindValidation)
	}
	if res.EventID != "evt-bad" {
		t.Errorf("event id: got %s, want evt-bad", res.EventID)
	}
	if res.Operation != event.OpCoinDepositCreate {
		t.Errorf("operation: got %s, want %s", res.Operation, event.OpCoinDepositCreate)
	}
	if res.ErrorMessage != "depositId and accountKey are required" {
		t.Errorf("error message: got %q", res.ErrorMessage)
	}
}

func TestDispatchUnsupportedOperation(t *testing.T) {
	disp, _ := newTestDispatcher(t)

	res := disp.Dispatch(&unknownEvent{})
	if res.Success {
		t.Fatal("unknown event type should fail")
	}
	if res.ErrorKind != core.ErrKindValidation {
		t.Errorf("error kind: got %s, want %s", res.ErrorKind, core.ErrKindValidation)
	}
}

type unknownEvent struct{}

func (e *unknownEvent) EventID() string            { return "evt-x" }
func (e *unknownEvent) Operation() event.Operation { return event.Operation("made_up_op") }

func drain(t *testing.T, caches *cache.Registry) {
	t.Helper()
	for _, c := range caches.All() {
		if _, err := c.Flush(context.Background(), func(_ context.Context, _ string, _ []cache.Record) error {
			return nil
		}); err != nil {
			t.Fatalf("drain %s: %v", c.Kind(), err)
		}
	}
}
