package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andt14111999/test-exchange-sub006/internal/cache"
	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/event"
	"github.com/andt14111999/test-exchange-sub006/internal/observability"
)

// Dispatcher routes a decoded event to its processor. It is not safe for
// concurrent use: the engine calls Dispatch from a single goroutine, which
// is what gives every balance transition a total order.
type Dispatcher struct {
	caches  *cache.Registry
	logger  zerolog.Logger
	metrics *observability.Metrics
}

func NewDispatcher(caches *cache.Registry, logger zerolog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		caches:  caches,
		logger:  logger,
		metrics: metrics,
	}
}

// Dispatch applies one event and always returns a Result, including when
// the processor panics. A panic is converted into an unexpected-error
// result so the stream keeps moving; the offending event is logged with
// its payload type for later inspection.
func (d *Dispatcher) Dispatch(evt event.Event) (res *Result) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			d.logger.Error().
				Str("event_id", evt.EventID()).
				Str("operation", evt.Operation().String()).
				Interface("panic", rec).
				Msg("processor panicked")
			res = newResult(evt).fail(ErrKindUnexpected, fmt.Sprintf("unexpected processing failure: %v", rec))
		}
		if d.metrics != nil {
			d.metrics.EventsProcessed.WithLabelValues(evt.Operation().String(), res.Outcome()).Inc()
			d.metrics.EventDuration.WithLabelValues(evt.Operation().String()).Observe(time.Since(start).Seconds())
		}
	}()

	switch e := evt.(type) {
	case *event.AccountCreate:
		res = d.processAccountCreate(e)
	case *event.DepositCreate:
		res = d.processDepositCreate(e)
	case *event.WithdrawalCreate:
		res = d.processWithdrawalCreate(e)
	case *event.WithdrawalReleasing:
		res = d.processWithdrawalReleasing(e)
	case *event.WithdrawalFailed:
		res = d.terminateWithdrawal(e, e.WithdrawalID, e.Reason, entity.StatusFailed)
	case *event.WithdrawalCancelled:
		res = d.terminateWithdrawal(e, e.WithdrawalID, e.Reason, entity.StatusCancelled)
	case *event.BalancesLockCreate:
		res = d.processBalancesLockCreate(e)
	case *event.BalancesLockRelease:
		res = d.processBalancesLockRelease(e)
	case *event.AmmPoolCreate:
		res = d.processAmmPoolCreate(e)
	case *event.AmmPoolUpdate:
		res = d.processAmmPoolUpdate(e)
	case *event.AmmPositionCreate:
		res = d.processAmmPositionCreate(e)
	case *event.AmmPositionCollectFee:
		res = d.processAmmPositionCollectFee(e)
	case *event.AmmPositionClose:
		res = d.processAmmPositionClose(e)
	case *event.Invalid:
		res = newResult(e).fail(ErrKindValidation, e.Reason)
	default:
		res = newResult(evt).fail(ErrKindValidation,
			fmt.Sprintf("unsupported operation %q", evt.Operation()))
	}
	return res
}

// recordHistory appends an immutable balance-change record for acct as it
// stands after the mutation. identifier ties the record back to the entity
// that caused the change (deposit ID, withdrawal ID, lock ID, ...).
func (d *Dispatcher) recordHistory(res *Result, acct *entity.Account, beforeAvailable, beforeFrozen decimal.Decimal, identifier, operation string, at time.Time) {
	h := &entity.AccountHistory{
		ID:              uuid.NewString(),
		AccountKey:      acct.Key,
		Identifier:      identifier,
		Operation:       operation,
		AvailableBefore: beforeAvailable,
		AvailableAfter:  acct.AvailableBalance,
		FrozenBefore:    beforeFrozen,
		FrozenAfter:     acct.FrozenBalance,
		CreatedAt:       at,
	}
	d.caches.Histories.Put(h.ID, h)
	res.Histories = append(res.Histories, h)
}

// eventTime prefers the producer-supplied timestamp and falls back to the
// local clock for envelopes that omit it.
func eventTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now()
	}
	return ts
}

func evtTimestamp(evt event.Event) time.Time {
	if t, ok := evt.(interface{ EventTime() time.Time }); ok {
		return t.EventTime()
	}
	return time.Time{}
}
