package ingestion

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"github.com/andt14111999/test-exchange-sub006/internal/core"
	"github.com/andt14111999/test-exchange-sub006/internal/entity"
	"github.com/andt14111999/test-exchange-sub006/internal/observability"
)

// resultPayload is the outbound wire shape of a process result. Entity
// fields are omitted when the operation did not touch them.
type resultPayload struct {
	InputEventID  string `json:"inputEventId"`
	OperationType string `json:"operationType"`
	IsSuccess     bool   `json:"isSuccess"`
	ErrorKind     string `json:"errorKind,omitempty"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
	Note          string `json:"note,omitempty"`

	Account          *entity.Account          `json:"account,omitempty"`
	RecipientAccount *entity.Account          `json:"recipientAccount,omitempty"`
	Deposit          *entity.CoinDeposit      `json:"deposit,omitempty"`
	Withdrawal       *entity.CoinWithdrawal   `json:"withdrawal,omitempty"`
	BalanceLock      *entity.BalanceLock      `json:"balanceLock,omitempty"`
	AmmPool          *entity.AmmPool          `json:"ammPool,omitempty"`
	AmmPosition      *entity.AmmPosition      `json:"ammPosition,omitempty"`
	Histories        []*entity.AccountHistory `json:"accountHistories,omitempty"`
}

// ResultSink is the slice of JetStream the publisher writes through.
type ResultSink interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// OutboundPublisher drains process results to JetStream. The engine's
// result send blocks until this loop picks it up, so results leave in
// processing order. The durable idempotency marker for an event is
// written here, after the publish succeeds, so a crash with unpublished
// results replays the events instead of losing their notifications.
type OutboundPublisher struct {
	sink    ResultSink
	results <-chan *core.Result
	guard   *core.IdempotencyGuard
	logger  zerolog.Logger
	metrics *observability.Metrics
}

func NewOutboundPublisher(sink ResultSink, results <-chan *core.Result, guard *core.IdempotencyGuard, logger zerolog.Logger, metrics *observability.Metrics) *OutboundPublisher {
	return &OutboundPublisher{
		sink:    sink,
		results: results,
		guard:   guard,
		logger:  logger,
		metrics: metrics,
	}
}

// Run publishes until ctx is cancelled or the channel closes. A publish
// failure is fatal: the event stays unmarked, so failing fast lets a
// restart replay it.
func (p *OutboundPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case res, ok := <-p.results:
			if !ok {
				return nil
			}
			if err := p.publish(ctx, res); err != nil {
				if p.metrics != nil {
					p.metrics.PublishErrors.Inc()
				}
				return fmt.Errorf("publish result for %s: %w", res.EventID, err)
			}
			p.guard.MarkProcessed(res.EventID, res.Operation)
			if p.metrics != nil {
				p.metrics.ResultsPublished.WithLabelValues(res.Operation.String(), res.Outcome()).Inc()
			}
		}
	}
}

func (p *OutboundPublisher) publish(ctx context.Context, res *core.Result) error {
	payload := resultPayload{
		InputEventID:     res.EventID,
		OperationType:    res.Operation.String(),
		IsSuccess:        res.Success,
		ErrorKind:        string(res.ErrorKind),
		ErrorMessage:     res.ErrorMessage,
		Note:             res.Note,
		Account:          res.Account,
		RecipientAccount: res.RecipientAccount,
		Deposit:          res.Deposit,
		Withdrawal:       res.Withdrawal,
		BalanceLock:      res.BalanceLock,
		AmmPool:          res.AmmPool,
		AmmPosition:      res.AmmPosition,
		Histories:        res.Histories,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", OutputSubjectPrefix, res.Operation)

	// Msg-Id dedup: a replayed publish of the same input event collapses
	// server-side within the stream's dedup window.
	_, err = p.sink.Publish(ctx, subject, data, jetstream.WithMsgID(res.EventID))
	if err != nil {
		return err
	}

	p.logger.Debug().
		Str("event_id", res.EventID).
		Str("subject", subject).
		Bool("success", res.Success).
		Msg("result published")
	return nil
}
