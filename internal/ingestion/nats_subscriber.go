package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// Stream and subject layout. All operations arrive on one input stream so
// JetStream preserves their relative order; the last subject token is the
// operation name.
const (
	InputStream   = "EXCHANGE_INPUT"
	InputSubjects = "exchange.input.>"
	ConsumerName  = "exchange-core"

	OutputStream        = "EXCHANGE_OUTPUT"
	OutputSubjects      = "exchange.output.>"
	OutputSubjectPrefix = "exchange.output.results"
)

// RawEvent is an inbound message before envelope decoding. Ack confirms
// consumption; Nak requests redelivery.
type RawEvent struct {
	Subject    string
	Data       []byte
	ReceivedAt time.Time
	Ack        func()
	Nak        func()
}

// NATSSubscriber feeds inbound JetStream messages into rawChan. A single
// pull consumer with explicit acks keeps delivery ordered; the dispatch
// loop downstream is the lone consumer of the channel.
type NATSSubscriber struct {
	js       jetstream.JetStream
	rawChan  chan<- RawEvent
	logger   zerolog.Logger
	consumer jetstream.ConsumeContext
}

func NewNATSSubscriber(js jetstream.JetStream, rawChan chan<- RawEvent, logger zerolog.Logger) *NATSSubscriber {
	return &NATSSubscriber{
		js:      js,
		rawChan: rawChan,
		logger:  logger,
	}
}

// Subscribe creates the durable consumer and starts delivery into rawChan.
func (ns *NATSSubscriber) Subscribe(ctx context.Context) error {
	consumer, err := ns.js.CreateOrUpdateConsumer(ctx, InputStream, jetstream.ConsumerConfig{
		Durable:       ConsumerName,
		FilterSubject: InputSubjects,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    5,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", ConsumerName, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		raw := RawEvent{
			Subject:    msg.Subject(),
			Data:       msg.Data(),
			ReceivedAt: time.Now(),
			Ack:        func() { msg.Ack() },
			Nak:        func() { msg.Nak() },
		}

		select {
		case ns.rawChan <- raw:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("consume %s: %w", ConsumerName, err)
	}

	ns.consumer = cc
	ns.logger.Info().Str("subject", InputSubjects).Str("consumer", ConsumerName).Msg("subscribed")
	return nil
}

// Stop halts delivery and waits for the in-flight handler, if any, to
// finish. After Stop returns nothing sends into rawChan anymore, so the
// caller may close it to drain the pipeline. Unacked messages are
// redelivered on the next start.
func (ns *NATSSubscriber) Stop() {
	if ns.consumer == nil {
		return
	}
	ns.consumer.Stop()
	<-ns.consumer.Closed()
}

// EnsureStreams creates the input and output streams if absent.
func EnsureStreams(ctx context.Context, js jetstream.JetStream, logger zerolog.Logger) error {
	streams := []jetstream.StreamConfig{
		{
			Name:      InputStream,
			Subjects:  []string{InputSubjects},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
		{
			Name:      OutputStream,
			Subjects:  []string{OutputSubjects},
			Storage:   jetstream.FileStorage,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    72 * time.Hour,
			Replicas:  1,
		},
	}

	for _, cfg := range streams {
		if _, err := js.CreateOrUpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.Name, err)
		}
		logger.Info().Str("stream", cfg.Name).Msg("stream ensured")
	}
	return nil
}

// ConnectNATS establishes a NATS connection and returns a JetStream handle.
func ConnectNATS(url string, logger zerolog.Logger) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}
	return nc, js, nil
}
