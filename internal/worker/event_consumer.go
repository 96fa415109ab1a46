package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/segmentio/kafka-go"

	"github.com/pratik-mahalle/alertroute/internal/config"
	"github.com/pratik-mahalle/alertroute/internal/domain/incident"
	"github.com/pratik-mahalle/alertroute/internal/domain/notification"
	"github.com/pratik-mahalle/alertroute/internal/pkg/logger"
	"github.com/pratik-mahalle/alertroute/internal/pkg/metrics"
)

// MessageReader is the part of *kafka.Reader the consumer uses
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler handles a batch of incident events. Invalid events are
// reported in the result; an error means the result's Unqueued events
// should be handed over again.
type EventHandler interface {
	HandleEvents(ctx context.Context, events []*incident.Event) (*notification.BatchResult, error)
}

// maxRetryInterval caps the wait between attempts at a failing batch
const maxRetryInterval = 30 * time.Second

// NewKafkaReader creates a consumer group reader for the incident event topic
func NewKafkaReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
}

// EventConsumer reads incident events from a stream and hands them to the
// notification service in batches. A batch is committed once every valid
// event in it was handled; transient failures are retried in place because
// the group reader never refetches uncommitted messages within a session.
type EventConsumer struct {
	reader        MessageReader
	handler       EventHandler
	batchSize     int
	flushInterval time.Duration
	logger        *logger.Logger
}

// NewEventConsumer creates a new event consumer worker
func NewEventConsumer(reader MessageReader, handler EventHandler, batchSize int, flushInterval time.Duration, log *logger.Logger) *EventConsumer {
	if batchSize < 1 {
		batchSize = 1
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &EventConsumer{
		reader:        reader,
		handler:       handler,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        log,
	}
}

// Start consumes until ctx is done, then closes the reader
func (c *EventConsumer) Start(ctx context.Context) {
	c.logger.Info("Starting event consumer worker")
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.WarnWithErr(err, "Failed to close stream reader")
		}
		c.logger.Info("Event consumer worker stopped")
	}()

	for {
		msgs, err := c.collect(ctx)
		if len(msgs) > 0 {
			c.flush(ctx, msgs)
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.WarnWithErr(err, "Failed to read from stream")
			select {
			case <-time.After(c.flushInterval):
			case <-ctx.Done():
				return
			}
		}
	}
}

// collect blocks for the first message, then gathers more until the batch
// is full or the flush interval since the first message has passed
func (c *EventConsumer) collect(ctx context.Context) ([]kafka.Message, error) {
	var msgs []kafka.Message
	var deadline time.Time

	for len(msgs) < c.batchSize {
		fetchCtx, cancel := ctx, context.CancelFunc(func() {})
		if len(msgs) > 0 {
			fetchCtx, cancel = context.WithDeadline(ctx, deadline)
		}
		m, err := c.reader.FetchMessage(fetchCtx)
		cancel()

		if err != nil {
			if len(msgs) > 0 && ctx.Err() == nil && stderrors.Is(err, context.DeadlineExceeded) {
				return msgs, nil
			}
			return msgs, err
		}
		if len(msgs) == 0 {
			deadline = time.Now().Add(c.flushInterval)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// flush decodes and handles a batch. Malformed and invalid events are
// skipped. The batch is committed unless shutdown interrupted its retries,
// in which case it is redelivered after a restart.
func (c *EventConsumer) flush(ctx context.Context, msgs []kafka.Message) {
	// A handler call already started is finished even during shutdown
	handleCtx := context.WithoutCancel(ctx)

	events := make([]*incident.Event, 0, len(msgs))
	for _, m := range msgs {
		var e incident.Event
		if err := json.Unmarshal(m.Value, &e); err != nil {
			metrics.RecordConsumedMessage("malformed")
			c.logger.WithFields(map[string]interface{}{
				"partition": m.Partition,
				"offset":    m.Offset,
			}).WarnWithErr(err, "Skipping malformed event message")
			continue
		}
		events = append(events, &e)
	}

	if len(events) > 0 && !c.handle(ctx, handleCtx, events) {
		c.logger.WithFields(map[string]interface{}{
			"messages": len(msgs),
		}).Warn("Stopped before the batch was handled, leaving it uncommitted")
		return
	}

	if err := c.reader.CommitMessages(handleCtx, msgs...); err != nil {
		c.logger.ErrorWithErr(err, "Failed to commit stream offsets")
	}
}

// handle hands events to the handler, retrying the unqueued part with
// backoff until it succeeds or ctx is done. It reports whether it succeeded.
func (c *EventConsumer) handle(ctx, handleCtx context.Context, events []*incident.Event) bool {
	pending := events

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.flushInterval
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = 0

	op := func() error {
		res, err := c.handler.HandleEvents(handleCtx, pending)
		if res != nil {
			for _, r := range res.Rejected {
				metrics.RecordConsumedMessage("rejected")
				c.logger.WithFields(map[string]interface{}{
					"event_id": r.EventID,
					"reason":   r.Reason,
				}).Warn("Skipping invalid event")
			}
		}
		if err != nil {
			if res != nil && len(res.Unqueued) > 0 {
				pending = res.Unqueued
			}
			for range pending {
				metrics.RecordConsumedMessage("failed")
			}
			return err
		}
		accepted := len(pending)
		if res != nil {
			accepted = res.Accepted
		}
		for i := 0; i < accepted; i++ {
			metrics.RecordConsumedMessage("handled")
		}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		c.logger.WithFields(map[string]interface{}{
			"events": len(pending),
			"retry":  wait.String(),
		}).WarnWithErr(err, "Failed to handle event batch, retrying")
	}

	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify) == nil
}
