package kafkaconn

import (
	"context"
	stderr "errors"
	"time"

	"github.com/google/uuid"
	"github.com/roadrunner-server/errors"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// DeliveryOutcome is the result of a single publish attempt chain. The
// payload was either delivered to the broker or the failure is reported here
// with its reason; it is never silently dropped.
type DeliveryOutcome struct {
	// ID is the message ident: the caller's key or the auto-assigned one.
	ID string
	// Topic the publish targeted.
	Topic string
	// Partition and Offset of the delivered record; meaningless on failure.
	Partition int32
	Offset    int64
	// Attempts is the number of sends performed, initial try included.
	Attempts int
	// DeadLettered reports whether the payload reached the error-queue
	// topic after the retry budget was exhausted.
	DeadLettered bool
	// Err is nil on delivery, the final send error otherwise.
	Err error
}

// Delivered reports whether the payload reached its target topic.
func (o DeliveryOutcome) Delivered() bool {
	return o.Err == nil
}

// Reason returns the failure reason, empty on delivery.
func (o DeliveryOutcome) Reason() string {
	if o.Err == nil {
		return ""
	}
	return o.Err.Error()
}

// Publish sends payload to topic, retrying transient failures up to the
// configured budget with exponential backoff. Sends are synchronous, so
// retries of a failed publish always complete before the caller's next
// publish for the same key starts. When the budget is exhausted the payload
// is dead-lettered to the error-queue topic best-effort and the failure is
// reported through the outcome.
func (c *Connector) Publish(ctx context.Context, topic string, payload []byte, key []byte) DeliveryOutcome {
	const op = errors.Op("kafka_publish")

	out := DeliveryOutcome{Topic: topic}

	if err := c.checkConnected(); err != nil {
		out.Err = errors.E(op, err)
		return out
	}

	rec := &kgo.Record{
		Key:       key,
		Value:     payload,
		Topic:     topic,
		Timestamp: time.Now(),
	}
	if len(rec.Key) == 0 {
		rec.Key = []byte(uuid.NewString())
	}
	out.ID = string(rec.Key)

	ctx, span := c.tracer.startPublish(ctx, rec)
	defer span.End()

	attempts, err := c.produceRetry(ctx, rec)
	out.Attempts = attempts

	if err != nil {
		out.Err = errors.E(op, err)
		out.DeadLettered = c.deadLetter(ctx, rec, err)

		c.log.Error("publish failed",
			zap.String("topic", topic),
			zap.String("id", out.ID),
			zap.Int("attempts", attempts),
			zap.Bool("dead_lettered", out.DeadLettered),
			zap.Error(err))

		return out
	}

	out.Partition = rec.Partition
	out.Offset = rec.Offset

	c.log.Debug("message delivered",
		zap.String("topic", topic),
		zap.String("id", out.ID),
		zap.Int32("partition", rec.Partition),
		zap.Int64("offset", rec.Offset))

	return out
}

// produceRetry performs up to retries+1 synchronous sends with exponential
// backoff between attempts, doubling from the configured base up to the cap.
func (c *Connector) produceRetry(ctx context.Context, rec *kgo.Record) (int, error) {
	budget := c.cfg.retryBudget()
	wait := c.cfg.Backoff.Base

	var err error
	for attempt := 0; ; attempt++ {
		err = c.client.ProduceSync(ctx, rec).FirstErr()
		if err == nil {
			return attempt + 1, nil
		}

		// the caller gave up, no point in retrying
		if stderr.Is(err, context.Canceled) || stderr.Is(err, context.DeadlineExceeded) {
			return attempt + 1, err
		}

		if attempt == budget {
			return attempt + 1, err
		}

		c.log.Warn("send failed, backing off",
			zap.String("topic", rec.Topic),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return attempt + 1, ctx.Err()
		case <-time.After(wait):
		}

		wait *= 2
		if wait > c.cfg.Backoff.Cap {
			wait = c.cfg.Backoff.Cap
		}
	}
}

// deadLetter forwards an undeliverable record to the error-queue topic. The
// same retry policy applies once; a dead-letter failure is not dead-lettered
// again.
func (c *Connector) deadLetter(ctx context.Context, rec *kgo.Record, cause error) bool {
	dl := &kgo.Record{
		Key:       rec.Key,
		Value:     rec.Value,
		Topic:     c.cfg.ErrorTopic,
		Timestamp: time.Now(),
		Headers: append(rec.Headers,
			kgo.RecordHeader{Key: "x-origin-topic", Value: []byte(rec.Topic)},
			kgo.RecordHeader{Key: "x-error", Value: []byte(cause.Error())},
		),
	}

	if _, err := c.produceRetry(ctx, dl); err != nil {
		c.log.Error("dead-letter publish failed",
			zap.String("error_topic", c.cfg.ErrorTopic),
			zap.String("origin_topic", rec.Topic),
			zap.Error(err))
		return false
	}

	c.log.Warn("message dead-lettered",
		zap.String("error_topic", c.cfg.ErrorTopic),
		zap.String("origin_topic", rec.Topic),
		zap.String("id", string(rec.Key)))

	return true
}
