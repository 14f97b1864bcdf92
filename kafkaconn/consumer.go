package kafkaconn

import (
	"context"
	stderr "errors"
	"time"

	"github.com/roadrunner-server/errors"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// Subscribe joins the configured consumer group for the given topics, in
// addition to any topics set through ConsumerOpts. Partition assignment may
// change between polls whenever the group rebalances.
func (c *Connector) Subscribe(topics ...string) error {
	const op = errors.Op("kafka_subscribe")

	if err := c.checkConnected(); err != nil {
		return errors.E(op, err)
	}

	if len(topics) == 0 {
		return errors.E(op, errors.Str("at least 1 topic should be provided"))
	}

	c.mu.Lock()
	c.client.AddConsumeTopics(topics...)
	c.subscribed = append(c.subscribed, topics...)
	c.mu.Unlock()

	c.log.Debug("subscribed",
		zap.String("group", c.cfg.Group),
		zap.Strings("topics", topics))

	return nil
}

// Poll blocks up to timeout and returns the records fetched within it,
// possibly none. Hitting the timeout with no records is not an error.
// Delivered messages stay uncommitted until the host calls Commit, so a
// crash between Poll and Commit redelivers them (at-least-once).
func (c *Connector) Poll(ctx context.Context, timeout time.Duration) ([]*Message, error) {
	const op = errors.Op("kafka_poll")

	if err := c.checkConnected(); err != nil {
		return nil, errors.E(op, err)
	}

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	fetches := c.client.PollRecords(pollCtx, c.cfg.pollBatch())
	cancel()

	if fetches.IsClientClosed() {
		return nil, errors.E(op, ErrClosed)
	}

	var fetchErr error
	fetches.EachError(func(topic string, partition int32, err error) {
		// deadline expiry is the normal empty-poll outcome
		if stderr.Is(err, context.DeadlineExceeded) || stderr.Is(err, context.Canceled) {
			return
		}

		c.log.Error("fetch error",
			zap.String("topic", topic),
			zap.Int32("partition", partition),
			zap.Error(err))
		fetchErr = err
	})

	msgs := make([]*Message, 0, fetches.NumRecords())
	fetches.EachRecord(func(r *kgo.Record) {
		msgs = append(msgs, fromRecord(c.tracer.extract(ctx, r), r))
	})

	if len(msgs) == 0 && fetchErr != nil {
		return nil, errors.E(op, fetchErr)
	}

	return msgs, nil
}

// Commit acknowledges the given messages so the group's committed offset
// advances past them. Only messages produced by Poll on this connector can
// be committed.
func (c *Connector) Commit(ctx context.Context, msgs ...*Message) error {
	const op = errors.Op("kafka_commit")

	if err := c.checkConnected(); err != nil {
		return errors.E(op, err)
	}

	recs := make([]*kgo.Record, 0, len(msgs))
	for _, m := range msgs {
		if m == nil || m.record == nil {
			return errors.E(op, errors.Str("message does not originate from this connector"))
		}
		recs = append(recs, m.record)
	}

	if len(recs) == 0 {
		return nil
	}

	err := c.client.CommitRecords(ctx, recs...)
	if err != nil {
		return errors.E(op, err)
	}

	return nil
}
