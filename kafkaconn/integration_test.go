package kafkaconn

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// end-to-end against a live broker; set KAFKA_BROKERS_ADDR (host:port) to run
func TestIntegrationPublishConsume(t *testing.T) {
	addr := os.Getenv("KAFKA_BROKERS_ADDR")
	if addr == "" {
		t.Skip("KAFKA_BROKERS_ADDR is not set")
	}

	topic := "stoq-test-" + uuid.NewString()
	retries := 5

	conf := &Config{
		Servers:          []string{addr},
		Group:            "stoq",
		Retries:          &retries,
		AutoCreateTopics: true,
		ConsumerOpts: &ConsumerOpts{
			Topics:         []string{topic},
			ConsumerOffset: &Offset{Type: AtStart},
		},
	}

	log, _ := zap.NewDevelopment()
	c, err := NewConnector(conf, log)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	require.NoError(t, c.Open(ctx))
	defer func() {
		_ = c.Close(context.Background())
	}()

	out := c.Publish(ctx, topic, []byte("hello"), nil)
	require.True(t, out.Delivered(), "publish failed: %s", out.Reason())
	assert.Equal(t, 1, out.Attempts)

	var got *Message
	deadline := time.Now().Add(time.Second * 30)
	for got == nil && time.Now().Before(deadline) {
		msgs, errP := c.Poll(ctx, time.Second)
		require.NoError(t, errP)
		for _, m := range msgs {
			if string(m.Body()) == "hello" {
				got = m
			}
		}
	}

	require.NotNil(t, got, "message was not redelivered within the deadline")
	assert.Equal(t, topic, got.Topic)
	require.NoError(t, c.Commit(ctx, got))
	require.NoError(t, c.Close(ctx))
}

func TestIntegrationOpenUnreachableBroker(t *testing.T) {
	if os.Getenv("KAFKA_BROKERS_ADDR") == "" {
		t.Skip("KAFKA_BROKERS_ADDR is not set")
	}

	conf := &Config{
		Servers: []string{"127.0.0.1:19591"},
		Ping:    &Ping{Timeout: time.Second * 2},
	}

	c, err := NewConnector(conf, zap.NewNop())
	require.NoError(t, err)

	err = c.Open(context.Background())
	require.ErrorIs(t, err, ErrConnection)
	assert.False(t, c.Ready())
}
