package kafkaconn

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is a single payload flowing through the connector. On the publish
// side the host supplies topic, payload and an optional key; on the consume
// side the connector fills in the broker coordinates so the host can commit.
type Message struct {
	// Ident is the unique identifier of the message; auto-assigned on
	// publish when the caller supplies no key.
	Ident string `json:"id"`
	// Topic the message was read from or is destined for.
	Topic string `json:"topic"`
	// Key is the optional partitioning key.
	Key []byte `json:"key,omitempty"`
	// Payload is the opaque message body.
	Payload []byte `json:"payload"`
	// Hdrs carries the record headers, one value per key.
	Hdrs map[string][]string `json:"headers,omitempty"`

	Partition int32     `json:"partition"`
	Offset    int64     `json:"offset"`
	Timestamp time.Time `json:"timestamp"`

	// private, used to commit the offset and to carry the remote trace
	record *kgo.Record
	ctx    context.Context
}

func (m *Message) ID() string {
	return m.Ident
}

func (m *Message) Body() []byte {
	return m.Payload
}

func (m *Message) Headers() map[string][]string {
	return m.Hdrs
}

// Context returns the remote context extracted from the record headers on
// poll; the host uses it to continue the producer's trace.
func (m *Message) Context() context.Context {
	if m.ctx == nil {
		return context.Background()
	}
	return m.ctx
}

// Metadata packs the broker coordinates into a JSON blob for the host's
// result envelope.
func (m *Message) Metadata() ([]byte, error) {
	return json.Marshal(struct {
		ID        string              `json:"id"`
		Topic     string              `json:"topic"`
		Partition int32               `json:"partition"`
		Offset    int64               `json:"offset"`
		Headers   map[string][]string `json:"headers,omitempty"`
	}{ID: m.Ident, Topic: m.Topic, Partition: m.Partition, Offset: m.Offset, Headers: m.Hdrs})
}

func fromRecord(ctx context.Context, r *kgo.Record) *Message {
	hdrs := make(map[string][]string, len(r.Headers))
	for _, h := range r.Headers {
		hdrs[h.Key] = append(hdrs[h.Key], string(h.Value))
	}

	return &Message{
		Ident:     string(r.Key),
		Topic:     r.Topic,
		Key:       r.Key,
		Payload:   r.Value,
		Hdrs:      hdrs,
		Partition: r.Partition,
		Offset:    r.Offset,
		Timestamp: r.Timestamp,
		record:    r,
		ctx:       ctx,
	}
}
