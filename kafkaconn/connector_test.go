package kafkaconn

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// fakeClient replaces the broker client, tracking every call the connector
// makes and redelivering records that were never committed.
type fakeClient struct {
	mu sync.Mutex

	produceErr  error
	perTopicErr map[string]error
	produced    []*kgo.Record
	attempts    int

	pending   []*kgo.Record
	committed []*kgo.Record

	addedTopics  []string
	pausedTopics []string
	flushed      bool
	closed       bool
}

func (f *fakeClient) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.attempts++
	r := rs[0]

	err := f.produceErr
	if e, ok := f.perTopicErr[r.Topic]; ok {
		err = e
	}
	if err != nil {
		return kgo.ProduceResults{{Record: r, Err: err}}
	}

	f.produced = append(f.produced, r)
	return kgo.ProduceResults{{Record: r}}
}

func (f *fakeClient) PollRecords(_ context.Context, _ int) kgo.Fetches {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return kgo.Fetches{}
	}

	return kgo.Fetches{{
		Topics: []kgo.FetchTopic{{
			Topic:      f.pending[0].Topic,
			Partitions: []kgo.FetchPartition{{Records: f.pending}},
		}},
	}}
}

func (f *fakeClient) CommitRecords(_ context.Context, rs ...*kgo.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range rs {
		f.committed = append(f.committed, r)
		for i, p := range f.pending {
			if p == r {
				f.pending = append(f.pending[:i], f.pending[i+1:]...)
				break
			}
		}
	}

	return nil
}

func (f *fakeClient) AddConsumeTopics(topics ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addedTopics = append(f.addedTopics, topics...)
}

func (f *fakeClient) PauseFetchTopics(topics ...string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pausedTopics = append(f.pausedTopics, topics...)
	return f.pausedTopics
}

func (f *fakeClient) ResumeFetchTopics(topics ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pausedTopics = nil
}

func (f *fakeClient) Ping(context.Context) error { return nil }

func (f *fakeClient) Flush(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = true
	return nil
}

func (f *fakeClient) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func testConfig(retries int) *Config {
	r := retries
	return &Config{
		Servers: []string{"127.0.0.1:9092"},
		Retries: &r,
		// keep retry tests fast
		Backoff: &Backoff{Base: time.Millisecond, Cap: time.Millisecond * 2},
	}
}

func testConnector(t *testing.T, conf *Config, cl client) (*Connector, *fakeClient) {
	t.Helper()

	fc, _ := cl.(*fakeClient)
	if cl == nil {
		fc = &fakeClient{}
		cl = fc
	}

	_, err := conf.InitDefault()
	require.NoError(t, err)

	return &Connector{
		log:        zap.NewNop(),
		cfg:        conf,
		client:     cl,
		tracer:     newTracer(nil),
		state:      stateConnected,
		subscribed: conf.topics(),
	}, fc
}

func TestConnectorNotConnected(t *testing.T) {
	conf := testConfig(5)
	_, err := conf.InitDefault()
	require.NoError(t, err)

	fc := &fakeClient{produceErr: assert.AnError}
	c := &Connector{log: zap.NewNop(), cfg: conf, client: fc, tracer: newTracer(nil)}

	out := c.Publish(context.Background(), "topic-a", []byte("hello"), nil)
	assert.False(t, out.Delivered())
	assert.ErrorIs(t, out.Err, ErrNotConnected)

	_, err = c.Poll(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.ErrorIs(t, c.Subscribe("topic-a"), ErrNotConnected)
	assert.ErrorIs(t, c.Commit(context.Background()), ErrNotConnected)
	assert.ErrorIs(t, c.Pause(), ErrNotConnected)
	assert.False(t, c.Ready())

	// no network I/O happened
	assert.Equal(t, 0, fc.calls())
	assert.Empty(t, fc.addedTopics)
}

func TestConnectorCloseIdempotent(t *testing.T) {
	c, fc := testConnector(t, testConfig(0), nil)

	require.True(t, c.Ready())
	require.NoError(t, c.Close(context.Background()))
	assert.True(t, fc.flushed)
	assert.True(t, fc.closed)
	assert.False(t, c.Ready())

	// second close is a no-op
	require.NoError(t, c.Close(context.Background()))

	out := c.Publish(context.Background(), "topic-a", []byte("x"), nil)
	assert.ErrorIs(t, out.Err, ErrClosed)

	_, err := c.Poll(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnectorOpenAfterCloseFails(t *testing.T) {
	c, _ := testConnector(t, testConfig(0), nil)

	require.NoError(t, c.Close(context.Background()))
	assert.ErrorIs(t, c.Open(context.Background()), ErrClosed)
}

func TestConnectorSubscribe(t *testing.T) {
	c, fc := testConnector(t, testConfig(0), nil)

	require.NoError(t, c.Subscribe("topic-a", "topic-b"))
	assert.Equal(t, []string{"topic-a", "topic-b"}, fc.addedTopics)
	assert.Equal(t, []string{"topic-a", "topic-b"}, c.subscribed)

	err := c.Subscribe()
	assert.Error(t, err)
}

func TestConnectorPauseResume(t *testing.T) {
	c, fc := testConnector(t, testConfig(0), nil)
	require.NoError(t, c.Subscribe("topic-a"))

	require.NoError(t, c.Pause())
	assert.Equal(t, []string{"topic-a"}, fc.pausedTopics)
	assert.Error(t, c.Pause(), "double pause must fail")

	require.NoError(t, c.Resume())
	assert.Empty(t, fc.pausedTopics)
	assert.Error(t, c.Resume(), "resume without pause must fail")
}

func TestNewConnectorValidatesConfig(t *testing.T) {
	neg := -1
	_, err := NewConnector(&Config{Retries: &neg}, zap.NewNop())
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewConnector(nil, zap.NewNop())
	require.Error(t, err)
}

type mapConfigurer struct {
	sections map[string]map[string]any
}

func (m *mapConfigurer) Has(name string) bool {
	_, ok := m.sections[name]
	return ok
}

func (m *mapConfigurer) UnmarshalKey(name string, out any) error {
	sec, ok := m.sections[name]
	if !ok {
		return nil
	}

	conf, ok := out.(*Config)
	if !ok {
		return nil
	}

	if v, ok := sec["servers_list"].([]string); ok {
		conf.Servers = v
	}
	if v, ok := sec["group"].(string); ok {
		conf.Group = v
	}
	if v, ok := sec["retries"].(int); ok {
		conf.Retries = &v
	}

	return nil
}

func TestFromConfig(t *testing.T) {
	cfg := &mapConfigurer{sections: map[string]map[string]any{
		"kafka": {
			"servers_list": []string{"127.0.0.1:9092"},
		},
		"kafka.pipeline-1": {
			"group":   "analysis",
			"retries": 2,
		},
	}}

	c, err := FromConfig("kafka.pipeline-1", zap.NewNop(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "analysis", c.cfg.Group)
	assert.Equal(t, 2, c.cfg.retryBudget())

	_, err = FromConfig("kafka.missing", zap.NewNop(), cfg)
	require.Error(t, err)

	_, err = FromConfig("kafka.pipeline-1", zap.NewNop(), &mapConfigurer{sections: map[string]map[string]any{}})
	require.Error(t, err, "no global section")
}
