package kafkaconn

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/roadrunner-server/errors"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const pluginName string = "kafka"

// connector lifecycle states
const (
	stateUninitialized uint32 = iota
	stateConnected
	stateClosed
)

// Configurer resolves configuration sections supplied by the host pipeline.
type Configurer interface {
	// UnmarshalKey takes a single key and unmarshal it into a Struct.
	UnmarshalKey(name string, out any) error
	// Has checks if config section exists.
	Has(name string) bool
}

// client is the narrow surface of *kgo.Client the connector drives. Kept as
// an interface so the broker can be faked in tests.
type client interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	PollRecords(ctx context.Context, maxPollRecords int) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
	AddConsumeTopics(topics ...string)
	PauseFetchTopics(topics ...string) []string
	ResumeFetchTopics(topics ...string)
	Ping(ctx context.Context) error
	Flush(ctx context.Context) error
	Close()
}

// Connector composes the producer and consumer halves of the kafka plugin
// behind one lifecycle. A single instance owns its broker connections
// exclusively; for multiprocess pipelines the host constructs one connector
// per worker and the broker-side group protocol coordinates partition
// assignment across them.
type Connector struct {
	mu  sync.Mutex
	log *zap.Logger
	cfg *Config

	client client
	tracer *tracer

	state      uint32
	paused     uint32
	subscribed []string
}

// Option tweaks optional connector collaborators.
type Option func(*Connector)

// WithTracerProvider overrides the global OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Connector) {
		c.tracer = newTracer(tp)
	}
}

// NewConnector builds a connector from an explicit configuration. The
// configuration is validated here; broker connections are established by Open.
func NewConnector(conf *Config, log *zap.Logger, opts ...Option) (*Connector, error) {
	const op = errors.Op("new_kafka_connector")

	if conf == nil {
		return nil, errors.E(op, errors.Str("no configuration provided"))
	}

	if _, err := conf.InitDefault(); err != nil {
		return nil, errors.E(op, err)
	}

	c := &Connector{
		log:        log,
		cfg:        conf,
		subscribed: conf.topics(),
	}

	for _, o := range opts {
		o(c)
	}

	if c.tracer == nil {
		c.tracer = newTracer(nil)
	}

	return c, nil
}

// FromConfig builds a connector from the configuration section resolved
// through the host's Configurer: the global plugin section first, the
// local key on top.
func FromConfig(configKey string, log *zap.Logger, cfg Configurer, opts ...Option) (*Connector, error) {
	const op = errors.Op("kafka_connector_from_config")

	// no global config
	if !cfg.Has(pluginName) {
		return nil, errors.E(op, errors.Str("no global kafka configuration found"))
	}

	// no local config
	if !cfg.Has(configKey) {
		return nil, errors.E(op, errors.Errorf("no configuration by provided key: %s", configKey))
	}

	var conf Config
	err := cfg.UnmarshalKey(pluginName, &conf)
	if err != nil {
		return nil, errors.E(op, err)
	}

	err = cfg.UnmarshalKey(configKey, &conf)
	if err != nil {
		return nil, errors.E(op, err)
	}

	return NewConnector(&conf, log, opts...)
}

// Open establishes the broker connections and verifies that at least one
// bootstrap broker is reachable. It must succeed before any publish or
// consume call.
func (c *Connector) Open(ctx context.Context) error {
	start := time.Now()
	const op = errors.Op("kafka_open")

	c.mu.Lock()
	defer c.mu.Unlock()

	switch atomic.LoadUint32(&c.state) {
	case stateConnected:
		return errors.E(op, errors.Str("connector is already open"))
	case stateClosed:
		return errors.E(op, ErrClosed)
	}

	opts, err := c.cfg.InitDefault()
	if err != nil {
		return errors.E(op, err)
	}
	opts = append(opts, kgo.WithLogger(newLogger(c.log)))

	cl, err := kgo.NewClient(opts...)
	if err != nil {
		return errors.E(op, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.Ping.Timeout)
	err = cl.Ping(pingCtx)
	cancel()
	if err != nil {
		cl.Close()
		return errors.E(op, fmt.Errorf("%w: %w", ErrConnection, err))
	}

	c.client = cl
	atomic.StoreUint32(&c.state, stateConnected)

	c.log.Debug("connector was opened",
		zap.String("driver", pluginName),
		zap.Strings("servers", c.cfg.Servers),
		zap.String("group", c.cfg.Group),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

// Pause suspends fetching from the subscribed topics without leaving the
// group. No-op when nothing is subscribed.
func (c *Connector) Pause() error {
	const op = errors.Op("kafka_pause")

	if err := c.checkConnected(); err != nil {
		return errors.E(op, err)
	}

	if atomic.LoadUint32(&c.paused) == 1 {
		return errors.E(op, errors.Str("consumption is already paused"))
	}

	c.client.PauseFetchTopics(c.subscribed...)
	atomic.StoreUint32(&c.paused, 1)

	c.log.Debug("consumption was paused", zap.Strings("topics", c.subscribed))
	return nil
}

// Resume re-enables fetching after Pause.
func (c *Connector) Resume() error {
	const op = errors.Op("kafka_resume")

	if err := c.checkConnected(); err != nil {
		return errors.E(op, err)
	}

	if atomic.LoadUint32(&c.paused) == 0 {
		return errors.E(op, errors.Str("consumption is not paused"))
	}

	c.client.ResumeFetchTopics(c.subscribed...)
	atomic.StoreUint32(&c.paused, 0)

	c.log.Debug("consumption was resumed", zap.Strings("topics", c.subscribed))
	return nil
}

// Ready reports whether the connector is in the connected state.
func (c *Connector) Ready() bool {
	return atomic.LoadUint32(&c.state) == stateConnected
}

// Close flushes buffered sends, leaves the consumer group and releases the
// broker connections. Safe to call multiple times.
func (c *Connector) Close(ctx context.Context) error {
	start := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if atomic.LoadUint32(&c.state) != stateConnected {
		atomic.StoreUint32(&c.state, stateClosed)
		return nil
	}

	atomic.StoreUint32(&c.state, stateClosed)

	if err := c.client.Flush(ctx); err != nil {
		c.log.Error("failed to flush buffered records", zap.Error(err))
	}

	// leaves the group and triggers the final rebalance
	c.client.Close()

	c.log.Debug("connector was closed",
		zap.String("driver", pluginName),
		zap.Duration("elapsed", time.Since(start)))

	return nil
}

func (c *Connector) checkConnected() error {
	switch atomic.LoadUint32(&c.state) {
	case stateConnected:
		return nil
	case stateClosed:
		return ErrClosed
	default:
		return ErrNotConnected
	}
}
