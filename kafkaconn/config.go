package kafkaconn

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/roadrunner-server/errors"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultServer     string = "127.0.0.1:9092"
	defaultGroup      string = "stoq"
	defaultErrorTopic string = "stoq-errors"

	defaultRetries     int           = 5
	defaultBackoffBase time.Duration = time.Millisecond * 200
	defaultBackoffCap  time.Duration = time.Second * 5
	defaultPingTimeout time.Duration = time.Second * 10
	defaultPollRecords int           = 100
)

// Config holds the connector options recognized from the plugin manifest plus
// the extended broker tuning sections. It is read-only after InitDefault.
type Config struct {
	// manifest options
	Servers      []string `mapstructure:"servers_list"`
	Group        string   `mapstructure:"group"`
	Retries      *int     `mapstructure:"retries"`
	Multiprocess bool     `mapstructure:"multiprocess"`

	// dead-letter target for publishes that exhaust the retry budget
	ErrorTopic string `mapstructure:"error_topic"`

	AutoCreateTopics bool     `mapstructure:"auto_create_topics_enable"`
	Backoff          *Backoff `mapstructure:"backoff"`
	Ping             *Ping    `mapstructure:"ping"`
	TLS              *TLS     `mapstructure:"tls"`
	SASL             *SASL    `mapstructure:"sasl"`

	ProducerOpts *ProducerOpts `mapstructure:"producer_options"`
	ConsumerOpts *ConsumerOpts `mapstructure:"consumer_options"`
	GroupOpts    *GroupOptions `mapstructure:"group_options"`
}

// InitDefault validates the configuration, fills in the defaults and derives
// the broker client options. No side effects beyond normalizing the receiver.
func (c *Config) InitDefault() ([]kgo.Opt, error) {
	const op = errors.Op("kafka_config_init")

	if len(c.Servers) == 0 {
		c.Servers = []string{defaultServer}
	}

	// a single entry may carry the whole comma-separated bootstrap list
	servers := make([]string, 0, len(c.Servers))
	for _, s := range c.Servers {
		for _, hp := range strings.Split(s, ",") {
			hp = strings.TrimSpace(hp)
			if hp == "" {
				continue
			}
			if _, _, err := net.SplitHostPort(hp); err != nil {
				return nil, errors.E(op, fmt.Errorf("%w: malformed broker address %q: %v", ErrConfig, hp, err))
			}
			servers = append(servers, hp)
		}
	}

	if len(servers) == 0 {
		return nil, errors.E(op, fmt.Errorf("%w: servers_list is empty", ErrConfig))
	}
	c.Servers = servers

	if c.Group == "" {
		c.Group = defaultGroup
	}

	if c.Retries == nil {
		r := defaultRetries
		c.Retries = &r
	}
	if *c.Retries < 0 {
		return nil, errors.E(op, fmt.Errorf("%w: retries must be >= 0, got %d", ErrConfig, *c.Retries))
	}

	if c.ErrorTopic == "" {
		c.ErrorTopic = defaultErrorTopic
	}

	if c.Backoff == nil {
		c.Backoff = &Backoff{}
	}
	if c.Backoff.Base <= 0 {
		c.Backoff.Base = defaultBackoffBase
	}
	if c.Backoff.Cap <= 0 {
		c.Backoff.Cap = defaultBackoffCap
	}

	if c.Ping == nil {
		c.Ping = &Ping{Timeout: defaultPingTimeout}
	}
	if c.Ping.Timeout <= 0 {
		c.Ping.Timeout = defaultPingTimeout
	}

	opts := []kgo.Opt{
		kgo.SeedBrokers(c.Servers...),
		kgo.ConsumerGroup(c.Group),
		kgo.DisableAutoCommit(),
	}

	if c.AutoCreateTopics {
		opts = append(opts, kgo.AllowAutoTopicCreation())
	}

	if c.GroupOpts != nil {
		if c.GroupOpts.InstanceID != "" {
			opts = append(opts, kgo.InstanceID(c.GroupOpts.InstanceID))
		}
		if c.GroupOpts.BlockRebalanceOnPoll {
			opts = append(opts, kgo.BlockRebalanceOnPoll())
		}
	}

	popts, err := c.producerOpts()
	if err != nil {
		return nil, errors.E(op, err)
	}
	opts = append(opts, popts...)

	copts, err := c.consumerOpts()
	if err != nil {
		return nil, errors.E(op, err)
	}
	opts = append(opts, copts...)

	if c.TLS != nil {
		tlsc, errT := tlsConfig(c.TLS)
		if errT != nil {
			return nil, errors.E(op, errT)
		}
		opts = append(opts, kgo.DialTLSConfig(tlsc))
		if c.TLS.Timeout > 0 {
			opts = append(opts, kgo.DialTimeout(c.TLS.Timeout))
		}
	}

	if c.SASL != nil {
		mech, errS := saslMechanism(c.SASL)
		if errS != nil {
			return nil, errors.E(op, errS)
		}
		opts = append(opts, kgo.SASL(mech))
	}

	return opts, nil
}

func (c *Config) producerOpts() ([]kgo.Opt, error) {
	if c.ProducerOpts == nil {
		return nil, nil
	}

	var opts []kgo.Opt
	po := c.ProducerOpts

	switch po.RequiredAcks {
	case NoAck:
		opts = append(opts, kgo.RequiredAcks(kgo.NoAck()), kgo.DisableIdempotentWrite())
	case LeaderAck:
		opts = append(opts, kgo.RequiredAcks(kgo.LeaderAck()), kgo.DisableIdempotentWrite())
	case AllISRAck, "":
		opts = append(opts, kgo.RequiredAcks(kgo.AllISRAcks()))
		if po.DisableIdempotent {
			opts = append(opts, kgo.DisableIdempotentWrite())
		}
	default:
		return nil, fmt.Errorf("%w: unknown required_acks: %s", ErrConfig, po.RequiredAcks)
	}

	if po.MaxMessageBytes > 0 {
		opts = append(opts, kgo.ProducerBatchMaxBytes(po.MaxMessageBytes))
	}
	if po.RequestTimeout > 0 {
		opts = append(opts, kgo.ProduceRequestTimeout(po.RequestTimeout))
	}
	if po.DeliveryTimeout > 0 {
		opts = append(opts, kgo.RecordDeliveryTimeout(po.DeliveryTimeout))
	}

	switch po.CompressionCodec {
	case "":
	case gzip:
		opts = append(opts, kgo.ProducerBatchCompression(kgo.GzipCompression()))
	case snappy:
		opts = append(opts, kgo.ProducerBatchCompression(kgo.SnappyCompression()))
	case lz4:
		opts = append(opts, kgo.ProducerBatchCompression(kgo.Lz4Compression()))
	case zstd:
		opts = append(opts, kgo.ProducerBatchCompression(kgo.ZstdCompression()))
	default:
		return nil, fmt.Errorf("%w: unknown compression_codec: %s", ErrConfig, po.CompressionCodec)
	}

	return opts, nil
}

func (c *Config) consumerOpts() ([]kgo.Opt, error) {
	if c.ConsumerOpts == nil {
		return nil, nil
	}

	var opts []kgo.Opt
	co := c.ConsumerOpts

	if len(co.Topics) > 0 {
		opts = append(opts, kgo.ConsumeTopics(co.Topics...))
	}
	if co.ConsumeRegexp {
		opts = append(opts, kgo.ConsumeRegex())
	}
	if co.MaxFetchMessageSize > 0 {
		opts = append(opts, kgo.FetchMaxBytes(co.MaxFetchMessageSize))
	}
	if co.MinFetchMessageSize > 0 {
		opts = append(opts, kgo.FetchMinBytes(co.MinFetchMessageSize))
	}
	if co.MaxPollRecords <= 0 {
		co.MaxPollRecords = defaultPollRecords
	}

	if co.ConsumerOffset != nil {
		off, err := parseOffset(co.ConsumerOffset)
		if err != nil {
			return nil, err
		}
		opts = append(opts, kgo.ConsumeResetOffset(off))
	}

	return opts, nil
}

func parseOffset(o *Offset) (kgo.Offset, error) {
	switch o.Type {
	case At:
		return kgo.NewOffset().At(o.Value), nil
	case AfterMilli:
		return kgo.NewOffset().AfterMilli(o.Value), nil
	case AtEnd:
		return kgo.NewOffset().AtEnd(), nil
	case AtStart:
		return kgo.NewOffset().AtStart(), nil
	case Relative:
		return kgo.NewOffset().Relative(o.Value), nil
	default:
		return kgo.Offset{}, fmt.Errorf("%w: unknown consumer offset type: %s", ErrConfig, o.Type)
	}
}

func (c *Config) retryBudget() int {
	if c.Retries == nil {
		return defaultRetries
	}
	return *c.Retries
}

func (c *Config) pollBatch() int {
	if c.ConsumerOpts == nil || c.ConsumerOpts.MaxPollRecords <= 0 {
		return defaultPollRecords
	}
	return c.ConsumerOpts.MaxPollRecords
}

func (c *Config) topics() []string {
	if c.ConsumerOpts == nil {
		return nil
	}
	return c.ConsumerOpts.Topics
}
