package kafkaconn

import (
	"time"
)

// kafka configuration options
// https://pkg.go.dev/github.com/twmb/franz-go/pkg/kgo#Opt

type Acks string

const (
	NoAck     Acks = "NoAck"
	LeaderAck Acks = "LeaderAck"
	AllISRAck Acks = "AllISRAck"
)

type CompressionCodec string

const (
	gzip   CompressionCodec = "gzip"
	snappy CompressionCodec = "snappy"
	lz4    CompressionCodec = "lz4"
	zstd   CompressionCodec = "zstd"
)

type SASLMechanism string

const (
	basic       SASLMechanism = "plain"
	scramSha256 SASLMechanism = "SCRAM-SHA-256"
	scramSha512 SASLMechanism = "SCRAM-SHA-512"
	awsMskIam   SASLMechanism = "aws_msk_iam"
)

type OffsetTypes string

const (
	At         OffsetTypes = "At"
	AfterMilli OffsetTypes = "AfterMilli"
	AtEnd      OffsetTypes = "AtEnd"
	AtStart    OffsetTypes = "AtStart"
	Relative   OffsetTypes = "Relative"
)

type Offset struct {
	Type  OffsetTypes `mapstructure:"type" json:"type"`
	Value int64       `mapstructure:"value" json:"value"`
}

// Backoff shapes the retry curve for failed publishes: the first retry waits
// Base, each subsequent retry doubles the wait, capped at Cap.
type Backoff struct {
	Base time.Duration `mapstructure:"base" json:"base"`
	Cap  time.Duration `mapstructure:"cap" json:"cap"`
}

type Ping struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

type GroupOptions struct {
	InstanceID           string `mapstructure:"instance_id" json:"instance_id"`
	BlockRebalanceOnPoll bool   `mapstructure:"block_rebalance_on_poll" json:"block_rebalance_on_poll"`
}

type ProducerOpts struct {
	DisableIdempotent bool             `mapstructure:"disable_idempotent" json:"disable_idempotent"`
	RequiredAcks      Acks             `mapstructure:"required_acks" json:"required_acks"`
	MaxMessageBytes   int32            `mapstructure:"max_message_bytes" json:"max_message_bytes"`
	RequestTimeout    time.Duration    `mapstructure:"request_timeout" json:"request_timeout"`
	DeliveryTimeout   time.Duration    `mapstructure:"delivery_timeout" json:"delivery_timeout"`
	CompressionCodec  CompressionCodec `mapstructure:"compression_codec" json:"compression_codec"`
}

type ConsumerOpts struct {
	Topics              []string `mapstructure:"topics" json:"topics"`
	ConsumeRegexp       bool     `mapstructure:"consume_regexp" json:"consume_regexp"`
	MaxFetchMessageSize int32    `mapstructure:"max_fetch_message_size" json:"max_fetch_message_size"`
	MinFetchMessageSize int32    `mapstructure:"min_fetch_message_size" json:"min_fetch_message_size"`
	MaxPollRecords      int      `mapstructure:"max_poll_records" json:"max_poll_records"`
	ConsumerOffset      *Offset  `mapstructure:"consumer_offset" json:"consumer_offset"`
}

type SASL struct {
	Type SASLMechanism `mapstructure:"mechanism" json:"mechanism"`

	// plain + SHA
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	Zid      string `mapstructure:"zid" json:"zid"`
	Nonce    []byte `mapstructure:"nonce" json:"nonce"`
	IsToken  bool   `mapstructure:"is_token" json:"is_token"`

	// aws_msk_iam; when the static keys are empty the ambient AWS
	// credential chain is used instead
	AccessKey    string `mapstructure:"access_key" json:"access_key"`
	SecretKey    string `mapstructure:"secret_key" json:"secret_key"`
	SessionToken string `mapstructure:"session_token" json:"session_token"`
	UserAgent    string `mapstructure:"user_agent" json:"user_agent"`
}

type TLS struct {
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
	Key     string        `mapstructure:"key" json:"key"`
	Cert    string        `mapstructure:"cert" json:"cert"`
	RootCA  string        `mapstructure:"root_ca" json:"root_ca"`
}
