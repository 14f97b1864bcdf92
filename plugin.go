package kafka

import (
	"github.com/roadrunner-server/errors"
	"github.com/stoq-plugins/kafka/kafkaconn"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	pluginName string = "kafka"
)

// Configurer resolves configuration sections supplied by the host pipeline.
type Configurer interface {
	// UnmarshalKey takes a single key and unmarshal it into a Struct.
	UnmarshalKey(name string, out any) error

	// Has checks if config section exists.
	Has(name string) bool
}

// Plugin is the kafka publish/consume plugin the host pipeline loads. The
// host injects a logger and its configuration source once, then constructs
// connectors on demand: one for a single-process pipeline, N independent
// ones when the manifest allows multiprocess operation.
type Plugin struct {
	log *zap.Logger
	cfg Configurer
	tp  trace.TracerProvider
}

func (p *Plugin) Init(log *zap.Logger, cfg Configurer) error {
	p.log = new(zap.Logger)
	*p.log = *log
	p.cfg = cfg
	return nil
}

func (p *Plugin) Name() string {
	return pluginName
}

// WithTracer supplies an OpenTelemetry tracer provider for the connectors
// this plugin constructs. Optional; the global provider is used otherwise.
func (p *Plugin) WithTracer(tp trace.TracerProvider) {
	p.tp = tp
}

// ConnectorFromConfig constructs a kafka connector from the host's
// configuration under the provided key.
func (p *Plugin) ConnectorFromConfig(configKey string) (*kafkaconn.Connector, error) {
	return kafkaconn.FromConfig(configKey, p.log, p.cfg, p.connOpts()...)
}

// ConnectorFromManifest constructs a kafka connector from a parsed plugin
// manifest.
func (p *Plugin) ConnectorFromManifest(m *Manifest) (*kafkaconn.Connector, error) {
	const op = errors.Op("kafka_connector_from_manifest")

	if m == nil {
		return nil, errors.E(op, errors.Str("no manifest provided"))
	}

	return kafkaconn.NewConnector(m.ConnectorConfig(), p.log, p.connOpts()...)
}

func (p *Plugin) connOpts() []kafkaconn.Option {
	if p.tp == nil {
		return nil
	}
	return []kafkaconn.Option{kafkaconn.WithTracerProvider(p.tp)}
}
