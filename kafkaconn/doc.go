// Package kafkaconn implements the core Apache Kafka connector for stoQ-style
// analysis pipelines.
//
// The [Connector] type composes the producer and consumer halves of the plugin
// behind a single lifecycle: Open, Publish, Subscribe, Poll, Commit, Pause,
// Resume, and Close. It is built on top of the franz-go (kgo) Kafka client
// library; the host pipeline constructs a connector from a validated [Config]
// and drives it directly.
//
// Two factory constructors are provided:
//   - [NewConnector] — builds a Connector from an explicit Config.
//   - [FromConfig] — builds a Connector from a configuration section resolved
//     through the host's [Configurer].
//
// Publishing is synchronous with a bounded retry budget: a transient send
// failure is retried with exponential backoff, and a message that exhausts its
// budget is dead-lettered to the error-queue topic before the failure is
// reported to the caller through a [DeliveryOutcome]. Consumption is pull
// based with explicit offset commits, giving at-least-once delivery.
//
// Configuration is expressed through a set of option types:
//   - [ProducerOpts] — required acks, max message bytes, timeouts, idempotency,
//     and compression codecs (gzip, snappy, lz4, zstd).
//   - [ConsumerOpts] — topics, topic regexp, fetch sizes, poll batch size, and
//     start offset control (at, after-milli, at-end, at-start, relative).
//   - [GroupOptions] — consumer group ID, instance ID, and rebalance blocking.
//   - [SASL] — authentication via plain, SCRAM-SHA-256, SCRAM-SHA-512, or
//     AWS MSK IAM.
//   - [TLS] — client TLS with optional mutual authentication.
//
// OpenTelemetry tracing is integrated using Jaeger propagation: publish spans
// inject the trace context into record headers, and polled messages carry the
// extracted remote context.
package kafkaconn
