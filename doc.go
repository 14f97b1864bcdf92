// Package kafka provides the publish/consume plugin an analysis pipeline
// loads to exchange payloads with Apache Kafka.
//
// The [Plugin] type implements the host plugin lifecycle (Init, Name) and
// exposes two factory methods — ConnectorFromConfig and ConnectorFromManifest —
// that delegate to the [kafkaconn] package for the actual connector
// construction. Configuration is read either from the host's configuration
// source under the "kafka" key or from an INI plugin [Manifest].
//
// The plugin declares two dependency-injection surfaces:
//   - a *zap.Logger instance, injected on Init.
//   - [Configurer] — unmarshals configuration sections and checks their
//     existence.
//
// An OpenTelemetry TracerProvider may additionally be supplied through
// WithTracer for distributed tracing of publishes and polls.
package kafka
