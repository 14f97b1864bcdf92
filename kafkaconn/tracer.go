package kafkaconn

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
	jprop "go.opentelemetry.io/contrib/propagators/jaeger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName string = "stoq-plugins/kafka"

type tracer struct {
	tracer trace.Tracer
	prop   propagation.TextMapPropagator
}

func newTracer(tp trace.TracerProvider) *tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return &tracer{
		tracer: tp.Tracer(tracerName),
		prop: propagation.NewCompositeTextMapPropagator(
			jprop.Jaeger{},
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}
}

func (t *tracer) startPublish(ctx context.Context, rec *kgo.Record) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, "kafka_publish", trace.WithSpanKind(trace.SpanKindProducer))
	t.prop.Inject(ctx, &recordCarrier{rec: rec})
	return ctx, span
}

func (t *tracer) extract(ctx context.Context, rec *kgo.Record) context.Context {
	return t.prop.Extract(ctx, &recordCarrier{rec: rec})
}

// recordCarrier adapts kafka record headers to the propagation carrier.
type recordCarrier struct {
	rec *kgo.Record
}

func (c *recordCarrier) Get(key string) string {
	for i := range c.rec.Headers {
		if c.rec.Headers[i].Key == key {
			return string(c.rec.Headers[i].Value)
		}
	}
	return ""
}

func (c *recordCarrier) Set(key, value string) {
	for i := range c.rec.Headers {
		if c.rec.Headers[i].Key == key {
			c.rec.Headers[i].Value = []byte(value)
			return
		}
	}
	c.rec.Headers = append(c.rec.Headers, kgo.RecordHeader{Key: key, Value: []byte(value)})
}

func (c *recordCarrier) Keys() []string {
	keys := make([]string, 0, len(c.rec.Headers))
	for i := range c.rec.Headers {
		keys = append(keys, c.rec.Headers[i].Key)
	}
	return keys
}
