package internal

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/sanLimbu/esindex/internal"
	"github.com/sanLimbu/esindex/internal/envvar"
)

//NewOTExporter instantiates the OpenTelemetry exporters using configuration defined in environment
//variables. Traces are only exported when JAEGER_ENDPOINT is set.
func NewOTExporter(conf *envvar.Configuration, serviceName string) (*prometheus.Exporter, error) {
	promExporter, err := prometheus.New(prometheus.WithoutUnits())
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "prometheus.New")
	}

	otel.SetMeterProvider(metric.NewMeterProvider(metric.WithReader(promExporter)))

	jaegerEndpoint, err := conf.Get("JAEGER_ENDPOINT")
	if err != nil {
		return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "conf.Get JAEGER_ENDPOINT")
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	}

	if jaegerEndpoint != "" {
		jaegerExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			return nil, internal.WrapErrorf(err, internal.ErrorCodeUnknown, "jaeger.New")
		}

		opts = append(opts, sdktrace.WithBatcher(jaegerExporter))
	}

	otel.SetTracerProvider(sdktrace.NewTracerProvider(opts...))

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return promExporter, nil
}
