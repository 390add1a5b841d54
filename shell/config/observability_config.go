package config

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	metricExportInterval = 5 * time.Second
	shutdownTimeout      = 5 * time.Second
)

// ObservabilityProviders holds the OpenTelemetry providers of a rental binary.
type ObservabilityProviders struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Resource       *resource.Resource
}

// NewServiceResource describes the running binary for all exported telemetry.
func NewServiceResource(ctx context.Context, serviceName, serviceVersion string) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
}

// NewObservabilityConfig creates tracer and meter providers that export via OTLP gRPC to endpoint
// and installs them as the global providers.
func NewObservabilityConfig(ctx context.Context, serviceName, serviceVersion, endpoint string) (*ObservabilityProviders, error) {
	res, err := NewServiceResource(ctx, serviceName, serviceVersion)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	metricExporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, errors.Join(err, traceExporter.Shutdown(ctx))
	}

	providers := NewObservabilityProviders(
		res,
		trace.WithBatcher(traceExporter),
		metric.NewPeriodicReader(metricExporter, metric.WithInterval(metricExportInterval)),
	)

	otel.SetTracerProvider(providers.TracerProvider)
	otel.SetMeterProvider(providers.MeterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return providers, nil
}

// NewObservabilityProviders builds the providers on an explicit span export option and metric reader.
// Tests use it with in-memory exporters.
func NewObservabilityProviders(
	res *resource.Resource,
	exportOption trace.TracerProviderOption,
	reader metric.Reader,
) *ObservabilityProviders {

	return &ObservabilityProviders{
		TracerProvider: trace.NewTracerProvider(exportOption, trace.WithResource(res)),
		MeterProvider:  metric.NewMeterProvider(metric.WithReader(reader), metric.WithResource(res)),
		Resource:       res,
	}
}

// Shutdown flushes and stops both providers.
func (p *ObservabilityProviders) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return errors.Join(
		p.TracerProvider.Shutdown(ctx),
		p.MeterProvider.Shutdown(ctx),
	)
}
