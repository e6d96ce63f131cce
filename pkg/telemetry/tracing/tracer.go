package tracing

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/beaconlog/pkg/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"
)

// instrumentationName names the tracer returned by Tracer.Start.
const instrumentationName = "beaconlog"

// Tracer owns the process tracer provider. Components obtain tracers with
// otel.Tracer, so New installs the provider globally.
type Tracer struct {
	config   *config.TracingConfig
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
}

// New creates a Tracer. When tracing is disabled the global provider is
// left untouched and spans are no-ops.
//
// The tracer must be shut down when no longer needed:
//
//	defer tracer.Shutdown(context.Background())
func New(cfg *config.TracingConfig, version string) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}

	t := &Tracer{
		config:  cfg,
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		t.tracer = noop.NewTracerProvider().Tracer(instrumentationName)
		return t, nil
	}

	sampler, err := createSampler(cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	exporter, err := createOTLPExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	return t.install(exporter, sampler, version)
}

// NewWithExporter creates an enabled Tracer that sends spans to exporter
// synchronously. It is used with in-memory exporters.
func NewWithExporter(cfg *config.TracingConfig, exporter sdktrace.SpanExporter, version string) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}
	sampler, err := createSampler(cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	t := &Tracer{config: cfg, enabled: true}
	return t.installWith(sdktrace.WithSyncer(exporter), sampler, version)
}

func (t *Tracer) install(exporter sdktrace.SpanExporter, sampler sdktrace.Sampler, version string) (*Tracer, error) {
	return t.installWith(sdktrace.WithBatcher(exporter), sampler, version)
}

func (t *Tracer) installWith(exporterOpt sdktrace.TracerProviderOption, sampler sdktrace.Sampler, version string) (*Tracer, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(t.config.ServiceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	t.provider = sdktrace.NewTracerProvider(
		exporterOpt,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(t.provider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	t.tracer = t.provider.Tracer(instrumentationName)
	return t, nil
}

// Start creates a new span with the given name and options.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes any pending spans and shuts down the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if !t.enabled || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Enabled returns whether tracing is enabled.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// createOTLPExporter creates an OTLP gRPC exporter. The connection is
// established lazily, so a missing collector does not fail startup.
func createOTLPExporter(cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}

	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, otlptracegrpc.WithTimeout(cfg.Timeout))
	}

	exporter, err := otlptrace.New(context.Background(), otlptracegrpc.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}
	return exporter, nil
}
