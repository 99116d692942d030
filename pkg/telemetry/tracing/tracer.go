package tracing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc/credentials/insecure"

	"taxwise-hq/sentinel/pkg/config"
)

// InstrumentationName names the tracer created by this package.
const InstrumentationName = "taxwise-hq/sentinel"

// Tracer wraps the OpenTelemetry tracer and its provider.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	enabled  bool
}

// Option customizes New.
type Option func(*options)

type options struct {
	exporter  sdktrace.SpanExporter
	setGlobal bool
}

// WithExporter sends spans synchronously to exp instead of the configured
// OTLP endpoint.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// WithoutGlobal leaves the global tracer provider and propagator untouched.
func WithoutGlobal() Option {
	return func(o *options) { o.setGlobal = false }
}

// New creates a Tracer from cfg. The tracer must be shut down when no
// longer needed.
func New(cfg *config.TracingConfig, serviceName, version string, opts ...Option) (*Tracer, error) {
	if cfg == nil {
		return nil, errors.New("tracing config is nil")
	}

	o := options{setGlobal: true}
	for _, opt := range opts {
		opt(&o)
	}

	if !cfg.Enabled {
		return NewNoop(), nil
	}

	sampler, err := createSampler(cfg.Sampler, cfg.SampleRatio)
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler: %w", err)
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providerOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	}
	switch {
	case o.exporter != nil:
		providerOpts = append(providerOpts, sdktrace.WithSyncer(o.exporter))
	case cfg.Endpoint != "":
		exporter, err := createOTLPExporter(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create exporter: %w", err)
		}
		providerOpts = append(providerOpts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(providerOpts...)

	if o.setGlobal {
		otel.SetTracerProvider(provider)
		otel.SetTextMapPropagator(
			propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			),
		)
	}

	return &Tracer{
		tracer:   provider.Tracer(InstrumentationName),
		provider: provider,
		enabled:  true,
	}, nil
}

// NewNoop returns a Tracer whose spans are never recorded.
func NewNoop() *Tracer {
	return &Tracer{tracer: noop.NewTracerProvider().Tracer(InstrumentationName)}
}

// Start creates a span that is a child of any span in ctx. The returned
// span must be ended.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Shutdown flushes pending spans and stops the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// Enabled returns whether tracing is enabled.
func (t *Tracer) Enabled() bool {
	return t.enabled
}

// createOTLPExporter creates an OTLP gRPC exporter. The connection is
// established lazily, so an unreachable collector does not block startup.
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

// SpanContext returns the span context from ctx. It is invalid when ctx
// carries no span.
func SpanContext(ctx context.Context) trace.SpanContext {
	return trace.SpanFromContext(ctx).SpanContext()
}

// TraceID returns the trace id in ctx, or "".
func TraceID(ctx context.Context) string {
	sc := SpanContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// SpanID returns the span id in ctx, or "".
func SpanID(ctx context.Context) string {
	sc := SpanContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.SpanID().String()
}

// SetStatus records err on span and sets its status. A nil err marks the
// span OK.
func SetStatus(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetAttributes(attribute.Bool("error", true))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
