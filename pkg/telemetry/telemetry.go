package telemetry

import (
	"batchgen/config"
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
)

// Telemetry exposes the OTLP-backed tracer and log sink. GetLogger may
// return nil when the log exporter could not be created.
type Telemetry interface {
	GetTracer() trace.Tracer
	GetLogger() log.Logger
}

type otlpTelemetry struct {
	tracer trace.Tracer
	logger log.Logger
}

type Params struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *config.AppConfig
}

// NewTelemetry returns nil when no OTLP endpoint is configured; consumers
// fall back to no-op tracing and console-only logging. The exporters read
// OTEL_EXPORTER_OTLP_* themselves.
func NewTelemetry(p Params) (Telemetry, error) {
	if p.Config.OTLPEndpoint == "" {
		return nil, nil
	}
	ctx, cancel := context.WithCancel(context.Background())

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		attribute.String("service.name", p.Config.ServiceName),
	)
	traceProvider, err := newTraceProvider(ctx, res)
	if err != nil {
		cancel()
		return nil, err
	}
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t := &otlpTelemetry{tracer: traceProvider.Tracer(p.Config.ServiceName)}

	// the log SDK is still beta, run without it if the exporter fails
	logProvider, err := newLogProvider(ctx, res)
	if err == nil {
		t.logger = logProvider.Logger(p.Config.ServiceName)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(stopCtx context.Context) error {
			defer cancel()
			errs := []error{traceProvider.Shutdown(stopCtx)}
			if logProvider != nil {
				errs = append(errs, logProvider.Shutdown(stopCtx))
			}
			return errors.Join(errs...)
		},
	})

	return t, nil
}

func newTraceProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newLogProvider(ctx context.Context, res *resource.Resource) (*sdklog.LoggerProvider, error) {
	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, err
	}
	return sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
		sdklog.WithResource(res),
	), nil
}

func (t *otlpTelemetry) GetTracer() trace.Tracer {
	return t.tracer
}

func (t *otlpTelemetry) GetLogger() log.Logger {
	return t.logger
}
