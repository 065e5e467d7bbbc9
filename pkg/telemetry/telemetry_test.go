package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/noop"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type recordingTelemetry struct {
	tracer trace.Tracer
}

func (r *recordingTelemetry) GetTracer() trace.Tracer { return r.tracer }
func (r *recordingTelemetry) GetLogger() log.Logger   { return noop.NewLoggerProvider().Logger("test") }

func TestNewTracerWithoutTelemetryIsDummy(t *testing.T) {
	factory := NewTracerFactory(TracerFactoryParams{})
	tracer := factory.NewTracer(context.Background(), "batch_run")

	_, ok := tracer.(*DummyTracer)
	assert.True(t, ok)
	tracer.Start()
	tracer.AddEvent("ignored", nil)
	assert.Empty(t, tracer.Export())
	tracer.End()
}

func TestTelemetryTracerRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	factory := NewTracerFactory(TracerFactoryParams{
		Telemetry: &recordingTelemetry{tracer: provider.Tracer("test")},
	})

	run := factory.NewTracer(context.Background(), "batch_run")
	run.WithAttributes(EmptySpanAttributes().WithRunID("run-1").WithGenIters(5))
	run.Start()

	child := run.Spawn("generate_case")
	child.WithAttributes(EmptySpanAttributes().WithSeed("TestA").WithCaseIndex(1))
	child.Start()
	child.AddEvent("attempt", NewEventAttributes(map[string]string{"attempt": "1"}))
	child.SetStatus(codes.Ok, "materialized")
	child.End()
	run.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	caseSpan := spans[0]
	assert.Equal(t, "generate_case", caseSpan.Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), caseSpan.Parent().SpanID())
	assert.Contains(t, caseSpan.Attributes(), attribute.String("batchgen.run.id", "run-1"))
	assert.Contains(t, caseSpan.Attributes(), attribute.String("batchgen.seed", "TestA"))
	assert.Contains(t, caseSpan.Attributes(), attribute.Int("batchgen.case.index", 1))
	require.Len(t, caseSpan.Events(), 1)
	assert.Equal(t, "attempt", caseSpan.Events()[0].Name)
}

func TestMergeKeepsExistingValues(t *testing.T) {
	base := EmptySpanAttributes().WithSeed("TestA")
	base.Merge(EmptySpanAttributes().WithSeed("TestB").WithCaseIndex(2))

	attrs := base.Attributes()
	assert.Contains(t, attrs, attribute.String("batchgen.seed", "TestA"))
	assert.Contains(t, attrs, attribute.Int("batchgen.case.index", 2))
}
