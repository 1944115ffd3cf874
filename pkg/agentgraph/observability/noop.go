package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that discards all measurements.
type NoopMetrics struct{}

// RecordNodeExecution does nothing.
func (NoopMetrics) RecordNodeExecution(ctx context.Context, graph, nodeID string, duration time.Duration, err error) {
}

// RecordRun does nothing.
func (NoopMetrics) RecordRun(ctx context.Context, graph string, success bool, duration time.Duration) {
}

// RecordCheckpoint does nothing.
func (NoopMetrics) RecordCheckpoint(ctx context.Context, graph, threadID string, sizeBytes int64) {}

// NoopSpanManager is a SpanManager that produces non-recording spans.
type NoopSpanManager struct{}

var noopTracer = noop.NewTracerProvider().Tracer("agentgraph")

// StartRunSpan returns a non-recording span.
func (NoopSpanManager) StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span) {
	return noopTracer.Start(ctx, "agentgraph.run")
}

// StartNodeSpan returns a non-recording span.
func (NoopSpanManager) StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return noopTracer.Start(ctx, "agentgraph.node")
}

// EndSpanWithError ends the span.
func (NoopSpanManager) EndSpanWithError(span trace.Span, err error) {
	span.End()
}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {}
