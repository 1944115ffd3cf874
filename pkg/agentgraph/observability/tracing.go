package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager creates and manages tracing spans for workflow runs.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts a span covering a full graph run.
	StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span)

	// StartNodeSpan starts a span covering a single node execution.
	StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span)

	// EndSpanWithError ends a span, recording the error if non-nil.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event with attributes to a span.
	AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{tracer: otel.Tracer("agentgraph")}
}

// StartRunSpan starts a run span.
func (s *otelSpanManager) StartRunSpan(ctx context.Context, graphName, runID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "agentgraph.run",
		trace.WithAttributes(
			attribute.String("graph", graphName),
			attribute.String("run_id", runID),
		),
	)
}

// StartNodeSpan starts a node span as a child of the current span in ctx.
func (s *otelSpanManager) StartNodeSpan(ctx context.Context, nodeID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "agentgraph.node."+nodeID,
		trace.WithAttributes(
			attribute.String("node_id", nodeID),
		),
	)
}

// EndSpanWithError ends the span, marking it failed if err is non-nil.
func (s *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the span.
func (s *otelSpanManager) AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
