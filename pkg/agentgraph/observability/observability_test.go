package observability

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestEnrichLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	enriched := EnrichLogger(logger, "run-1", "fetch", 2)
	enriched.Info("hello")

	out := buf.String()
	assert.Contains(t, out, `"run_id":"run-1"`)
	assert.Contains(t, out, `"node_id":"fetch"`)
	assert.Contains(t, out, `"attempt":2`)

	assert.Nil(t, EnrichLogger(nil, "run-1", "fetch", 1))
}

func TestLogHelpersNilSafe(t *testing.T) {
	assert.NotPanics(t, func() {
		LogRunStart(nil, "g", "r")
		LogRunComplete(nil, "g", "r", 1.0, 3)
		LogRunError(nil, "g", "r", errors.New("boom"), 1.0, "n")
		LogNodeStart(nil, "n")
		LogNodeComplete(nil, "n", 1.0)
		LogNodeError(nil, "n", errors.New("boom"))
		LogCheckpoint(nil, "t", "n", 10)
		LogCheckpointError(nil, "n", "save", errors.New("boom"))
	})
}

func TestLogRunEvents(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogRunStart(logger, "pipeline", "run-42")
	LogNodeStart(logger, "summarize")
	LogNodeComplete(logger, "summarize", 12.5)
	LogRunComplete(logger, "pipeline", "run-42", 30.0, 2)

	out := buf.String()
	assert.Contains(t, out, "run starting")
	assert.Contains(t, out, `"graph":"pipeline"`)
	assert.Contains(t, out, "node completed")
	assert.Contains(t, out, `"nodes_executed":2`)
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), float64(0))
}

func TestOtelMetricsRecords(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	defer otel.SetMeterProvider(prev)

	m, err := newOtelMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordNodeExecution(ctx, "pipeline", "fetch", 10*time.Millisecond, nil)
	m.RecordNodeExecution(ctx, "pipeline", "fetch", 10*time.Millisecond, errors.New("boom"))
	m.RecordRun(ctx, "pipeline", true, 25*time.Millisecond)
	m.RecordCheckpoint(ctx, "pipeline", "thread-1", 128)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := make([]string, 0)
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			names = append(names, met.Name)
		}
	}
	assert.Contains(t, names, "agentgraph.node.executions")
	assert.Contains(t, names, "agentgraph.node.latency_ms")
	assert.Contains(t, names, "agentgraph.node.errors")
	assert.Contains(t, names, "agentgraph.runs")
	assert.Contains(t, names, "agentgraph.checkpoint.size_bytes")
}

func TestSpanManagerRecordsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(prev)

	sm := NewSpanManager()
	ctx, runSpan := sm.StartRunSpan(context.Background(), "pipeline", "run-1")
	_, nodeSpan := sm.StartNodeSpan(ctx, "fetch")
	sm.AddSpanEvent(nodeSpan, "retry")
	sm.EndSpanWithError(nodeSpan, errors.New("boom"))
	sm.EndSpanWithError(runSpan, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "agentgraph.node.fetch", spans[0].Name)
	assert.Equal(t, "agentgraph.run", spans[1].Name)
}

func TestNoopImplementations(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordNodeExecution(context.Background(), "g", "n", time.Millisecond, nil)
		m.RecordRun(context.Background(), "g", true, time.Millisecond)
		m.RecordCheckpoint(context.Background(), "g", "t", 1)
	})

	var sm SpanManager = NoopSpanManager{}
	ctx, span := sm.StartRunSpan(context.Background(), "g", "r")
	require.NotNil(t, ctx)
	assert.False(t, span.IsRecording())
	sm.EndSpanWithError(span, nil)
}

func TestPrometheusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheusMetrics(reg)

	ctx := context.Background()
	m.RecordNodeExecution(ctx, "pipeline", "fetch", 10*time.Millisecond, nil)
	m.RecordNodeExecution(ctx, "pipeline", "fetch", 10*time.Millisecond, errors.New("boom"))
	m.RecordRun(ctx, "pipeline", false, 25*time.Millisecond)
	m.RecordCheckpoint(ctx, "pipeline", "thread-1", 512)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["agentgraph_node_executions_total"])
	assert.True(t, names["agentgraph_runs_total"])
	assert.True(t, names["agentgraph_checkpoint_size_bytes"])
}
