package observability

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements MetricsRecorder backed by Prometheus
// collectors. Use it when the application scrapes metrics instead of
// pushing them through an OTel pipeline.
type PrometheusMetrics struct {
	nodeExecutions *prometheus.CounterVec
	nodeLatency    *prometheus.HistogramVec
	runs           *prometheus.CounterVec
	runLatency     *prometheus.HistogramVec
	checkpointSize *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a recorder registered with reg.
// Pass prometheus.DefaultRegisterer to use the default registry.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		nodeExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgraph_node_executions_total",
			Help: "Number of node executions.",
		}, []string{"graph", "node_id", "status"}),
		nodeLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentgraph_node_duration_seconds",
			Help:    "Node execution duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"graph", "node_id"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "agentgraph_runs_total",
			Help: "Number of workflow runs.",
		}, []string{"graph", "status"}),
		runLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentgraph_run_duration_seconds",
			Help:    "Workflow run duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"graph"}),
		checkpointSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agentgraph_checkpoint_size_bytes",
			Help:    "Checkpoint size in bytes.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 10),
		}, []string{"graph"}),
	}
}

// RecordNodeExecution records a node execution.
func (m *PrometheusMetrics) RecordNodeExecution(ctx context.Context, graph, nodeID string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.nodeExecutions.WithLabelValues(graph, nodeID, status).Inc()
	m.nodeLatency.WithLabelValues(graph, nodeID).Observe(duration.Seconds())
}

// RecordRun records a workflow run.
func (m *PrometheusMetrics) RecordRun(ctx context.Context, graph string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.runs.WithLabelValues(graph, status).Inc()
	m.runLatency.WithLabelValues(graph).Observe(duration.Seconds())
}

// RecordCheckpoint records a checkpoint save.
func (m *PrometheusMetrics) RecordCheckpoint(ctx context.Context, graph, threadID string, sizeBytes int64) {
	m.checkpointSize.WithLabelValues(graph).Observe(float64(sizeBytes))
}
