package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "text2sql_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_questions_total",
			Help: "Questions answered, labelled by outcome (ok or the failure kind).",
		},
		[]string{"outcome"},
	)
	modelLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "text2sql_model_latency_seconds",
			Help:    "Latency of language model completions.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"provider", "status"},
	)
	sqlExecutionSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "text2sql_sql_execution_seconds",
			Help:    "Latency of generated SQL execution.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	resultRows = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text2sql_result_rows",
			Help:    "Rows returned per executed statement.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	schemaTables = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "text2sql_schema_tables",
			Help: "Tables seen in the most recent schema read.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		questionsTotal,
		modelLatencySeconds,
		sqlExecutionSeconds,
		resultRows,
		schemaTables,
	)
}

func ObserveQuestion(outcome string) {
	questionsTotal.WithLabelValues(outcome).Inc()
}

func ObserveModelCall(provider string, elapsed time.Duration, err error) {
	modelLatencySeconds.WithLabelValues(provider, statusLabel(err)).Observe(elapsed.Seconds())
}

func ObserveExecution(rows int, elapsed time.Duration, err error) {
	sqlExecutionSeconds.WithLabelValues(statusLabel(err)).Observe(elapsed.Seconds())
	if err == nil {
		resultRows.Observe(float64(rows))
	}
}

func SetSchemaTables(count int) {
	schemaTables.Set(float64(count))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
