package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	queryTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpeek_query_total",
			Help: "Total number of gateway operations by engine and outcome.",
		},
		[]string{"engine", "operation", "outcome"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlpeek_query_duration_seconds",
			Help:    "Adapter call latency by engine and operation.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"engine", "operation"},
	)
	policyRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpeek_policy_rejections_total",
			Help: "Total number of queries rejected by the read-only policy, by keyword.",
		},
		[]string{"keyword"},
	)
	exportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlpeek_exports_total",
			Help: "Total number of result exports by format and destination.",
		},
		[]string{"format", "destination"},
	)
	shareDecodeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlpeek_share_decode_failures_total",
			Help: "Total number of share tokens that failed to decode.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		queryTotal,
		queryDurationSeconds,
		policyRejectionsTotal,
		exportsTotal,
		shareDecodeFailuresTotal,
	)
}

func ObserveQuery(engine, operation, outcome string, elapsed time.Duration) {
	if engine == "" {
		engine = "unknown"
	}
	queryTotal.WithLabelValues(engine, operation, outcome).Inc()
	if elapsed > 0 {
		queryDurationSeconds.WithLabelValues(engine, operation).Observe(elapsed.Seconds())
	}
}

func IncrementPolicyRejection(keyword string) {
	policyRejectionsTotal.WithLabelValues(keyword).Inc()
}

func IncrementExport(format, destination string) {
	exportsTotal.WithLabelValues(format, destination).Inc()
}

func IncrementShareDecodeFailure() {
	shareDecodeFailuresTotal.Inc()
}
