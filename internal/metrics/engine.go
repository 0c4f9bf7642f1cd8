package metrics

import "github.com/prometheus/client_golang/prometheus"

// Reasoning engine Prometheus metrics.
var (
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reag",
			Name:      "engine_requests_total",
			Help:      "Total number of reasoning engine calls",
		},
		[]string{"provider", "model", "stage", "status"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reag",
			Name:      "engine_request_duration_seconds",
			Help:      "Reasoning engine call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model", "stage"},
	)

	EngineTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reag",
			Name:      "engine_tokens_total",
			Help:      "Total reasoning engine tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EngineErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reag",
			Name:      "engine_errors_total",
			Help:      "Total reasoning engine errors",
		},
		[]string{"provider", "model", "error_type"},
	)

	EngineBudgetTokensRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "reag",
			Name:      "engine_budget_tokens_remaining",
			Help:      "Remaining token budget",
		},
		[]string{"provider", "period"},
	)
)

var engineMetricsRegistered bool

// RegisterEngineMetrics registers reasoning engine metrics. Must be called once from main.
func RegisterEngineMetrics() {
	if engineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EngineRequestsTotal)
	prometheus.MustRegister(EngineRequestDuration)
	prometheus.MustRegister(EngineTokensTotal)
	prometheus.MustRegister(EngineErrorsTotal)
	prometheus.MustRegister(EngineBudgetTokensRemaining)
	engineMetricsRegistered = true
}

// EngineCollectors returns the engine collectors for registration on a
// caller-supplied registry.
func EngineCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		EngineRequestsTotal,
		EngineRequestDuration,
		EngineTokensTotal,
		EngineErrorsTotal,
		EngineBudgetTokensRemaining,
	}
}
