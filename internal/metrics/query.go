package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline Prometheus metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reag",
			Name:      "queries_total",
			Help:      "Total queries by final stage",
		},
		[]string{"stage"},
	)

	QueryDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reag",
			Name:      "query_documents_total",
			Help:      "Documents seen by the query pipeline by outcome",
		},
		[]string{"outcome"}, // "filtered_out" / "submitted" / "irrelevant" / "returned"
	)

	QueryDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reag",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers query pipeline metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueriesTotal)
	prometheus.MustRegister(QueryDocumentsTotal)
	prometheus.MustRegister(QueryDuration)
	queryMetricsRegistered = true
}

// QueryCollectors returns the query pipeline collectors.
func QueryCollectors() []prometheus.Collector {
	return []prometheus.Collector{QueriesTotal, QueryDocumentsTotal, QueryDuration}
}
