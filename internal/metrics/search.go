package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobdex",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"status"}, // "ok" / "error"
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jobdex",
			Name:      "search_duration_seconds",
			Help:      "End-to-end search pipeline duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"stage"}, // "total", "retrieve", "score"
	)

	SearchPoolSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jobdex",
			Name:      "search_pool_candidates",
			Help:      "Candidates retrieved from the vector index per request",
			Buckets:   []float64{0, 5, 10, 25, 50, 75, 100, 150},
		},
	)

	SearchResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "jobdex",
			Name:      "search_results_returned",
			Help:      "Results returned after scoring and diversity trimming",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	ExplanationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jobdex",
			Name:      "explanations_total",
			Help:      "Match explanation outcomes",
		},
		[]string{"status"}, // "ok" / "fallback"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search pipeline metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchPoolSize)
	prometheus.MustRegister(SearchResultsReturned)
	prometheus.MustRegister(ExplanationsTotal)
	searchMetricsRegistered = true
}
