package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search engine metrics, observed once per recorded search.
var (
	SearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of recorded searches",
		},
		[]string{"type", "outcome"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Time spent fetching, scoring and highlighting documents",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"type"},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of matching documents per successful search",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	HistoryWriteErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_write_errors_total",
			Help:      "Search history entries that could not be stored",
		},
	)

	LiveListeners = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_listeners",
			Help:      "Connected live search feed clients",
		},
	)
)

func init() {
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(HistoryWriteErrorsTotal)
	prometheus.MustRegister(LiveListeners)
}

// ObserveSearch records one search outcome.
func ObserveSearch(searchType, outcome string, elapsed time.Duration, results int) {
	SearchesTotal.WithLabelValues(searchType, outcome).Inc()
	SearchDuration.WithLabelValues(searchType).Observe(elapsed.Seconds())
	if outcome == "success" {
		SearchResults.Observe(float64(results))
	}
}
