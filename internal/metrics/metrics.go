package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bomweather_fetches_total",
			Help: "Total upstream retrievals by transport and outcome",
		},
		[]string{"transport", "status"},
	)

	FetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bomweather_fetch_latency_seconds",
			Help:    "Upstream retrieval latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transport"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bomweather_cache_lookups_total",
			Help: "Lookup table cache lookups by key and result (hit, miss, refresh)",
		},
		[]string{"key", "result"},
	)

	DataQualityWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bomweather_data_quality_warnings_total",
			Help: "Upstream values that disagreed with themselves or looked implausible",
		},
		[]string{"kind"},
	)
)
