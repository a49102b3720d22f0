package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// loadPairs counts (metric, period) outcomes: written, merged, fresh, empty, skipped
	loadPairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizstats",
			Subsystem: "warehouse",
			Name:      "load_pairs_total",
			Help:      "Metric and period pairs handled by the loader",
		},
		[]string{"metric", "outcome"},
	)

	factsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizstats",
			Subsystem: "warehouse",
			Name:      "facts_written_total",
			Help:      "Fact rows written per table and mode",
		},
		[]string{"table", "mode"},
	)

	keysDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bizstats",
			Subsystem: "warehouse",
			Name:      "keys_dropped_total",
			Help:      "Fetched keys that did not map to a known entity",
		},
		[]string{"metric"},
	)

	loadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "bizstats",
			Subsystem: "warehouse",
			Name:      "load_duration_seconds",
			Help:      "Wall time of one Load call",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	sliceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bizstats",
			Subsystem: "warehouse",
			Name:      "slice_duration_seconds",
			Help:      "Wall time of slice reads",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)
