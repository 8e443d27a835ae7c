package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "driftwatch_parse_seconds",
		Help:    "Time spent parsing one document or source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "driftwatch_phase_seconds",
		Help:    "Time spent in each analysis phase (scan, parse, detect, delta, persist).",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	IssuesFound = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "driftwatch_issues",
		Help: "Issues found in the most recent run, by type.",
	}, []string{"type"})

	HealthScore = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftwatch_health_score",
		Help: "Health score of the most recent run (0-100).",
	})

	DetectorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "driftwatch_detector_failures_total",
		Help: "Total detector runs that ended in an isolated failure.",
	}, []string{"detector"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftwatch_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RescansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftwatch_rescans_total",
		Help: "Total number of watch-mode rescans triggered.",
	})

	RescansThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftwatch_rescans_throttled_total",
		Help: "Total number of watch-mode rescans dropped by the rate limiter.",
	})

	StoreRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftwatch_store_retries_total",
		Help: "Total number of retried history store operations.",
	})
)
