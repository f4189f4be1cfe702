package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	UpdateEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schematune_update_events_total",
		Help: "Total number of record updates handed to the optimizer.",
	})

	UpdateEventsThrottledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schematune_update_events_throttled_total",
		Help: "Total number of record updates skipped by the rate limiter.",
	})

	DecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schematune_decisions_total",
		Help: "Optimizer decisions by kind and outcome.",
	}, []string{"kind", "outcome"})

	AbortsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schematune_aborts_total",
		Help: "Attempts abandoned on a database error, by step.",
	}, []string{"step"})

	ShadowCleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schematune_shadow_cleanup_failures_total",
		Help: "Total number of shadow column drops that failed after an attempt.",
	})

	VerifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schematune_verify_seconds",
		Help:    "Time spent verifying a candidate column type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	RecordWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "schematune_record_writes_total",
		Help: "Record store writes by table.",
	}, []string{"table"})
)
