package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DispatchesTotal counts dispatch passes by terminal outcome
	DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandpulse",
		Name:      "dispatches_total",
		Help:      "Dispatch passes by outcome (dispatched, exhausted, failed).",
	}, []string{"outcome"})

	// ActionsTotal counts executed workflow actions by type
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "brandpulse",
		Name:      "actions_total",
		Help:      "Executed workflow actions by action type.",
	}, []string{"action"})

	// ClassifierDuration observes AI classifier call latency
	ClassifierDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "brandpulse",
		Name:      "classifier_duration_seconds",
		Help:      "Latency of AI classifier calls.",
		Buckets:   prometheus.DefBuckets,
	})

	// ClassifierErrors counts failed or timed-out classifier calls
	ClassifierErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brandpulse",
		Name:      "classifier_errors_total",
		Help:      "AI classifier calls that failed or timed out.",
	})

	// ClassifierCacheHits counts classifier verdicts served from cache
	ClassifierCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "brandpulse",
		Name:      "classifier_cache_hits_total",
		Help:      "Classifier verdicts served from the LRU cache.",
	})
)
