package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rl1809/plate-catalog/internal/core/domain"
)

var (
	lifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_lifecycle_transitions_total",
			Help: "Plate lifecycle transition attempts by operation and result",
		},
		[]string{"operation", "result"},
	)
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_result_cache_lookups_total",
			Help: "Result cache lookups by outcome",
		},
		[]string{"outcome"},
	)
	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_query_duration_seconds",
			Help:    "Catalog query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)
)

// transitionResult separates refusals by the state machine from store faults.
func transitionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrNotFound):
		return "rejected"
	default:
		return "error"
	}
}
