package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "merchant_status"

const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// Metrics is safe to use on a nil receiver, which records nothing.
type Metrics struct {
	fetches      *prometheus.CounterVec
	aggregations *prometheus.HistogramVec
	cache        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		fetches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_total",
				Help:      "Per merchant status outcomes",
			},
			[]string{"region", "outcome"},
		),
		aggregations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_duration_seconds",
				Help:      "Wall time of a region aggregation",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"region", "result"},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_total",
				Help:      "Response cache lookups",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) Fetch(region, outcome string) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(region, outcome).Inc()
}

func (m *Metrics) Aggregation(region string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	m.aggregations.WithLabelValues(region, result).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}
