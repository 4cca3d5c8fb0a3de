package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Fetch("global", OutcomeOK)
	m.Fetch("global", OutcomeOK)
	m.Fetch("europe", OutcomeNotFound)
	m.CacheLookup(true)
	m.CacheLookup(false)
	m.Aggregation("global", nil, time.Second)
	m.Aggregation("europe", errors.New("boom"), time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.fetches.WithLabelValues("global", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("europe", OutcomeNotFound)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cache.WithLabelValues("hit")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.aggregations))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Fetch("global", OutcomeError)
		m.CacheLookup(true)
		m.Aggregation("global", nil, time.Millisecond)
	})
}
