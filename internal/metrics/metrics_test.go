package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Event(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Event(EventLogin, OutcomeOK)
	m.Event(EventLogin, OutcomeOK)
	m.Event(EventLogin, OutcomeInvalidCredentials)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues(EventLogin, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(EventLogin, OutcomeInvalidCredentials)))
}

func TestMetrics_ObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest(http.MethodPost, "/login", http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "/login", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.Event(EventSignup, OutcomeOK)
		m.ObserveRequest(http.MethodGet, "/healthz", http.StatusOK, time.Millisecond)
	})
}
