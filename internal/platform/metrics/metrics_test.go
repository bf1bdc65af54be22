package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("POST", "/approvals/{id}/votes", 200, 20*time.Millisecond)
	m.ObserveRequest("POST", "/approvals/{id}/votes", 200, 30*time.Millisecond)
	m.ObserveRequest("POST", "/approvals/{id}/votes", 409, time.Millisecond)

	assert.Equal(t, 2.0, promtest.ToFloat64(m.Requests.WithLabelValues("POST", "/approvals/{id}/votes", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.Requests.WithLabelValues("POST", "/approvals/{id}/votes", "409")))
	assert.Equal(t, 1, promtest.CollectAndCount(m.RequestDuration))
}

func TestNilMetricsIgnoresObservations(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/healthz", 200, time.Millisecond)
	})
}
