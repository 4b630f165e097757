package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIMetrics_IsolatedRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		NewAPIMetrics(prometheus.NewRegistry())
		NewAPIMetrics(prometheus.NewRegistry())
	})
}

func TestAPIMetrics_AuthEvent(t *testing.T) {
	m := NewAPIMetrics(prometheus.NewRegistry())

	m.AuthEvent("login", "success")
	m.AuthEvent("login", "success")
	m.AuthEvent("login", "invalid_credentials")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues("login", "invalid_credentials")))
}

func TestAPIMetrics_RequestLifecycle(t *testing.T) {
	m := NewAPIMetrics(prometheus.NewRegistry())

	m.RequestStarted("/api/vehicles", "GET")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeRequests.WithLabelValues("/api/vehicles", "GET")))

	m.RequestCompleted("/api/vehicles", "GET", "200", 15*time.Millisecond, 128)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.activeRequests.WithLabelValues("/api/vehicles", "GET")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestCounter.WithLabelValues("/api/vehicles", "GET", "200")))
}

func TestAPIMetrics_CircuitBreakerGauge(t *testing.T) {
	m := NewAPIMetrics(prometheus.NewRegistry())

	m.CircuitBreakerStateChanged("photo-upload", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.circuitBreakerOpen.WithLabelValues("photo-upload")))

	m.CircuitBreakerStateChanged("photo-upload", false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.circuitBreakerOpen.WithLabelValues("photo-upload")))
}
