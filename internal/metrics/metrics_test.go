package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveAttempt("info", 200*time.Millisecond)
	m.ObserveAttempt("info", time.Second)
	m.ObserveOutcome("info", "succeeded")
	m.IncActiveWorkers()
	m.IncActiveWorkers()
	m.DecActiveWorkers()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.launches.WithLabelValues("info")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outcomes.WithLabelValues("info", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeWorkers))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAttempt("info", time.Second)
		m.ObserveOutcome("info", "failed_fatal")
		m.IncActiveWorkers()
		m.DecActiveWorkers()
	})
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ObserveOutcome("download", "succeeded")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gather_job_outcomes_total{outcome="succeeded",task="download"} 1`)
}
