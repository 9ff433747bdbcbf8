package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mael-bomane/earn-bot/internal/metrics"
)

func TestMetrics_Counters(t *testing.T) {
	m := metrics.New()

	m.ChangeDetected("NEW_LISTING")
	m.ChangeDetected("NEW_LISTING")
	m.NotificationScheduled("REGION_UPDATED")
	m.NotificationSkipped(metrics.SkipPending)
	m.Delivery(metrics.OutcomeSent)
	m.Delivery(metrics.OutcomeFailed)
	m.NotificationsPurged(3)
	m.NotificationsPurged(0)
	m.JobFailed("detect")
	m.CycleCompleted(time.Unix(1_700_000_000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChangesDetected.WithLabelValues("NEW_LISTING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scheduled.WithLabelValues("REGION_UPDATED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Skipped.WithLabelValues(metrics.SkipPending)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.OutcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.OutcomeFailed)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Purged))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobFailures.WithLabelValues("detect")))
	assert.Equal(t, 1_700_000_000.0, testutil.ToFloat64(m.LastCycle))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics
	assert.NotPanics(t, func() {
		m.ChangeDetected("NEW_LISTING")
		m.NotificationScheduled("NEW_LISTING")
		m.NotificationSkipped(metrics.SkipSent)
		m.Delivery(metrics.OutcomeDropped)
		m.NotificationsPurged(1)
		m.JobFailed("sweep")
		m.CycleCompleted(time.Now())
	})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetrics_Handler(t *testing.T) {
	m := metrics.New()
	m.Delivery(metrics.OutcomeSent)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL) //nolint:noctx
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `earn_bot_deliveries_total{outcome="sent"} 1`)
}
