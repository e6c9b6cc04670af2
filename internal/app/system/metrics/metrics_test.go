package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/ridehub/internal/app/system/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.RideTransition("ride_completed")
	m.RatingSubmitted("passenger")
	m.WalletTransaction("credit", "deposit")
	m.NotificationFailed("push")
	m.SweepItem("evp", "expired", "expired")
	m.JobRun("evp-expiration", "ok")

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestHandlerExposesCounters(t *testing.T) {
	m := metrics.New()
	m.RideTransition("driver_accepted")
	m.RideTransition("driver_accepted")
	m.SweepItem("subscription", "expired", "expired")

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/rides/{id}", func(w http.ResponseWriter, r *http.Request) {})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/rides/42", nil))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `ridehub_ride_transitions_total{to="driver_accepted"} 2`)
	assert.Contains(t, body, `ridehub_sweep_items_total{outcome="expired",phase="expired",sweep="subscription"} 1`)
	assert.True(t, strings.Contains(body, `route="/api/rides/{id}"`), "route pattern label missing")
}

func TestCollectorCounts(t *testing.T) {
	m := metrics.New()
	m.WalletTransaction("credit", "deposit")
	n, err := testutil.GatherAndCount(m.Registry(), "ridehub_wallet_transactions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
