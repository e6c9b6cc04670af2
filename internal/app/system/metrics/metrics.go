// Package metrics exposes Prometheus counters for the ride lifecycle,
// wallet ledger, notifications, and background sweeps.
//
// All recording methods are safe on a nil *Metrics so services and tests
// can run without a registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ridehub"

// Metrics owns a registry and the app's collectors.
type Metrics struct {
	reg *prometheus.Registry

	rideTransitions *prometheus.CounterVec
	ratings         *prometheus.CounterVec
	walletTxns      *prometheus.CounterVec
	notifyFailures  *prometheus.CounterVec
	sweepItems      *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers every collector plus Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		rideTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ride_transitions_total",
			Help: "Ride status transitions by target status.",
		}, []string{"to"}),
		ratings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ratings_submitted_total",
			Help: "Ratings submitted by rater role.",
		}, []string{"rater_role"}),
		walletTxns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "wallet_transactions_total",
			Help: "Ledger rows written by type and category.",
		}, []string{"type", "category"}),
		notifyFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "notification_failures_total",
			Help: "Notification deliveries that failed, by channel.",
		}, []string{"channel"}),
		sweepItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sweep_items_total",
			Help: "Items handled by expiration sweeps, by sweep, phase and outcome.",
		}, []string{"sweep", "phase", "outcome"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "job_runs_total",
			Help: "Scheduled job runs by job and result.",
		}, []string{"job", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rideTransitions, m.ratings, m.walletTxns, m.notifyFailures,
		m.sweepItems, m.jobRuns, m.httpRequests, m.httpDuration,
	)
	return m
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) RideTransition(to string) {
	if m != nil {
		m.rideTransitions.WithLabelValues(to).Inc()
	}
}

func (m *Metrics) RatingSubmitted(raterRole string) {
	if m != nil {
		m.ratings.WithLabelValues(raterRole).Inc()
	}
}

func (m *Metrics) WalletTransaction(typ, category string) {
	if m != nil {
		m.walletTxns.WithLabelValues(typ, category).Inc()
	}
}

// NotificationFailed counts a failed delivery on channel (email, push, inbox).
func (m *Metrics) NotificationFailed(channel string) {
	if m != nil {
		m.notifyFailures.WithLabelValues(channel).Inc()
	}
}

// SweepItem counts one item processed by sweep in phase ("expiring" or
// "expired") with outcome ("notified", "expired", "skipped", "error").
func (m *Metrics) SweepItem(sweep, phase, outcome string) {
	if m != nil {
		m.sweepItems.WithLabelValues(sweep, phase, outcome).Inc()
	}
}

// JobRun counts a scheduled job run; result is "ok", "error" or "locked".
func (m *Metrics) JobRun(job, result string) {
	if m != nil {
		m.jobRuns.WithLabelValues(job, result).Inc()
	}
}

// Middleware records request counts and latency by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
