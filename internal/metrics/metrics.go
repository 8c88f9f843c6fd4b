// Package metrics exposes Prometheus counters for the Vereinsverwaltung API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the process registry and the domain counters.
type Metrics struct {
	registry *prometheus.Registry

	anmeldungen prometheus.Counter
	abmeldungen prometheus.Counter
	logins      *prometheus.CounterVec

	requestDuration *prometheus.HistogramVec
}

// New creates a registry with Go runtime collectors and the domain counters.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		anmeldungen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verein_anmeldungen_total",
			Help: "Number of successful Termin enrollments.",
		}),
		abmeldungen: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verein_abmeldungen_total",
			Help: "Number of roster removals.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verein_logins_total",
			Help: "Number of login attempts by outcome.",
		}, []string{"outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verein_http_request_duration_seconds",
			Help:    "HTTP request latency by method and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
	registry.MustRegister(m.anmeldungen, m.abmeldungen, m.logins, m.requestDuration)
	return m
}

// RecordAnmeldung counts a successful enrollment.
func (m *Metrics) RecordAnmeldung() {
	if m == nil {
		return
	}
	m.anmeldungen.Inc()
}

// RecordAbmeldung counts a roster removal.
func (m *Metrics) RecordAbmeldung() {
	if m == nil {
		return
	}
	m.abmeldungen.Inc()
}

// RecordLogin counts a login attempt.
func (m *Metrics) RecordLogin(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.logins.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records request latency and status for every request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		m.requestDuration.
			WithLabelValues(r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
