// Package metrics exposes prometheus instrumentation for the metering core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	IdentityAnonymous     = "anonymous"
	IdentityAuthenticated = "authenticated"

	OperationCheck = "check"
	OperationTrack = "track"
)

type Metrics struct {
	registry *prometheus.Registry

	ChecksTotal     *prometheus.CounterVec
	TracksTotal     *prometheus.CounterVec
	FallbacksTotal  *prometheus.CounterVec
	TrialDowngrades prometheus.Counter
	MonthlyResets   prometheus.Counter

	httpDuration *prometheus.HistogramVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		ChecksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metering_usage_checks_total",
			Help: "Usage status checks served, by identity kind.",
		}, []string{"identity"}),
		TracksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metering_usage_tracks_total",
			Help: "Question consumptions tracked, by identity kind.",
		}, []string{"identity"}),
		FallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "metering_usage_fallbacks_total",
			Help: "Fail-open fallback statuses served, by operation.",
		}, []string{"operation"}),
		TrialDowngrades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metering_trial_downgrades_total",
			Help: "Lazy pro_trial to free downgrades applied.",
		}),
		MonthlyResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "metering_monthly_resets_total",
			Help: "Lazy monthly counter resets applied.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "metering_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ChecksTotal,
		m.TracksTotal,
		m.FallbacksTotal,
		m.TrialDowngrades,
		m.MonthlyResets,
		m.httpDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
