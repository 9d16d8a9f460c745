// Package metrics holds the Prometheus collectors shared by the server components.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	Dispatches        *prometheus.CounterVec
	PlaybackURLs      *prometheus.CounterVec
	GuestMigrations   prometheus.Counter
	WorkerHealthProbe *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		Dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "channelcast_dispatch_total",
			Help: "Generation jobs dispatched to the worker, by result.",
		}, []string{"result"}),
		PlaybackURLs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "channelcast_playback_url_total",
			Help: "Signed playback URL requests, by result.",
		}, []string{"result"}),
		GuestMigrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "channelcast_guest_migrations_total",
			Help: "Guest sessions merged into an authenticated owner.",
		}),
		WorkerHealthProbe: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "channelcast_worker_health_latency_seconds",
			Help:    "Latency of worker liveness probes, by status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}
	reg.MustRegister(
		m.Dispatches,
		m.PlaybackURLs,
		m.GuestMigrations,
		m.WorkerHealthProbe,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
