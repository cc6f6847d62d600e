// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all riskterm metrics on a private Prometheus registry
type Registry struct {
	registry *prometheus.Registry

	// Dataset loading
	LoadDuration *prometheus.HistogramVec
	LoadErrors   *prometheus.CounterVec
	CacheHits    *prometheus.CounterVec
	CacheMisses  *prometheus.CounterVec

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Sync
	SyncRuns         *prometheus.CounterVec
	FilesDownloaded  prometheus.Counter
	DatasetsChanged  prometheus.Counter
	WebsocketClients prometheus.Gauge

	// Current volatility regime (0=Low, 1=Medium, 2=High)
	CurrentRegime prometheus.Gauge
}

// NewRegistry creates and registers every collector
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		LoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskterm_dataset_load_duration_seconds",
				Help:    "Time spent parsing a dataset table from disk",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"table"},
		),
		LoadErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskterm_dataset_load_errors_total",
				Help: "Dataset tables that failed to load",
			},
			[]string{"table"},
		),
		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskterm_dataset_cache_hits_total",
				Help: "Dataset cache hits by table and tier",
			},
			[]string{"table", "tier"},
		),
		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskterm_dataset_cache_misses_total",
				Help: "Dataset cache misses by table",
			},
			[]string{"table"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskterm_http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskterm_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"route", "method"},
		),
		SyncRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskterm_sync_runs_total",
				Help: "Dataset sync job runs by result",
			},
			[]string{"result"},
		),
		FilesDownloaded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "riskterm_sync_files_downloaded_total",
				Help: "Dataset files fetched from the object store",
			},
		),
		DatasetsChanged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "riskterm_dataset_changes_total",
				Help: "Dataset file changes detected by the sync job",
			},
		),
		WebsocketClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskterm_websocket_clients",
				Help: "Connected websocket event clients",
			},
		),
		CurrentRegime: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "riskterm_current_regime",
				Help: "Current volatility regime (0=Low, 1=Medium, 2=High)",
			},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.LoadDuration,
		r.LoadErrors,
		r.CacheHits,
		r.CacheMisses,
		r.HTTPRequests,
		r.HTTPDuration,
		r.SyncRuns,
		r.FilesDownloaded,
		r.DatasetsChanged,
		r.WebsocketClients,
		r.CurrentRegime,
	)

	return r
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry (used by tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// CacheHit records a cache hit. tier is "memory" or "persistent".
func (r *Registry) CacheHit(table, tier string) {
	r.CacheHits.WithLabelValues(table, tier).Inc()
}

// CacheMiss records a cache miss
func (r *Registry) CacheMiss(table string) {
	r.CacheMisses.WithLabelValues(table).Inc()
}

// ObserveLoad records the parse time of a table
func (r *Registry) ObserveLoad(table string, d time.Duration, err error) {
	if err != nil {
		r.LoadErrors.WithLabelValues(table).Inc()
		return
	}
	r.LoadDuration.WithLabelValues(table).Observe(d.Seconds())
}

// ObserveRequest records one HTTP request
func (r *Registry) ObserveRequest(route, method string, status int, d time.Duration) {
	r.HTTPRequests.WithLabelValues(route, method, statusLabel(status)).Inc()
	r.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// ObserveSync records a sync run
func (r *Registry) ObserveSync(downloaded, changed int, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	r.SyncRuns.WithLabelValues(result).Inc()
	r.FilesDownloaded.Add(float64(downloaded))
	r.DatasetsChanged.Add(float64(changed))
}

// SetRegime publishes the current regime as 0/1/2
func (r *Registry) SetRegime(label string) {
	switch label {
	case "Low":
		r.CurrentRegime.Set(0)
	case "Medium":
		r.CurrentRegime.Set(1)
	case "High":
		r.CurrentRegime.Set(2)
	}
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
