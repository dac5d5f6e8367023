// Package metrics holds the Prometheus collectors for registry fetches and
// installs. Collectors live on a private registry so a CLI run can dump them
// to a node-exporter textfile and `extpm serve` can expose them on /metrics.
// All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "extpm"

// Result label values.
const (
	ResultOK      = "ok"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
	ResultCached  = "cached"
)

// Metrics is the set of collectors.
type Metrics struct {
	registry *prometheus.Registry

	registryFetches   *prometheus.CounterVec
	fetchDuration     prometheus.Histogram
	manifestDownloads *prometheus.CounterVec
	cacheHits         prometheus.Counter
	installItems      *prometheus.CounterVec
	scannedPackages   prometheus.Gauge
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		registryFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registry_fetches_total",
			Help:      "Registry fetches by result (ok, failed, cached)",
		}, []string{"result"}),

		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "registry_fetch_duration_seconds",
			Help:      "Duration of network registry refreshes",
			Buckets:   prometheus.DefBuckets,
		}),

		manifestDownloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_downloads_total",
			Help:      "Remote manifest downloads by result",
		}, []string{"result"}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manifest_cache_hits_total",
			Help:      "Remote manifests reused from the cache because their hash matched",
		}),

		installItems: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "install_items_total",
			Help:      "Install plan items by result (ok, failed, skipped)",
		}, []string{"result"}),

		scannedPackages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "installed_packages",
			Help:      "Installed packages found by the last catalog scan",
		}),
	}
}

// ObserveFetch records a registry refresh.
func (m *Metrics) ObserveFetch(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.registryFetches.WithLabelValues(result).Inc()
	if result != ResultCached {
		m.fetchDuration.Observe(d.Seconds())
	}
}

// ManifestDownload records one manifest download.
func (m *Metrics) ManifestDownload(ok bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	m.manifestDownloads.WithLabelValues(result).Inc()
}

// CacheHits records n manifests reused from the cache.
func (m *Metrics) CacheHits(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.cacheHits.Add(float64(n))
}

// InstallItem records the outcome of one plan item.
func (m *Metrics) InstallItem(result string) {
	if m == nil {
		return
	}
	m.installItems.WithLabelValues(result).Inc()
}

// InstallItemCounter returns the counter for one install result.
func (m *Metrics) InstallItemCounter(result string) prometheus.Counter {
	return m.installItems.WithLabelValues(result)
}

// InstalledPackages sets the installed package gauge.
func (m *Metrics) InstalledPackages(n int) {
	if m == nil {
		return
	}
	m.scannedPackages.Set(float64(n))
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Gatherer(), promhttp.HandlerOpts{})
}

// WriteTextfile writes the collectors to path for the node exporter
// textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Gatherer())
}
