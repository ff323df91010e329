// Package metrics provides Prometheus metrics for the statboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the statboard service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Write and read paths
	statsRecorded      prometheus.Counter
	queriesByVariant   *prometheus.CounterVec
	queryItemsReturned prometheus.Histogram
	decodeErrors       prometheus.Counter

	// Storage collaborator
	storageLatency *prometheus.HistogramVec
	storageErrors  *prometheus.CounterVec
	storeItems     *prometheus.GaugeVec

	// Query cache
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	cacheEntries prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "statboard",
		subsystem:        "stats",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.statsRecorded = auto.NewCounter(m.counterOpts("recorded_total", "Total number of stats written"))
	m.queriesByVariant = auto.NewCounterVec(m.counterOpts("queries_total", "Total number of high-score queries by variant"),
		[]string{"variant"})
	m.queryItemsReturned = auto.NewHistogram(m.histogramOpts("query_items_returned", "Number of items returned per query",
		[]float64{0, 1, 5, 10, 50, 100, 500, 1000}))
	m.decodeErrors = auto.NewCounter(m.counterOpts("decode_errors_total", "Stored items that failed to decode"))

	m.storageLatency = auto.NewHistogramVec(m.histogramOpts("storage_latency_milliseconds", "Storage call latency in milliseconds",
		m.histogramBuckets), []string{"store", "operation"})
	m.storageErrors = auto.NewCounterVec(m.counterOpts("storage_errors_total", "Storage call failures by error code"),
		[]string{"store", "operation", "code"})
	m.storeItems = auto.NewGaugeVec(m.gaugeOpts("store_items", "Items held per index by the in-memory store"),
		[]string{"index"})

	m.cacheHits = auto.NewCounter(m.counterOpts("query_cache_hits_total", "Query cache hits"))
	m.cacheMisses = auto.NewCounter(m.counterOpts("query_cache_misses_total", "Query cache misses"))
	m.cacheEntries = auto.NewGauge(m.gaugeOpts("query_cache_entries", "Entries held by the query cache"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", m.histogramBuckets), []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Errors by HTTP endpoint"),
		[]string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_milliseconds", "Most recent GC pause in milliseconds",
		[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50}))
}

// RecordStatRecorded counts a successful write.
func RecordStatRecorded() { globalManager.statsRecorded.Inc() }

// RecordQuery counts a query and the number of items it returned.
func RecordQuery(variant string, items int) {
	globalManager.queriesByVariant.WithLabelValues(variant).Inc()
	globalManager.queryItemsReturned.Observe(float64(items))
}

// RecordDecodeError counts an item that could not be decoded.
func RecordDecodeError() { globalManager.decodeErrors.Inc() }

// RecordStorageLatency observes one storage call.
func RecordStorageLatency(store, operation string, latencyMs float64) {
	globalManager.storageLatency.WithLabelValues(store, operation).Observe(latencyMs)
}

// RecordStorageError counts a failed storage call.
func RecordStorageError(store, operation, code string) {
	globalManager.storageErrors.WithLabelValues(store, operation, code).Inc()
}

// UpdateStoreItems sets the item count of one index.
func UpdateStoreItems(index string, count int) {
	globalManager.storeItems.WithLabelValues(index).Set(float64(count))
}

// RecordCacheHit counts a query served from cache.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss counts a query that went to storage.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// UpdateCacheEntries sets the current cache size.
func UpdateCacheEntries(count int) { globalManager.cacheEntries.Set(float64(count)) }

// RecordHTTPRequest counts a served request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes a served request.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint counts an error returned by an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap gauge.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime observes a GC pause.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
