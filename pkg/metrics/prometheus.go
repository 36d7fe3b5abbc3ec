// Package metrics provides Prometheus metrics for the petgotchi sync engine.
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Sync pipeline
	eventsScored    *prometheus.CounterVec
	eventsDuplicate prometheus.Counter
	usersSynced     prometheus.Counter
	usersSkipped    *prometheus.CounterVec
	syncFailures    *prometheus.CounterVec
	syncDuration    prometheus.Histogram
	batchSize       prometheus.Gauge
	batchesRun      prometheus.Counter

	// Lifecycle
	evolutions  *prometheus.CounterVec
	retirements prometheus.Counter
	adoptions   *prometheus.CounterVec

	// Activity feed
	feedLatency prometheus.Histogram
	feedErrors  prometheus.Counter

	// Queue and workers
	queueSize         prometheus.Gauge
	workerActiveCount prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "petgotchi",
		subsystem:        "sync",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.eventsScored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_scored_total",
		Help:      "Activity events scored and applied to a pet, by kind",
	}, []string{"kind"})

	m.eventsDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_duplicate_total",
		Help:      "Activity events skipped because the ledger already held them",
	})

	m.usersSynced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "users_synced_total",
		Help:      "Per-user sync passes that committed stats",
	})

	m.usersSkipped = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "users_skipped_total",
		Help:      "Per-user sync passes skipped, by reason",
	}, []string{"reason"})

	m.syncFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "failures_total",
		Help:      "Per-user sync failures, by reason",
	}, []string{"reason"})

	m.syncDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "user_duration_milliseconds",
		Help:      "Duration of a single per-user sync pass in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.batchSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_size",
		Help:      "Number of users selected by the last batch",
	})

	m.batchesRun = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batches_total",
		Help:      "Sync batches started",
	})

	m.evolutions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pet",
		Name:      "evolutions_total",
		Help:      "Stage transitions, by the stage entered",
	}, []string{"stage"})

	m.retirements = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pet",
		Name:      "retirements_total",
		Help:      "Pets retired into the hall of fame",
	})

	m.adoptions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "pet",
		Name:      "adoptions_total",
		Help:      "Pets adopted, by difficulty",
	}, []string{"difficulty"})

	m.feedLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "feed",
		Name:      "latency_milliseconds",
		Help:      "Activity feed request latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.feedErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "feed",
		Name:      "errors_total",
		Help:      "Activity feed requests that failed or timed out",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Sync jobs waiting for a worker",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Workers currently running a sync pass",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "errors_total",
		Help:      "HTTP error responses by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "memory_usage_bytes",
		Help:      "Heap memory in use in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "system",
		Name:      "goroutine_count",
		Help:      "Number of goroutines",
	})
}

// RecordEventScored counts an event applied to a pet.
func RecordEventScored(kind string) {
	globalManager.eventsScored.WithLabelValues(kind).Inc()
}

// RecordEventDuplicate counts an event already present in the ledger.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordUserSynced counts a committed per-user pass.
func RecordUserSynced() {
	globalManager.usersSynced.Inc()
}

// RecordUserSkipped counts a skipped per-user pass.
func RecordUserSkipped(reason string) {
	globalManager.usersSkipped.WithLabelValues(reason).Inc()
}

// RecordSyncFailure counts a failed per-user pass.
func RecordSyncFailure(reason string) {
	globalManager.syncFailures.WithLabelValues(reason).Inc()
}

// RecordSyncDuration observes the duration of a per-user pass.
func RecordSyncDuration(ms float64) {
	globalManager.syncDuration.Observe(ms)
}

// RecordBatch counts a batch and records how many users it selected.
func RecordBatch(size int) {
	globalManager.batchesRun.Inc()
	globalManager.batchSize.Set(float64(size))
}

// RecordEvolution counts a stage transition into stage.
func RecordEvolution(stage string) {
	globalManager.evolutions.WithLabelValues(stage).Inc()
}

// RecordRetirement counts a retired pet.
func RecordRetirement() {
	globalManager.retirements.Inc()
}

// RecordAdoption counts a new pet.
func RecordAdoption(difficulty string) {
	globalManager.adoptions.WithLabelValues(difficulty).Inc()
}

// RecordFeedLatency observes an activity feed round trip.
func RecordFeedLatency(ms float64) {
	globalManager.feedLatency.Observe(ms)
}

// RecordFeedError counts a failed feed call.
func RecordFeedError() {
	globalManager.feedErrors.Inc()
}

// UpdateQueueSize sets the number of pending sync jobs.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordHTTPError counts an error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMetrics samples runtime memory and goroutine counts.
func UpdateSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	globalManager.systemMemoryUsage.Set(float64(ms.HeapAlloc))
	globalManager.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
