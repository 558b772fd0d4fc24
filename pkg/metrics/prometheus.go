// Package metrics provides Prometheus metrics for the calcutta valuation engine.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector the engine exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Rank cache
	rankRebuilds        prometheus.Counter
	rankRebuildErrors   prometheus.Counter
	rankRebuildDuration prometheus.Histogram
	rankGeneration      prometheus.Gauge
	rankEntries         prometheus.Gauge

	// Valuation
	smartPot             prometheus.Gauge
	averagePot           prometheus.Gauge
	valuationUnavailable *prometheus.CounterVec
	matchupDuration      prometheus.Histogram

	// Auction
	lotTransitions *prometheus.CounterVec
	teamsTotal     prometheus.Gauge

	// History
	historyRecords    prometheus.Counter
	historyDuplicates prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

var runtimeOnce sync.Once //nolint:gochecknoglobals // guards RegisterRuntimeCollectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegisterer(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "calcutta",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.rankRebuilds = m.counter("rank_rebuilds_total", "Successful rank cache rebuilds")
	m.rankRebuildErrors = m.counter("rank_rebuild_errors_total", "Rank cache rebuilds that were aborted")
	m.rankRebuildDuration = m.histogram("rank_rebuild_duration_seconds", "Time spent building and publishing a rank snapshot", m.histogramBuckets)
	m.rankGeneration = m.gauge("rank_generation", "Generation of the published rank snapshot")
	m.rankEntries = m.gauge("rank_entries", "Rank entries in the published snapshot")

	m.smartPot = m.gauge("smart_pot", "Most recently computed smart pot")
	m.averagePot = m.gauge("average_total_pot", "Average total pot over the reference years")
	m.valuationUnavailable = m.counterVec("valuation_unavailable_total", "Derived views that could not be computed", "view", "kind")
	m.matchupDuration = m.histogram("matchup_compute_duration_seconds", "Time spent computing matchup EV over the bracket", m.histogramBuckets)

	m.lotTransitions = m.counterVec("lot_transitions_total", "Auction lot transitions by kind", "transition")
	m.teamsTotal = m.gauge("teams", "Teams known to the engine")

	m.historyRecords = m.counter("history_records_total", "Historical auction records appended")
	m.historyDuplicates = m.counter("history_duplicates_total", "Historical auction records skipped as duplicates")

	m.httpRequests = m.counterVec("http_requests_total", "Total HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.queueSize = m.gauge("queue_size", "Pending rebuild requests")
	m.queueCapacity = m.gauge("queue_capacity", "Rebuild queue capacity")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Rebuild requests enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Rebuild requests dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Rebuild requests rejected by a full queue")

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")
}

// RecordRankRebuild records a successful rebuild.
func RecordRankRebuild(seconds float64, generation uint64, entries int) {
	globalManager.rankRebuilds.Inc()
	globalManager.rankRebuildDuration.Observe(seconds)
	globalManager.rankGeneration.Set(float64(generation))
	globalManager.rankEntries.Set(float64(entries))
}

// RecordRankRebuildError counts an aborted rebuild.
func RecordRankRebuildError() {
	globalManager.rankRebuildErrors.Inc()
}

// UpdatePot publishes the latest pot figures.
func UpdatePot(average, smart float64) {
	globalManager.averagePot.Set(average)
	globalManager.smartPot.Set(smart)
}

// RecordUnavailable counts a derived view that degraded to unavailable.
func RecordUnavailable(view, kind string) {
	globalManager.valuationUnavailable.WithLabelValues(view, kind).Inc()
}

// RecordMatchupDuration observes one full bracket EV pass.
func RecordMatchupDuration(seconds float64) {
	globalManager.matchupDuration.Observe(seconds)
}

// RecordLotTransition counts an applied auction transition (live, sale).
func RecordLotTransition(transition string) {
	globalManager.lotTransitions.WithLabelValues(transition).Inc()
}

// UpdateTeams sets the team count.
func UpdateTeams(count int) {
	globalManager.teamsTotal.Set(float64(count))
}

// RecordHistoryAppend records how many history rows were added and skipped.
func RecordHistoryAppend(added, duplicates int) {
	globalManager.historyRecords.Add(float64(added))
	globalManager.historyDuplicates.Add(float64(duplicates))
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RegisterRuntimeCollectors adds Go runtime and process collectors to the
// custom registry. Calling it twice is a no-op.
func RegisterRuntimeCollectors() {
	runtimeOnce.Do(func() {
		customRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}
