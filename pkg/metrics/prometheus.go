// Package metrics provides Prometheus metrics for the doccheck verification service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the doccheck service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Verification outcomes
	personsProcessed *prometheus.CounterVec
	ruleOutcomes     *prometheus.CounterVec
	dateFallbacks    *prometheus.CounterVec
	verifyLatency    prometheus.Histogram

	// Extraction
	extractionLatency *prometheus.HistogramVec
	extractionErrors  *prometheus.CounterVec
	llmRequests       *prometheus.CounterVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	jobsDuplicate      prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	workerPanics            prometheus.Counter

	// Store
	storeRecords     prometheus.Gauge
	storeSaveLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "doccheck",
		subsystem:        "verifier",
		histogramBuckets: prometheus.ExponentialBuckets(1, 2, 16), // 1ms .. ~33s
		customLabels:     make(map[string]string),
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.customLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.personsProcessed = m.counterVec("persons_processed_total",
		"Persons verified, by overall status", "status")
	m.ruleOutcomes = m.counterVec("rule_outcomes_total",
		"Rule evaluations by rule and status", "rule", "status")
	m.dateFallbacks = m.counterVec("date_parse_fallbacks_total",
		"Date values kept verbatim because they could not be parsed", "field")
	m.verifyLatency = m.histogram("verify_latency_milliseconds",
		"Time to verify one person end to end in milliseconds")

	m.extractionLatency = m.histogramVec("extraction_latency_milliseconds",
		"Document extraction latency in milliseconds by stage", "stage")
	m.extractionErrors = m.counterVec("extraction_errors_total",
		"Document extraction failures by stage", "stage")
	m.llmRequests = m.counterVec("llm_requests_total",
		"Requests to the field extraction model by outcome", "outcome")

	m.queueSize = m.gauge("queue_size", "Current number of jobs waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of jobs the queue holds")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size divided by capacity")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Jobs accepted by the queue")
	m.queueDequeue = m.counter("queue_dequeue_total", "Jobs taken from the queue by workers")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Jobs rejected by a full or closed queue")
	m.jobsDuplicate = m.counter("jobs_duplicate_total", "Jobs rejected because the person is already in flight")

	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a job")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time a worker spends on one job in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Jobs that produced a degenerate record")
	m.workerPanics = m.counter("worker_panics_total", "Panics recovered while processing a job")

	m.storeRecords = m.gauge("store_records", "Verification records held by the store")
	m.storeSaveLatency = m.histogram("store_save_latency_milliseconds",
		"Latency of saving one verification record in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_total",
		"Errors by component and type", "component", "error_type")
}

// RecordPersonProcessed counts a finished person by overall status.
func RecordPersonProcessed(status string) {
	globalManager.personsProcessed.WithLabelValues(status).Inc()
}

// RecordRuleOutcome counts one rule evaluation.
func RecordRuleOutcome(rule, status string) {
	globalManager.ruleOutcomes.WithLabelValues(rule, status).Inc()
}

// RecordDateFallback counts a date value that could not be parsed.
func RecordDateFallback(field string) {
	globalManager.dateFallbacks.WithLabelValues(field).Inc()
}

// RecordVerifyLatency records per-person verification latency.
func RecordVerifyLatency(latencyMs float64) {
	globalManager.verifyLatency.Observe(latencyMs)
}

// RecordExtractionLatency records extraction latency for a stage (text, ocr, pdf, llm, ...).
func RecordExtractionLatency(stage string, latencyMs float64) {
	globalManager.extractionLatency.WithLabelValues(stage).Observe(latencyMs)
}

// RecordExtractionError counts a failed extraction stage.
func RecordExtractionError(stage string) {
	globalManager.extractionErrors.WithLabelValues(stage).Inc()
}

// RecordLLMRequest counts a model call by outcome (ok, error, unparsed).
func RecordLLMRequest(outcome string) {
	globalManager.llmRequests.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueue.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeue.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordJobDuplicate counts a job rejected by the in-flight deduper.
func RecordJobDuplicate() {
	globalManager.jobsDuplicate.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerPanic increments the recovered panic counter.
func RecordWorkerPanic() {
	globalManager.workerPanics.Inc()
}

// UpdateStoreRecords sets the number of stored records.
func UpdateStoreRecords(count int) {
	globalManager.storeRecords.Set(float64(count))
}

// RecordStoreSaveLatency records store save latency.
func RecordStoreSaveLatency(latencyMs float64) {
	globalManager.storeSaveLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
