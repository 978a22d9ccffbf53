// Package metrics provides Prometheus metrics for the PMIS allocation engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the allocation engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Round Metrics - One observation per allocation round
	roundsStarted   prometheus.Counter
	roundsCommitted prometheus.Counter
	roundsFailed    prometheus.Counter
	roundsCancelled prometheus.Counter
	roundDuration   prometheus.Histogram
	solverDuration  prometheus.Histogram
	lastRoundUnix   prometheus.Gauge

	// Scoring Metrics - Pair scoring throughput and quality
	pairsScored    prometheus.Counter
	scoringLatency prometheus.Histogram
	scoringErrors  prometheus.Counter
	degradedScores prometheus.Counter

	// Outcome Metrics - What the committed allocations look like
	assignmentsTotal  prometheus.Counter
	unmatchedByReason *prometheus.CounterVec
	lastFillRate      prometheus.Gauge
	lastMeanScore     prometheus.Gauge

	// Fairness Metrics - Quota and disparity accounting
	quotaWaivers       prometheus.Counter
	reservedSeatsAsked prometheus.Gauge
	reservedSeatsMet   prometheus.Gauge
	disparityRate      *prometheus.GaugeVec
	fairnessViolations *prometheus.CounterVec

	// Ledger Metrics - Audit trail health
	ledgerRecords       prometheus.Counter
	ledgerAppendLatency prometheus.Histogram
	ledgerVerifyFailed  prometheus.Counter

	// Queue Metrics - Scoring queue performance
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker Metrics - Scoring pool performance
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// Publish Metrics - Result fan-out to the message bus
	resultsPublished prometheus.Counter
	publishErrors    prometheus.Counter

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pmis",
		subsystem:        "allocation",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Round Metrics - Lifecycle of allocation rounds
	m.roundsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_started_total",
		Help:      "Total number of allocation rounds started",
	})

	m.roundsCommitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_committed_total",
		Help:      "Total number of allocation rounds committed",
	})

	m.roundsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_failed_total",
		Help:      "Total number of allocation rounds that aborted with an error",
	})

	m.roundsCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rounds_cancelled_total",
		Help:      "Total number of allocation rounds cancelled before commit",
	})

	m.roundDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "round_duration_milliseconds",
		Help:      "End-to-end allocation round duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.solverDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "solver_duration_milliseconds",
		Help:      "Matching solver duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.lastRoundUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_round_unix",
		Help:      "Unix timestamp of the last committed round",
	})

	// Scoring Metrics - Pair scoring throughput and quality
	m.pairsScored = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pairs_scored_total",
		Help:      "Total number of candidate/slot pairs scored",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_milliseconds",
		Help:      "Histogram of pair scoring latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.scoringErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_errors_total",
		Help:      "Total number of pair scoring failures",
	})

	m.degradedScores = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "degraded_scores_total",
		Help:      "Total number of pair scores computed with a failed factor substituted",
	})

	// Outcome Metrics - Shape of committed allocations
	m.assignmentsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "assignments_total",
		Help:      "Total number of candidate assignments committed",
	})

	m.unmatchedByReason = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "unmatched_total",
			Help:      "Total number of unmatched candidates by reason code",
		},
		[]string{"reason"},
	)

	m.lastFillRate = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_round_fill_rate",
		Help:      "Seat fill rate of the last committed round",
	})

	m.lastMeanScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "last_round_mean_score",
		Help:      "Mean assignment score of the last committed round",
	})

	// Fairness Metrics - Quota and disparity accounting
	m.quotaWaivers = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "quota_waivers_total",
		Help:      "Total number of quota floors waived for lack of eligible candidates",
	})

	m.reservedSeatsAsked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reserved_seats_required",
		Help:      "Reserved seats required by quota floors in the last round",
	})

	m.reservedSeatsMet = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reserved_seats_filled",
		Help:      "Reserved seats actually filled in the last round",
	})

	m.disparityRate = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "placement_rate",
			Help:      "Placement rate by category and scope in the last round",
		},
		[]string{"category", "scope"},
	)

	m.fairnessViolations = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "fairness_violations_total",
			Help:      "Total number of disparity findings by category",
		},
		[]string{"category"},
	)

	// Ledger Metrics - Audit trail health
	m.ledgerRecords = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_records_total",
		Help:      "Total number of audit records appended to the ledger",
	})

	m.ledgerAppendLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_append_latency_milliseconds",
		Help:      "Ledger append latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.ledgerVerifyFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ledger_verify_failures_total",
		Help:      "Total number of ledger chain verification failures",
	})

	// Queue Metrics - Scoring queue performance
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current size of the scoring queue (backlog indicator)",
	})

	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Maximum scoring queue capacity",
	})

	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_utilization_ratio",
		Help:      "Scoring queue utilization ratio (current size / capacity)",
	})

	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_total",
		Help:      "Total number of scoring jobs enqueued",
	})

	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeue_total",
		Help:      "Total number of scoring jobs dequeued",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of enqueue errors",
	})

	// Worker Metrics - Scoring pool performance
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Configured number of scoring workers",
	})

	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_active_count",
		Help:      "Number of scoring workers currently processing a job",
	})

	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Worker job processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.workerErrorRate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total number of worker errors",
	})

	// Publish Metrics - Result fan-out to the message bus
	m.resultsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "results_published_total",
		Help:      "Total number of allocation results published to the bus",
	})

	m.publishErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_errors_total",
		Help:      "Total number of publish failures",
	})

	// Enhanced Error Metrics - Detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)
}

// Round Metrics Functions.

// RecordRoundStarted increments the rounds started counter.
func RecordRoundStarted() {
	globalManager.roundsStarted.Inc()
}

// RecordRoundCommitted increments the rounds committed counter and stamps
// the last-round gauge.
func RecordRoundCommitted(at time.Time) {
	globalManager.roundsCommitted.Inc()
	globalManager.lastRoundUnix.Set(float64(at.Unix()))
}

// RecordRoundFailed increments the rounds failed counter.
func RecordRoundFailed() {
	globalManager.roundsFailed.Inc()
}

// RecordRoundCancelled increments the rounds cancelled counter.
func RecordRoundCancelled() {
	globalManager.roundsCancelled.Inc()
}

// RecordRoundDuration records end-to-end round duration in milliseconds.
func RecordRoundDuration(latencyMs float64) {
	globalManager.roundDuration.Observe(latencyMs)
}

// RecordSolverDuration records solver duration in milliseconds.
func RecordSolverDuration(latencyMs float64) {
	globalManager.solverDuration.Observe(latencyMs)
}

// Scoring Metrics Functions.

// RecordPairScored increments the pairs scored counter.
func RecordPairScored() {
	globalManager.pairsScored.Inc()
}

// RecordScoringLatency records pair scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordScoringError increments the scoring errors counter.
func RecordScoringError() {
	globalManager.scoringErrors.Inc()
}

// RecordDegradedScore increments the degraded scores counter.
func RecordDegradedScore() {
	globalManager.degradedScores.Inc()
}

// Outcome Metrics Functions.

// RecordAssignments adds committed assignments to the counter.
func RecordAssignments(count int) {
	globalManager.assignmentsTotal.Add(float64(count))
}

// RecordUnmatched increments the unmatched counter for a reason code.
func RecordUnmatched(reason string) {
	globalManager.unmatchedByReason.WithLabelValues(reason).Inc()
}

// UpdateLastFillRate sets the fill rate of the last committed round.
func UpdateLastFillRate(rate float64) {
	globalManager.lastFillRate.Set(rate)
}

// UpdateLastMeanScore sets the mean assignment score of the last round.
func UpdateLastMeanScore(score float64) {
	globalManager.lastMeanScore.Set(score)
}

// Fairness Metrics Functions.

// RecordQuotaWaiver increments the quota waivers counter.
func RecordQuotaWaiver() {
	globalManager.quotaWaivers.Inc()
}

// UpdateReservedSeats sets the required and filled reserved-seat gauges.
func UpdateReservedSeats(required, filled int) {
	globalManager.reservedSeatsAsked.Set(float64(required))
	globalManager.reservedSeatsMet.Set(float64(filled))
}

// UpdatePlacementRate sets the placement rate for a category within a scope.
func UpdatePlacementRate(category, scope string, rate float64) {
	globalManager.disparityRate.WithLabelValues(category, scope).Set(rate)
}

// RecordFairnessViolation increments the violations counter for a category.
func RecordFairnessViolation(category string) {
	globalManager.fairnessViolations.WithLabelValues(category).Inc()
}

// Ledger Metrics Functions.

// RecordLedgerAppend increments the ledger records counter.
func RecordLedgerAppend() {
	globalManager.ledgerRecords.Inc()
}

// RecordLedgerAppendLatency records ledger append latency in milliseconds.
func RecordLedgerAppendLatency(latencyMs float64) {
	globalManager.ledgerAppendLatency.Observe(latencyMs)
}

// RecordLedgerVerifyFailure increments the verification failures counter.
func RecordLedgerVerifyFailure() {
	globalManager.ledgerVerifyFailed.Inc()
}

// Queue Metrics Functions.

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
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Worker Metrics Functions.

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
	globalManager.workerErrorRate.Inc()
}

// Publish Metrics Functions.

// RecordResultPublished increments the published results counter.
func RecordResultPublished() {
	globalManager.resultsPublished.Inc()
}

// RecordPublishError increments the publish errors counter.
func RecordPublishError() {
	globalManager.publishErrors.Inc()
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
