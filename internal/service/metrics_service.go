package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/enrollment-sync-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	syncOutcomes    *prometheus.CounterVec
	moodleDuration  *prometheus.HistogramVec
	moodleFailures  *prometheus.CounterVec
	lockContentions prometheus.Counter
	runDuration     *prometheus.HistogramVec

	requestCount         uint64
	requestDurationTotal uint64
	moodleCount          uint64
	moodleFailureCount   uint64
	moodleDurationTotal  uint64
	lockContentionCount  uint64

	outcomeMu     sync.Mutex
	outcomeCounts map[models.OutcomeCode]uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	syncOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_sync_outcomes_total",
		Help: "Reconciliation outcomes by status code",
	}, []string{"code"})

	moodleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "moodle_request_duration_seconds",
		Help:    "Duration of Moodle web service calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"function"})

	moodleFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moodle_request_failures_total",
		Help: "Moodle web service calls that failed or returned malformed data",
	}, []string{"function"})

	lockContentions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_lock_contentions_total",
		Help: "Reconciliations refused because the enrollment was locked",
	})

	runDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "enrollment_sync_run_duration_seconds",
		Help:    "Duration of batch reconciliation runs",
		Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600},
	}, []string{"trigger", "status"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, syncOutcomes, moodleDuration, moodleFailures, lockContentions, runDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		syncOutcomes:    syncOutcomes,
		moodleDuration:  moodleDuration,
		moodleFailures:  moodleFailures,
		lockContentions: lockContentions,
		runDuration:     runDuration,
		outcomeCounts:   map[models.OutcomeCode]uint64{},
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveSyncOutcome counts one reconciliation outcome.
func (m *MetricsService) ObserveSyncOutcome(code models.OutcomeCode) {
	if m == nil {
		return
	}
	m.syncOutcomes.WithLabelValues(string(code)).Inc()
	m.outcomeMu.Lock()
	m.outcomeCounts[code]++
	m.outcomeMu.Unlock()
}

// ObserveMoodleRequest records latency of a web service call and whether it failed.
func (m *MetricsService) ObserveMoodleRequest(function string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.moodleDuration.WithLabelValues(function).Observe(duration.Seconds())
	atomic.AddUint64(&m.moodleCount, 1)
	atomic.AddUint64(&m.moodleDurationTotal, uint64(duration.Nanoseconds()))
	if err != nil {
		m.moodleFailures.WithLabelValues(function).Inc()
		atomic.AddUint64(&m.moodleFailureCount, 1)
	}
}

// ObserveLockContention counts a reconciliation refused by a held enrollment lock.
func (m *MetricsService) ObserveLockContention() {
	if m == nil {
		return
	}
	m.lockContentions.Inc()
	atomic.AddUint64(&m.lockContentionCount, 1)
}

// ObserveSyncRun records the wall time of a finished batch run.
func (m *MetricsService) ObserveSyncRun(trigger models.SyncTrigger, status models.SyncRunStatus, duration time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(string(trigger), string(status)).Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics suitable for the operator endpoint.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	moodleCount := atomic.LoadUint64(&m.moodleCount)
	moodleDuration := atomic.LoadUint64(&m.moodleDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgMoodleMs float64
	if moodleCount > 0 {
		avgMoodleMs = float64(moodleDuration) / float64(moodleCount) / float64(time.Millisecond)
	}

	m.outcomeMu.Lock()
	outcomes := make(map[models.OutcomeCode]uint64, len(m.outcomeCounts))
	for code, count := range m.outcomeCounts {
		outcomes[code] = count
	}
	m.outcomeMu.Unlock()

	return models.MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Outcomes:                 outcomes,
		MoodleRequests:           moodleCount,
		MoodleFailures:           atomic.LoadUint64(&m.moodleFailureCount),
		AverageMoodleDurationMs:  avgMoodleMs,
		LockContentions:          atomic.LoadUint64(&m.lockContentionCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
