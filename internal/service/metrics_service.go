package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/academy-scheduler/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Observer
	lessonsCreated  prometheus.Counter
	daysSkipped     prometheus.Counter
	manualLessons   *prometheus.CounterVec
	cacheRequests   *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	runCount             uint64
	lessonCount          uint64
	skippedDayCount      uint64
	manualCount          uint64
	cacheHits            uint64
	cacheMisses          uint64
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

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_runs_total",
		Help: "Lesson generation runs by outcome",
	}, []string{"outcome"})

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_run_duration_seconds",
		Help:    "Duration of lesson generation runs",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	lessonsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_lessons_created_total",
		Help: "Lessons created by the automatic scheduler",
	})

	daysSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_days_skipped_total",
		Help: "Working days on which no candidate could be placed",
	})

	manualLessons := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manual_lessons_total",
		Help: "Manually requested lessons by outcome",
	}, []string{"outcome"})

	cacheRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "availability_cache_requests_total",
		Help: "Trainer availability lookups by cache result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, runsTotal, runDuration, lessonsCreated, daysSkipped, manualLessons, cacheRequests, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		runsTotal:       runsTotal,
		runDuration:     runDuration,
		lessonsCreated:  lessonsCreated,
		daysSkipped:     daysSkipped,
		manualLessons:   manualLessons,
		cacheRequests:   cacheRequests,
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

// ObserveGeneration records the outcome of one generation run.
func (m *MetricsService) ObserveGeneration(outcome string, lessons, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(duration.Seconds())
	m.lessonsCreated.Add(float64(lessons))
	m.daysSkipped.Add(float64(skipped))
	atomic.AddUint64(&m.runCount, 1)
	atomic.AddUint64(&m.lessonCount, uint64(lessons))
	atomic.AddUint64(&m.skippedDayCount, uint64(skipped))
}

// ObserveManualLesson records a manual booking attempt.
func (m *MetricsService) ObserveManualLesson(outcome string) {
	if m == nil {
		return
	}
	m.manualLessons.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.manualCount, 1)
}

// ObserveAvailabilityCache records a cache hit or miss.
func (m *MetricsService) ObserveAvailabilityCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheRequests.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHits, 1)
		return
	}
	m.cacheRequests.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMisses, 1)
}

// Snapshot returns aggregated metrics suitable for a JSON summary.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		GenerationRuns:           atomic.LoadUint64(&m.runCount),
		LessonsGenerated:         atomic.LoadUint64(&m.lessonCount),
		DaysSkipped:              atomic.LoadUint64(&m.skippedDayCount),
		ManualLessonRequests:     atomic.LoadUint64(&m.manualCount),
		AvailabilityCacheHits:    atomic.LoadUint64(&m.cacheHits),
		AvailabilityCacheMisses:  atomic.LoadUint64(&m.cacheMisses),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
