package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/trust-enforcement-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// cache usage and moderation activity. All methods are nil-safe.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	reportsSubmitted  *prometheus.CounterVec
	reportsRejected   *prometheus.CounterVec
	actionsTaken      *prometheus.CounterVec
	sweepRuns         *prometheus.CounterVec
	expiredSanctions  prometheus.Counter
	notificationsSent *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_operation_duration_seconds",
		Help:    "Duration of transactional database operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	reportsSubmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_reports_submitted_total",
		Help: "Reports accepted into the moderation queue",
	}, []string{"reason", "target_type", "priority"})

	reportsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_reports_rejected_total",
		Help: "Report submissions rejected before reaching the queue",
	}, []string{"code"})

	actionsTaken := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_actions_total",
		Help: "Moderator decisions executed, by action and outcome",
	}, []string{"action", "outcome"})

	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_sweep_runs_total",
		Help: "Sanction expiry sweep runs",
	}, []string{"result"})

	expiredSanctions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "moderation_suspensions_expired_total",
		Help: "Temporary suspensions deactivated by the sweep",
	})

	notificationsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_notifications_total",
		Help: "Reporter notifications by delivery result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, dbQueryDuration,
		reportsSubmitted, reportsRejected, actionsTaken, sweepRuns, expiredSanctions, notificationsSent, goroutines,
	)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		dbQueryDuration:   dbQueryDuration,
		reportsSubmitted:  reportsSubmitted,
		reportsRejected:   reportsRejected,
		actionsTaken:      actionsTaken,
		sweepRuns:         sweepRuns,
		expiredSanctions:  expiredSanctions,
		notificationsSent: notificationsSent,
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

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBOperation records the duration of a transactional operation.
func (m *MetricsService) ObserveDBOperation(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordReportSubmitted counts an accepted report.
func (m *MetricsService) RecordReportSubmitted(report *models.Report) {
	if m == nil || report == nil {
		return
	}
	m.reportsSubmitted.WithLabelValues(string(report.ReasonCode), string(report.TargetType), string(report.Priority)).Inc()
}

// RecordReportRejected counts a rejected submission by error code.
func (m *MetricsService) RecordReportRejected(code string) {
	if m == nil {
		return
	}
	m.reportsRejected.WithLabelValues(code).Inc()
}

// RecordAction counts an executed moderator decision.
func (m *MetricsService) RecordAction(action models.ActionCode, partial bool) {
	if m == nil {
		return
	}
	outcome := "applied"
	if partial {
		outcome = "partial"
	}
	m.actionsTaken.WithLabelValues(string(action), outcome).Inc()
}

// RecordSweep counts a sweep run and the suspensions it expired.
func (m *MetricsService) RecordSweep(expired int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweepRuns.WithLabelValues(result).Inc()
	if expired > 0 {
		m.expiredSanctions.Add(float64(expired))
	}
}

// RecordNotification counts a notification delivery result (sent, failed, dropped).
func (m *MetricsService) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(result).Inc()
}
