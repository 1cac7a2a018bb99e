package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns a private Prometheus registry for HTTP, cache and grading instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	activations     *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	scoresRecorded  prometheus.Counter
	summaryDuration *prometheus.HistogramVec
	eventsTotal     *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of database reads grouped by purpose",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_structure_activations_total",
			Help: "Grade structure activation attempts by boundary mode and outcome",
		}, []string{"mode", "outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_category_resolutions_total",
			Help: "Score to category resolutions by decision",
		}, []string{"decision"}),
		scoresRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grading_scores_recorded_total",
			Help: "Scores inserted or overwritten",
		}),
		summaryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grading_summary_duration_seconds",
			Help:    "Time to compute student summaries and gradebooks",
			Buckets: prometheus.DefBuckets,
		}, []string{"scope"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grading_events_total",
			Help: "Grading events by type and delivery outcome",
		}, []string{"type", "outcome"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.dbQueryDuration,
		m.activations, m.resolutions, m.scoresRecorded, m.summaryDuration, m.eventsTotal,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a lookup and refreshes the hit ratio gauge.
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

func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordActivation counts an activation attempt; outcome is "success", "rejected" or "error".
func (m *MetricsService) RecordActivation(mode, outcome string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(mode, outcome).Inc()
}

// RecordResolution counts one resolver decision.
func (m *MetricsService) RecordResolution(decision string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(decision).Inc()
}

func (m *MetricsService) RecordScore() {
	if m == nil {
		return
	}
	m.scoresRecorded.Inc()
}

func (m *MetricsService) ObserveSummary(scope string, duration time.Duration) {
	if m == nil {
		return
	}
	m.summaryDuration.WithLabelValues(scope).Observe(duration.Seconds())
}

func (m *MetricsService) RecordEvent(eventType, outcome string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType, outcome).Inc()
}
