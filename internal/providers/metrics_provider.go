package providers

import (
	"time"
	"wearsync/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	ObserveWindowFetch(task string, outcome string, duration time.Duration)
	IncWindowRetries(task string)
	IncSyncRuns(entry string, outcome string)
	ObserveSyncDuration(entry string, duration time.Duration)
	ObserveUploadDuration(duration time.Duration)
	AddSyncedItems(kind string, count int)
	SetQueueDepth(depth int)
	SetBreakerState(name string, state int)
	IncBreakerTransitions(name string, from string, to string)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	windowFetches       *prometheus.HistogramVec
	windowRetries       *prometheus.CounterVec
	syncRuns            *prometheus.CounterVec
	syncDuration        *prometheus.HistogramVec
	uploadDuration      prometheus.Histogram
	syncedItems         *prometheus.CounterVec
	queueDepth          prometheus.Gauge
	breakerState        *prometheus.GaugeVec
	breakerTransitions  *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) ObserveWindowFetch(task string, outcome string, duration time.Duration) {
	m.windowFetches.WithLabelValues(task, outcome).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncWindowRetries(task string) {
	m.windowRetries.WithLabelValues(task).Inc()
}

func (m *MetricsProvider) IncSyncRuns(entry string, outcome string) {
	m.syncRuns.WithLabelValues(entry, outcome).Inc()
}

func (m *MetricsProvider) ObserveSyncDuration(entry string, duration time.Duration) {
	m.syncDuration.WithLabelValues(entry).Observe(duration.Seconds())
}

func (m *MetricsProvider) ObserveUploadDuration(duration time.Duration) {
	m.uploadDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) AddSyncedItems(kind string, count int) {
	m.syncedItems.WithLabelValues(kind).Add(float64(count))
}

func (m *MetricsProvider) SetQueueDepth(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *MetricsProvider) SetBreakerState(name string, state int) {
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

func (m *MetricsProvider) IncBreakerTransitions(name string, from string, to string) {
	m.breakerTransitions.WithLabelValues(name, from, to).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wearsync_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wearsync_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wearsync_cache_hits_total",
			Help: "Total number of metadata cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wearsync_cache_misses_total",
			Help: "Total number of metadata cache misses",
		}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wearsync_persistence_duration_seconds",
			Help:    "Duration of metadata store flushes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		windowFetches: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wearsync_window_fetch_duration_seconds",
			Help:    "Duration of provider window fetches by outcome",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"task", "outcome"}),

		windowRetries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wearsync_window_retries_total",
			Help: "Total number of provider window retries",
		}, []string{"task"}),

		syncRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wearsync_sync_runs_total",
			Help: "Total number of sync invocations by entry point and outcome",
		}, []string{"entry", "outcome"}),

		syncDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wearsync_sync_duration_seconds",
			Help:    "Duration of sync invocations in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"entry"}),

		uploadDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wearsync_upload_duration_seconds",
			Help:    "Duration of combined uploads in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		syncedItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wearsync_synced_items_total",
			Help: "Total number of confirmed batches, sessions and profile fields",
		}, []string{"kind"}),

		queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "wearsync_queue_depth",
			Help: "Number of sync invocations waiting or running on the connection queue",
		}),

		breakerState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wearsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),

		breakerTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wearsync_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		}, []string{"name", "from", "to"}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                       {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)       {}
func (n *noopMetrics) IncCacheHits()                                          {}
func (n *noopMetrics) IncCacheMisses()                                        {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)             {}
func (n *noopMetrics) ObserveWindowFetch(_ string, _ string, _ time.Duration) {}
func (n *noopMetrics) IncWindowRetries(_ string)                              {}
func (n *noopMetrics) IncSyncRuns(_ string, _ string)                         {}
func (n *noopMetrics) ObserveSyncDuration(_ string, _ time.Duration)          {}
func (n *noopMetrics) ObserveUploadDuration(_ time.Duration)                  {}
func (n *noopMetrics) AddSyncedItems(_ string, _ int)                         {}
func (n *noopMetrics) SetQueueDepth(_ int)                                    {}
func (n *noopMetrics) SetBreakerState(_ string, _ int)                        {}
func (n *noopMetrics) IncBreakerTransitions(_ string, _ string, _ string)     {}

// NewNoopMetrics returns a metrics provider that discards everything.
func NewNoopMetrics() MetricsProviderInterface {
	return &noopMetrics{}
}
