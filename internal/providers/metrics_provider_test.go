package providers

import (
	"testing"
	"time"
	"wearsync/internal/structures"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestRegistry(t *testing.T) *prometheus.Registry {
	t.Helper()
	reg := prometheus.NewRegistry()
	prevReg, prevGather := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevReg
		prometheus.DefaultGatherer = prevGather
	})
	return reg
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(time.Millisecond)
	m.ObserveWindowFetch("calories", "success", time.Millisecond)
	m.IncWindowRetries("calories")
	m.IncSyncRuns("intraday", "success")
	m.ObserveSyncDuration("intraday", time.Second)
	m.ObserveUploadDuration(time.Second)
	m.AddSyncedItems("batch", 3)
	m.SetQueueDepth(1)
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	withTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_IncrementCounters(t *testing.T) {
	withTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf).(*MetricsProvider)

	m.IncRequestsTotal("/api/status", 200)
	m.IncRequestsTotal("/api/status", 404)
	m.IncWindowRetries("steps")
	m.IncWindowRetries("steps")
	m.IncSyncRuns("intraday", "success")
	m.AddSyncedItems("batch", 4)
	m.SetQueueDepth(2)
	m.SetBreakerState("provider", 2)
	m.IncBreakerTransitions("provider", "closed", "open")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("/api/status", "4xx")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.windowRetries.WithLabelValues("steps")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncRuns.WithLabelValues("intraday", "success")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.syncedItems.WithLabelValues("batch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.breakerState.WithLabelValues("provider")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.breakerTransitions.WithLabelValues("provider", "closed", "open")))
}

func TestMetricsProvider_RegistersCollectors(t *testing.T) {
	reg := withTestRegistry(t)

	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: true}})
	m.IncCacheHits()

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["wearsync_cache_hits_total"])
	assert.True(t, names["wearsync_queue_depth"])
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
