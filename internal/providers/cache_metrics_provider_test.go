package providers

import (
	"testing"
	"time"
	"wearsync/internal/structures"

	"github.com/stretchr/testify/assert"
)

type cacheMetricsTestMetrics struct {
	noopMetrics
	hits   int
	misses int
}

func (m *cacheMetricsTestMetrics) IncCacheHits()   { m.hits++ }
func (m *cacheMetricsTestMetrics) IncCacheMisses() { m.misses++ }

func TestInstrumentedCache_CountsHitsAndMisses(t *testing.T) {
	conf := &structures.Config{Cache: structures.CacheConfig{Enabled: true, Size: 1, TTL: time.Minute}}
	metrics := &cacheMetricsTestMetrics{}
	c := NewInstrumentedCacheProvider(conf, &cacheTestLogger{}, metrics)
	assert.IsType(t, &instrumentedCache{}, c)

	_, ok := c.Get("user-1:session:a")
	assert.False(t, ok)
	c.Set("user-1:session:a", []byte(`{"name":"run"}`))
	val, ok := c.Get("user-1:session:a")
	assert.True(t, ok)
	assert.Equal(t, `{"name":"run"}`, string(val))

	c.Del("user-1:session:a")
	_, ok = c.Get("user-1:session:a")
	assert.False(t, ok)

	assert.Equal(t, 1, metrics.hits)
	assert.Equal(t, 2, metrics.misses)
}

func TestInstrumentedCache_DisabledIsNotWrapped(t *testing.T) {
	metrics := &cacheMetricsTestMetrics{}
	c := NewInstrumentedCacheProvider(&structures.Config{}, &cacheTestLogger{}, metrics)
	assert.IsType(t, &noopCache{}, c)

	c.Get("user-1:session:a")
	assert.Zero(t, metrics.misses)
}
