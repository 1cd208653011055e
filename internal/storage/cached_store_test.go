package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
	"wearsync/internal/providers"
	"wearsync/internal/structures"
	"wearsync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache() providers.CacheProviderInterface {
	conf := &structures.Config{Cache: structures.CacheConfig{Enabled: true, Size: 1, TTL: time.Minute}}
	return providers.NewCacheProvider(conf, &testutil.MockLogger{})
}

func TestCachedStore_ReadThrough(t *testing.T) {
	inner := testutil.NewMockStore()
	inner.Data["k"] = "v"
	cs := NewCachedStore(inner, newTestCache())

	v, ok, err := cs.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	inner.GetErr = errors.New("backend down")
	v, ok, err = cs.Get("k")
	require.NoError(t, err, "served from cache")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestCachedStore_FailedSetInvalidates(t *testing.T) {
	inner := testutil.NewMockStore()
	cs := NewCachedStore(inner, newTestCache())
	require.NoError(t, cs.Set("k", "old"))

	inner.SetErr = errors.New("disk full")
	assert.Error(t, cs.Set("k", "new"))

	v, ok, err := cs.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "old", v)
}

func TestCachedStore_DeleteEvicts(t *testing.T) {
	inner := testutil.NewMockStore()
	cs := NewCachedStore(inner, newTestCache())
	require.NoError(t, cs.Set("k", "v"))
	require.NoError(t, cs.Delete("k"))

	_, ok, err := cs.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"k"}, inner.Deletes)
}

func TestCachedStore_DelegatesFlushAndClose(t *testing.T) {
	inner := testutil.NewMockStore()
	cs := NewCachedStore(inner, newTestCache())
	require.NoError(t, cs.Flush())
	require.NoError(t, cs.Close())
	assert.Equal(t, 1, inner.Flushes)
	assert.True(t, inner.IsClosed)
}

func TestNewStoreProvider_Backends(t *testing.T) {
	comp, err := NewZstdCompressor()
	require.NoError(t, err)
	logger := &testutil.MockLogger{}
	metrics := providers.NewNoopMetrics()

	for _, backend := range []string{"memory", "file", "badger"} {
		t.Run(backend, func(t *testing.T) {
			conf := &structures.Config{Store: structures.StoreConfig{
				Backend: backend,
				Path:    filepath.Join(t.TempDir(), "wearsync.db"),
			}}
			s, err := NewStoreProvider(conf, comp, newTestCache(), logger, metrics)
			require.NoError(t, err)
			require.NoError(t, s.Set("k", "v"))
			v, ok, err := s.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", v)
			require.NoError(t, s.Flush())
			require.NoError(t, s.Close())
		})
	}
}

func TestNewStoreProvider_UnknownBackend(t *testing.T) {
	conf := &structures.Config{Store: structures.StoreConfig{Backend: "redis"}}
	_, err := NewStoreProvider(conf, &testutil.MockCompressor{}, newTestCache(), &testutil.MockLogger{}, providers.NewNoopMetrics())
	assert.Error(t, err)
}
