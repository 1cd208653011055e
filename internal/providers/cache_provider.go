package providers

import (
	"time"
	"wearsync/internal/structures"

	"github.com/coocood/freecache"
)

// CacheProviderInterface caches serialized fingerprints by metadata key.
type CacheProviderInterface interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Del(key string)
}

// CacheProvider keeps recently read fingerprints in a freecache arena so a
// change check on a hot key skips the store backend.
type CacheProvider struct {
	arena         *freecache.Cache
	expireSeconds int
}

// NewCacheProvider returns a no-op cache when caching is disabled. A zero
// TTL keeps entries until the arena evicts them.
func NewCacheProvider(conf *structures.Config, logger Logger) CacheProviderInterface {
	if !conf.Cache.Enabled || conf.Cache.Size <= 0 {
		logger.Infof(TypeApp, "Fingerprint cache disabled")
		return &noopCache{}
	}

	c := &CacheProvider{
		arena:         freecache.NewCache(conf.Cache.Size << 20),
		expireSeconds: int(conf.Cache.TTL / time.Second),
	}
	logger.Infof(TypeApp, "Fingerprint cache enabled: %dMB, expiry %s", conf.Cache.Size, conf.Cache.TTL)
	return c
}

func (c *CacheProvider) Get(key string) ([]byte, bool) {
	val, err := c.arena.Get([]byte(key))
	return val, err == nil
}

func (c *CacheProvider) Set(key string, value []byte) {
	if err := c.arena.Set([]byte(key), value, c.expireSeconds); err != nil {
		// oversized entries are refused; the old copy must not survive
		c.arena.Del([]byte(key))
	}
}

func (c *CacheProvider) Del(key string) {
	c.arena.Del([]byte(key))
}

// EntryCount reports how many fingerprints are cached.
func (c *CacheProvider) EntryCount() int64 {
	return c.arena.EntryCount()
}

type noopCache struct{}

func (noopCache) Get(string) ([]byte, bool) { return nil, false }
func (noopCache) Set(string, []byte)        {}
func (noopCache) Del(string)                {}
