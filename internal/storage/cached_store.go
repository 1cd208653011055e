package storage

import "wearsync/internal/providers"

// CachedStore is a read-through cache over a PersistentStore. Writes go to
// the backend first and only then refresh the cache.
type CachedStore struct {
	inner PersistentStore
	cache providers.CacheProviderInterface
}

func NewCachedStore(inner PersistentStore, cache providers.CacheProviderInterface) *CachedStore {
	return &CachedStore{inner: inner, cache: cache}
}

func (c *CachedStore) Get(key string) (string, bool, error) {
	if v, ok := c.cache.Get(key); ok {
		return string(v), true, nil
	}
	v, ok, err := c.inner.Get(key)
	if err != nil || !ok {
		return v, ok, err
	}
	c.cache.Set(key, []byte(v))
	return v, true, nil
}

func (c *CachedStore) Set(key, value string) error {
	if err := c.inner.Set(key, value); err != nil {
		c.cache.Del(key)
		return err
	}
	c.cache.Set(key, []byte(value))
	return nil
}

func (c *CachedStore) Delete(key string) error {
	c.cache.Del(key)
	return c.inner.Delete(key)
}

func (c *CachedStore) Flush() error {
	return c.inner.Flush()
}

func (c *CachedStore) Close() error {
	return c.inner.Close()
}
