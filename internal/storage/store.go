// Package storage holds the key-value backends used to persist sync
// metadata between runs.
package storage

import (
	"errors"
	"fmt"
	"wearsync/internal/providers"
	"wearsync/internal/structures"
)

var ErrClosed = errors.New("store closed")

// KeyValueStore is the persistent string store the metadata layer writes
// fingerprints to. Get reports a missing key with ok == false and a nil error.
type KeyValueStore interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// PersistentStore is a KeyValueStore with an explicit durability boundary.
type PersistentStore interface {
	KeyValueStore
	Flush() error
	Close() error
}

// NewStoreProvider opens the backend selected by store.backend and puts the
// read cache in front of it.
func NewStoreProvider(conf *structures.Config, compressor CompressorInterface, cache providers.CacheProviderInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) (PersistentStore, error) {
	var (
		inner PersistentStore
		err   error
	)
	switch conf.Store.Backend {
	case "memory":
		inner = NewMemoryStore()
	case "file":
		inner, err = OpenFileStore(conf.Store.Path, compressor, logger, metrics)
	case "badger":
		inner, err = OpenBadgerStore(conf.Store.Path, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", conf.Store.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", conf.Store.Backend, err)
	}

	logger.Infof(providers.TypeApp, "Metadata store %s opened at %q", conf.Store.Backend, conf.Store.Path)
	return NewCachedStore(inner, cache), nil
}
