package storage

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"wearsync/internal/providers"
)

const snapshotVersion = 1

// Snapshot is the on-disk envelope of a FileStore.
type Snapshot struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Entries map[string]string `json:"entries"`
}

// FileStore keeps metadata in memory and persists it as a zstd-compressed
// JSON snapshot written atomically through a tmp file and rename.
type FileStore struct {
	mu         sync.RWMutex
	path       string
	data       map[string]string
	dirty      bool
	closed     bool
	compressor CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

// OpenFileStore loads the snapshot at path. A missing file starts empty; an
// unreadable one is logged and discarded, which only costs a resync.
func OpenFileStore(path string, compressor CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) (*FileStore, error) {
	fs := &FileStore{
		path:       path,
		data:       make(map[string]string),
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	fs.load()
	return fs, nil
}

func (f *FileStore) load() {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.logger.Errorf(providers.TypeApp, "Failed to read metadata snapshot %s: %s", f.path, err)
		}
		return
	}

	data, err := f.compressor.Decompress(raw)
	if err != nil {
		f.logger.Warnf(providers.TypeApp, "Corrupted metadata snapshot %s, starting empty: %s", f.path, err)
		return
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil || snap.Entries == nil {
		f.logger.Warnf(providers.TypeApp, "Unreadable metadata snapshot %s, starting empty", f.path)
		return
	}
	if snap.Version != snapshotVersion {
		f.logger.Warnf(providers.TypeApp, "Metadata snapshot version %d unsupported, starting empty", snap.Version)
		return
	}
	f.data = snap.Entries
	f.logger.Infof(providers.TypeApp, "Restored %d metadata entries from %s", len(f.data), f.path)
}

func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return "", false, ErrClosed
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *FileStore) Set(key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.data[key] = value
	f.dirty = true
	return nil
}

func (f *FileStore) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	if _, ok := f.data[key]; ok {
		delete(f.data, key)
		f.dirty = true
	}
	return nil
}

// Flush writes the snapshot if anything changed since the last flush.
func (f *FileStore) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushLocked()
}

func (f *FileStore) flushLocked() error {
	if !f.dirty {
		return nil
	}
	start := time.Now()

	jsonData, err := json.Marshal(Snapshot{Version: snapshotVersion, SavedAt: start.UTC(), Entries: f.data})
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := f.path + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	if err = os.Rename(tmpFile, f.path); err != nil {
		return err
	}
	f.dirty = false
	f.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}

// Close flushes pending changes. Further calls fail with ErrClosed.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	err := f.flushLocked()
	f.closed = true
	return err
}
