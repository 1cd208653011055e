package testutil

import (
	"context"
	"sync"
	"time"
	"wearsync/internal/models"
	"wearsync/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.Logs {
		if l.Level == level {
			n++
		}
	}
	return n
}

// MockCompressor implements storage.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
	Encoding     string
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) ContentEncoding() string {
	if m.Encoding == "" {
		return "identity"
	}
	return m.Encoding
}

func (m *MockCompressor) Close() {}

// MockStore is an in-memory KeyValueStore with injectable failures.
type MockStore struct {
	mu       sync.Mutex
	Data     map[string]string
	GetErr   error
	SetErr   error
	Gets     int
	Sets     int
	Deletes  []string
	Flushes  int
	IsClosed bool
}

func NewMockStore() *MockStore {
	return &MockStore{Data: make(map[string]string)}
}

func (m *MockStore) Get(key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	v, ok := m.Data[key]
	return v, ok, nil
}

func (m *MockStore) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	m.Sets++
	m.Data[key] = value
	return nil
}

func (m *MockStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes = append(m.Deletes, key)
	delete(m.Data, key)
	return nil
}

func (m *MockStore) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Flushes++
	return nil
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IsClosed = true
	return nil
}

// Ops returns the number of reads, writes and deletes seen so far.
func (m *MockStore) Ops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Gets + m.Sets + len(m.Deletes)
}

func (m *MockStore) Value(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.Data[key]
	return v, ok
}

func (m *MockStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.Data))
	for k := range m.Data {
		keys = append(keys, k)
	}
	return keys
}

// PointsCall records one QueryPoints invocation.
type PointsCall struct {
	Metric models.MetricType
	Start  time.Time
	End    time.Time
}

// SubseriesCall records one QueryDetailedSubseries invocation.
type SubseriesCall struct {
	SessionID string
	Type      models.SubseriesType
	Start     time.Time
	End       time.Time
}

// MockProvider implements the provider collaborator. Unset functions return
// empty results.
type MockProvider struct {
	mu             sync.Mutex
	PointsFn       func(ctx context.Context, metric models.MetricType, start, end time.Time) ([]models.DataPoint[float64], error)
	ScalarFn       func(ctx context.Context, field models.ProfileField) (*models.DataPoint[float64], error)
	SessionListFn  func(ctx context.Context, start, end time.Time) ([]models.SessionBundle, error)
	SubseriesFn    func(ctx context.Context, id string, t models.SubseriesType, start, end time.Time) ([]models.DataPoint[float64], error)
	PointsCalls    []PointsCall
	ScalarCalls    []models.ProfileField
	ListCalls      int
	SubseriesCalls []SubseriesCall
}

func (m *MockProvider) QueryPoints(ctx context.Context, metric models.MetricType, start, end time.Time) ([]models.DataPoint[float64], error) {
	m.mu.Lock()
	m.PointsCalls = append(m.PointsCalls, PointsCall{Metric: metric, Start: start, End: end})
	fn := m.PointsFn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, metric, start, end)
}

func (m *MockProvider) QueryLastKnownScalar(ctx context.Context, field models.ProfileField) (*models.DataPoint[float64], error) {
	m.mu.Lock()
	m.ScalarCalls = append(m.ScalarCalls, field)
	fn := m.ScalarFn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, field)
}

func (m *MockProvider) QuerySessionList(ctx context.Context, start, end time.Time) ([]models.SessionBundle, error) {
	m.mu.Lock()
	m.ListCalls++
	fn := m.SessionListFn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, start, end)
}

func (m *MockProvider) QueryDetailedSubseries(ctx context.Context, id string, t models.SubseriesType, start, end time.Time) ([]models.DataPoint[float64], error) {
	m.mu.Lock()
	m.SubseriesCalls = append(m.SubseriesCalls, SubseriesCall{SessionID: id, Type: t, Start: start, End: end})
	fn := m.SubseriesFn
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, id, t, start, end)
}

func (m *MockProvider) PointsCallsFor(metric models.MetricType) []PointsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []PointsCall
	for _, c := range m.PointsCalls {
		if c.Metric == metric {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockProvider) TotalSubseriesCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SubseriesCalls)
}

// MockUploadGateway records uploaded payloads.
type MockUploadGateway struct {
	mu       sync.Mutex
	Err      error
	UploadFn func(ctx context.Context, payload *models.UploadPayload) error
	Payloads []*models.UploadPayload
}

func (m *MockUploadGateway) Upload(ctx context.Context, payload *models.UploadPayload) error {
	m.mu.Lock()
	m.Payloads = append(m.Payloads, payload)
	fn, err := m.UploadFn, m.Err
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, payload)
	}
	return err
}

func (m *MockUploadGateway) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Payloads)
}

func (m *MockUploadGateway) Last() *models.UploadPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Payloads) == 0 {
		return nil
	}
	return m.Payloads[len(m.Payloads)-1]
}

// Clock is a settable time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
