package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"wearsync/internal/models"
	"wearsync/internal/providers"
	"wearsync/internal/services"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- local mocks (scoped to controller tests) ---

type mockLogger struct{}

func (m *mockLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *mockLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *mockLogger) Close()                                                  {}

type mockService struct {
	intraday []services.IntradayOptions
	sessions []services.SessionOptions
	profile  []services.ProfileOptions
	lower    []*time.Time
	result   services.SyncResult
	uploaded bool
	err      error
	status   services.Status
}

func (m *mockService) SyncIntraday(_ context.Context, opts services.IntradayOptions) (services.SyncResult, error) {
	m.intraday = append(m.intraday, opts)
	return m.result, m.err
}

func (m *mockService) SyncSessions(_ context.Context, opts services.SessionOptions) (services.SyncResult, error) {
	m.sessions = append(m.sessions, opts)
	return m.result, m.err
}

func (m *mockService) SyncProfile(_ context.Context, opts services.ProfileOptions) (bool, error) {
	m.profile = append(m.profile, opts)
	return m.uploaded, m.err
}

func (m *mockService) SetLowerBoundary(t *time.Time) { m.lower = append(m.lower, t) }
func (m *mockService) Status() services.Status       { return m.status }
func (m *mockService) Close()                        {}

func post(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

// --- SyncIntraday ---

func TestSyncIntraday_ParsesRequest(t *testing.T) {
	svc := &mockService{result: services.SyncResult{InvocationID: "inv-1", Uploaded: true, Batches: 3}}
	sc := NewSyncController(&mockLogger{}, svc)

	rr := post(sc.SyncIntraday, `{"metrics":["calories","steps"],"startDate":"2020-10-01","endDate":"2020-10-02"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	require.Len(t, svc.intraday, 1)
	opts := svc.intraday[0]
	assert.Equal(t, []models.MetricType{models.MetricCalories, models.MetricSteps}, opts.Metrics)
	assert.Equal(t, civil.Date{Year: 2020, Month: 10, Day: 1}, opts.StartDate)
	assert.Equal(t, civil.Date{Year: 2020, Month: 10, Day: 2}, opts.EndDate)

	var res services.SyncResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, "inv-1", res.InvocationID)
	assert.Equal(t, 3, res.Batches)
}

func TestSyncIntraday_UnknownMetric(t *testing.T) {
	svc := &mockService{}
	sc := NewSyncController(&mockLogger{}, svc)

	rr := post(sc.SyncIntraday, `{"metrics":["sleep"],"startDate":"2020-10-01","endDate":"2020-10-02"}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, svc.intraday)
}

func TestSyncIntraday_MalformedBody(t *testing.T) {
	svc := &mockService{}
	sc := NewSyncController(&mockLogger{}, svc)

	for _, body := range []string{"", "not json", `{"startDate":"2020-13-45"}`} {
		rr := post(sc.SyncIntraday, body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Empty(t, svc.intraday)
}

func TestSyncIntraday_OversizedBody(t *testing.T) {
	sc := NewSyncController(&mockLogger{}, &mockService{})

	rr := post(sc.SyncIntraday, `{"metrics":["`+strings.Repeat("x", maxRequestBodySize)+`"]}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSyncIntraday_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid range", &models.RangeError{Reason: "start after end"}, http.StatusBadRequest},
		{"cancelled", fmt.Errorf("steps: %w", models.ErrCancelled), http.StatusServiceUnavailable},
		{"queue closed", services.ErrQueueClosed, http.StatusServiceUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"retries exhausted on timeouts", fmt.Errorf("steps: %w", &models.MaxRetriesError{Label: "steps 2020-10-01", Tries: 3, Last: context.DeadlineExceeded}), http.StatusBadGateway},
		{"rejected", models.Rejected(errors.New("403")), http.StatusBadGateway},
		{"upload", &models.UploadError{Cause: errors.New("503")}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := NewSyncController(&mockLogger{}, &mockService{err: tt.err})
			rr := post(sc.SyncIntraday, `{"startDate":"2020-10-01","endDate":"2020-10-02"}`)

			assert.Equal(t, tt.code, rr.Code)
			var resp map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.err.Error(), resp["error"])
		})
	}
}

// --- SyncSessions ---

func TestSyncSessions_ParsesMinDuration(t *testing.T) {
	svc := &mockService{}
	sc := NewSyncController(&mockLogger{}, svc)

	rr := post(sc.SyncSessions, `{"startDate":"2020-10-01","endDate":"2020-10-02","minDuration":"5m"}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, svc.sessions, 1)
	assert.Equal(t, 5*time.Minute, svc.sessions[0].MinDuration)
}

func TestSyncSessions_InvalidMinDuration(t *testing.T) {
	svc := &mockService{}
	sc := NewSyncController(&mockLogger{}, svc)

	for _, d := range []string{"soon", "-1m"} {
		rr := post(sc.SyncSessions, `{"startDate":"2020-10-01","endDate":"2020-10-02","minDuration":"`+d+`"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code, d)
	}
	assert.Empty(t, svc.sessions)
}

// --- SyncProfile ---

func TestSyncProfile_ReportsUpload(t *testing.T) {
	svc := &mockService{uploaded: true}
	sc := NewSyncController(&mockLogger{}, svc)

	rr := post(sc.SyncProfile, `{"fields":["weight"]}`)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"uploaded":true}`, rr.Body.String())
	require.Len(t, svc.profile, 1)
	assert.Equal(t, []models.ProfileField{models.ProfileWeight}, svc.profile[0].Fields)
}

func TestSyncProfile_UnknownField(t *testing.T) {
	svc := &mockService{}
	sc := NewSyncController(&mockLogger{}, svc)

	rr := post(sc.SyncProfile, `{"fields":["shoe_size"]}`)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, svc.profile)
}

// --- SetBoundary / GetStatus ---

func TestSetBoundary(t *testing.T) {
	svc := &mockService{}
	sc := NewSyncController(&mockLogger{}, svc)

	rr := post(sc.SetBoundary, `{"lowerDateBoundary":"2020-10-02T09:15:00Z"}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = post(sc.SetBoundary, `{"lowerDateBoundary":null}`)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	require.Len(t, svc.lower, 2)
	require.NotNil(t, svc.lower[0])
	assert.True(t, svc.lower[0].Equal(time.Date(2020, 10, 2, 9, 15, 0, 0, time.UTC)))
	assert.Nil(t, svc.lower[1])
}

func TestGetStatus(t *testing.T) {
	svc := &mockService{status: services.Status{
		UserScope:  "user-1",
		QueueDepth: 2,
		LastRuns: map[string]services.RunStatus{
			services.EntryIntraday: {InvocationID: "inv-1", Outcome: services.OutcomeUploaded},
		},
	}}
	sc := NewSyncController(&mockLogger{}, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rr := httptest.NewRecorder()
	sc.GetStatus(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "user-1", resp["userScope"])
	assert.Equal(t, float64(2), resp["queueDepth"])
	runs := resp["lastRuns"].(map[string]interface{})
	assert.Equal(t, "uploaded", runs["intraday"].(map[string]interface{})["outcome"])
}
