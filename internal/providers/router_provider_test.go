package providers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
}

func TestRouterProvider_RegistersInOrder(t *testing.T) {
	rp := NewRouterProvider()
	rp.Post("/api/sync/intraday", okHandler("intraday"))
	rp.Post("/api/sync/profile", okHandler("profile"))
	rp.Get("/api/status", okHandler("status"))

	require.Len(t, rp.GetRoutes(), 3)
	assert.Equal(t, []string{"/api/sync/intraday", "/api/sync/profile", "/api/status"}, rp.Paths())
}

func TestRouterProvider_MethodEnforcement(t *testing.T) {
	rp := NewRouterProvider()
	rp.Get("/api/status", okHandler("status"))
	rp.Post("/api/sync/sessions", okHandler("sessions"))
	routes := rp.GetRoutes()

	tests := []struct {
		name   string
		route  int
		method string
		code   int
		allow  string
		body   string
	}{
		{"status get", 0, http.MethodGet, http.StatusOK, "", "status"},
		{"status post", 0, http.MethodPost, http.StatusMethodNotAllowed, "GET", ""},
		{"sessions post", 1, http.MethodPost, http.StatusOK, "", "sessions"},
		{"sessions get", 1, http.MethodGet, http.StatusMethodNotAllowed, "POST", ""},
		{"sessions delete", 1, http.MethodDelete, http.StatusMethodNotAllowed, "POST", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			routes[tt.route].Handler.ServeHTTP(rr, httptest.NewRequest(tt.method, routes[tt.route].Url, nil))

			assert.Equal(t, tt.code, rr.Code)
			assert.Equal(t, tt.allow, rr.Header().Get("Allow"))
			if tt.body != "" {
				assert.Equal(t, tt.body, rr.Body.String())
			}
		})
	}
}

func TestMethodHandler_AcceptsAnyListedMethod(t *testing.T) {
	h := methodHandler(okHandler("ok"), http.MethodGet, http.MethodHead)

	for _, m := range []string{http.MethodGet, http.MethodHead} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(m, "/health", nil))
		assert.Equal(t, http.StatusOK, rr.Code, m)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/health", nil))
	assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))
}
