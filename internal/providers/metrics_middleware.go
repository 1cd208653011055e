package providers

import (
	"net/http"
	"time"
)

type recordingWriter struct {
	http.ResponseWriter
	code    int
	written bool
}

func (w *recordingWriter) WriteHeader(code int) {
	if !w.written {
		w.code = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// MetricsMiddleware counts and times API requests and logs each one to the
// access log of its method. Paths outside knownPaths are labelled "other".
func MetricsMiddleware(metrics MetricsProviderInterface, logger Logger, next http.Handler, knownPaths ...string) http.Handler {
	known := make(map[string]bool, len(knownPaths))
	for _, p := range knownPaths {
		known[p] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rw := &recordingWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rw, r)
		elapsed := time.Since(started)

		endpoint := "other"
		if known[r.URL.Path] {
			endpoint = r.URL.Path
		}
		metrics.IncRequestsTotal(endpoint, rw.code)
		metrics.ObserveRequestDuration(endpoint, elapsed)
		logger.Infof(GetLogTypeByRequestType(r.Method), "%s %s %d %s", r.Method, r.URL.Path, rw.code, elapsed)
	})
}
