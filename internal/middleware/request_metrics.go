package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hilayankonsky/movemix/internal/telemetry/metrics"

	"github.com/gorilla/mux"
)

// statusRecorder remembers what the handler answered; net/http does not expose it afterwards.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	n, err := s.ResponseWriter.Write(b)
	s.written += n
	return n, err
}

// RequestMetrics tracks in-flight requests, and per route latency and status counts.
func RequestMetrics(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			metricsManager.GaugeRequests.Inc()
			defer metricsManager.GaugeRequests.Dec()

			started := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			code := strconv.Itoa(rec.status)
			metricsManager.HistogramRequestDuration.
				WithLabelValues(routeTemplate(r), r.Method, code).
				Observe(time.Since(started).Seconds())
			metricsManager.CounterRequests.WithLabelValues(r.Method, code).Inc()
		})
	}
}

// routeTemplate keeps label cardinality bounded: /sessions/{id}, not every id.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unknown"
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return "unknown"
	}
	return tpl
}
