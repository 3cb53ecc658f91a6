package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/hilayankonsky/movemix/internal/telemetry/metrics"
	"github.com/hilayankonsky/movemix/pkg"

	log "github.com/sirupsen/logrus"
)

type panicBody struct {
	Error string `json:"error"`
}

// PanicRecovery keeps a failing handler from taking the connection down.
// The client gets a JSON 500 and the stack goes to the log (and to sentry, via the log hook).
func PanicRecovery(metricsManager *metrics.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}

				log.WithFields(log.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
					"stack":  string(debug.Stack()),
				}).Error(fmt.Sprintf("recovered handler panic: %v", recovered))

				if metricsManager != nil {
					metricsManager.CounterHandleRequestPanic.Inc()
				}
				pkg.WriteJSON(w, panicBody{Error: "internal error"}, http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
