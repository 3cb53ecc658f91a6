package api

import (
	"net/http"

	"github.com/hilayankonsky/movemix/internal/middleware"

	"github.com/gorilla/mux"
)

// SetupRoutes registers the API on r. Mutating routes are rate limited when a limiter is given.
func (handler *Handler) SetupRoutes(
	r *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
) {
	limited := func(name string, h http.HandlerFunc) http.Handler {
		if rateLimiter == nil || allowedPerMin <= 0 {
			return h
		}
		return middleware.RateLimit(rateLimiter, handler.metrics, name, allowedPerMin)(h)
	}

	r.HandleFunc("/sessions", handler.HandleListSessions).Methods("GET", "OPTIONS").Name("list-sessions")
	r.Handle("/sessions", limited("add-session", handler.HandleAddSession)).Methods("POST", "OPTIONS").Name("add-session")
	r.HandleFunc("/sessions/{id}", handler.HandleGetSession).Methods("GET", "OPTIONS").Name("get-session")
	r.Handle("/sessions/{id}", limited("update-session", handler.HandleUpdateSession)).Methods("PUT", "OPTIONS").Name("update-session")
	r.Handle("/sessions/{id}", limited("remove-session", handler.HandleRemoveSession)).Methods("DELETE", "OPTIONS").Name("remove-session")

	r.HandleFunc("/settings", handler.HandleGetSettings).Methods("GET", "OPTIONS").Name("get-settings")
	r.Handle("/settings", limited("set-settings", handler.HandleSetSettings)).Methods("PUT", "OPTIONS").Name("set-settings")
	r.Handle("/settings", limited("reset-settings", handler.HandleResetSettings)).Methods("DELETE", "OPTIONS").Name("reset-settings")

	r.HandleFunc("/export", handler.HandleExport).Methods("GET", "OPTIONS").Name("export")
	r.Handle("/import", limited("import", handler.HandleImport)).Methods("POST", "OPTIONS").Name("import")
	r.Handle("/data", limited("clear-all", handler.HandleClearAll)).Methods("DELETE", "OPTIONS").Name("clear-all")

	r.HandleFunc("/stats/kpis/{period}", handler.HandleKPIs).Methods("GET", "OPTIONS").Name("stats-kpis")
	r.HandleFunc("/stats/types/{period}", handler.HandleTypeDistribution).Methods("GET", "OPTIONS").Name("stats-types")
	r.HandleFunc("/stats/weekly", handler.HandleWeekly).Methods("GET", "OPTIONS").Name("stats-weekly")
	r.HandleFunc("/stats/onboarding", handler.HandleOnboarding).Methods("GET", "OPTIONS").Name("stats-onboarding")
}
