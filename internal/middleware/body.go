package middleware

import (
	"io"
	"net/http"
)

// leftovers above this are not worth reading just to keep the connection alive
const maxDrainBytes = 256 << 10

// DrainAndCloseRequest consumes whatever the handler left unread in the body, then closes it.
func DrainAndCloseRequest() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func(body io.ReadCloser) {
				if body == nil || body == http.NoBody {
					return
				}
				_, _ = io.CopyN(io.Discard, body, maxDrainBytes)
				_ = body.Close()
			}(r.Body)

			next.ServeHTTP(w, r)
		})
	}
}

// LimitRequestBody rejects bodies above maxBytes. Imported snapshots are the largest payload
// the API accepts, so the limit is sized for those.
func LimitRequestBody(maxBytes int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
