package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/luno/internal/metrics"
)

// Metrics records the duration of every request on rec.
//
// Requests are labelled with the chi route pattern ("/api/auth/me"), not the
// raw path, so a client probing random URLs cannot grow the label set.
// Unmatched requests share the "unmatched" label.
func Metrics(rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			rec.ObserveHTTPRequest(r.Method, routePattern(r), status, time.Since(start))
		})
	}
}

// routePattern is read after the handler ran: chi fills the pattern in
// while routing, which happens further down the chain.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "unmatched"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "unmatched"
}
