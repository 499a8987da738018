package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// RequestObserver records finished requests. *metrics.Metrics satisfies it.
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// Metrics returns a middleware that reports each request to obs.
//
// ROUTE, NOT PATH:
// Requests are labelled with the chi route pattern ("/users"), never the raw
// URL path. Raw paths are unbounded (every 404 probe would mint a new time
// series). Requests that matched no route share the "unmatched" label.
//
// chi fills in the RouteContext while routing, which happens inside
// next.ServeHTTP, so the pattern is read afterwards.
func Metrics(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			obs.ObserveRequest(r.Method, route, wrapped.statusCode, time.Since(start))
		})
	}
}
