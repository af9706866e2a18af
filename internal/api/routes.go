package api

import (
	"net/http"

	"crptapi/internal/ratelimit"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health"
			}),
		))
	}
}

// WithRateLimitHeaders reports the outbound limiter's capacity on every response.
func WithRateLimitHeaders(limiter ratelimit.Limiter) RouteOption {
	return func(r *mux.Router) {
		r.Use(ratelimit.HeadersMiddleware(limiter))
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}
	router.Use(loggingMiddleware(handlers.logger))
	router.Use(recoveryMiddleware(handlers.logger))

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/documents", handlers.SubmitDocument).Methods("POST")
	api.HandleFunc("/documents", methodNotAllowedHandler).Methods("GET", "PUT", "DELETE", "PATCH")
	api.HandleFunc("/payloads", handlers.SubmitPayload).Methods("POST")
	api.HandleFunc("/payloads", methodNotAllowedHandler).Methods("GET", "PUT", "DELETE", "PATCH")
	api.HandleFunc("/submissions", handlers.ListSubmissions).Methods("GET")
	api.HandleFunc("/submissions/{id}", handlers.GetSubmission).Methods("GET")

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowedHandler)
	router.NotFoundHandler = http.HandlerFunc(notFoundHandler)

	return router
}
