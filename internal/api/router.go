// Package api - Router setup
package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// RouterConfig holds the settings of the HTTP middleware stack
type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
	// Registry backs /metrics and receives the HTTP duration histogram
	Registry *prometheus.Registry
}

// SetupRouter creates and configures the HTTP router. Recovery and CORS wrap
// the router so they also cover preflight and unmatched requests.
func (h *Handler) SetupRouter(cfg RouterConfig) http.Handler {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(NotFoundHandler)

	// Apply global middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(h.logger))
	r.Use(metricsMiddleware(registry))

	// Public routes
	r.HandleFunc("/", h.ServerInfo).Methods("GET")
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")

	// Provider callbacks
	callbacks := r.PathPrefix("/callbacks").Subrouter()
	callbacks.Use(h.CallbackAuthMiddleware)
	callbacks.HandleFunc("/paga", h.PagaCallback).Methods("POST")

	// API v1 routes
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst, h.logger))

	// Auth routes (public)
	api.HandleFunc("/auth/token", h.IssueToken).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(h.AuthMiddleware)

	protected.HandleFunc("/banks", h.ListBanks).Methods("GET")
	protected.HandleFunc("/history", h.History).Methods("POST")

	// Payment requests
	protected.HandleFunc("/payment-requests", h.CreatePaymentRequest).Methods("POST")
	protected.HandleFunc("/payment-requests", h.ListPaymentRequests).Methods("GET")
	protected.HandleFunc("/payment-requests/{reference}", h.GetPaymentRequest).Methods("GET")
	protected.HandleFunc("/payment-requests/{reference}/status", h.RefreshStatus).Methods("POST")
	protected.HandleFunc("/payment-requests/{reference}/refund", h.Refund).Methods("POST")

	// Persistent accounts
	protected.HandleFunc("/accounts", h.RegisterAccount).Methods("POST")
	protected.HandleFunc("/accounts/{identifier}", h.GetAccount).Methods("GET")
	protected.HandleFunc("/accounts/{identifier}", h.UpdateAccount).Methods("PUT")
	protected.HandleFunc("/accounts/{identifier}", h.DeleteAccount).Methods("DELETE")

	// Collection control
	protected.HandleFunc("/control", h.ControlStatus).Methods("GET")
	protected.HandleFunc("/control/pause", h.PauseCollections).Methods("POST")
	protected.HandleFunc("/control/resume", h.ResumeCollections).Methods("POST")
	protected.HandleFunc("/control/operations/{operation}/disable", h.DisableOperation).Methods("POST")
	protected.HandleFunc("/control/operations/{operation}/enable", h.EnableOperation).Methods("POST")

	// WebSocket event stream
	protected.HandleFunc("/events", h.HandleEvents).Methods("GET")

	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", HeaderRequestID}),
		handlers.ExposedHeaders([]string{HeaderRequestID}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(zap.NewStdLog(h.logger)),
		handlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}

// metricsMiddleware records request durations by route template
func metricsMiddleware(reg prometheus.Registerer) mux.MiddlewareFunc {
	duration := promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
		Name: "pagacollect_http_duration_seconds",
		Help: "Duration of HTTP requests.",
	}, []string{"path"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					path = tpl
				}
			}
			timer := prometheus.NewTimer(duration.WithLabelValues(path))
			next.ServeHTTP(w, r)
			timer.ObserveDuration()
		})
	}
}

// NotFoundHandler handles 404 errors
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
}
