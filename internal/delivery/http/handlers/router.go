package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency (the database) is reachable.
type HealthCheck func(ctx context.Context) error

// AdminLimiter, when set, rate limits the admin routes per client IP.
type RouterDeps struct {
	Rates        *ExchangeRateHandler
	Admin        *AdminHandler
	Gatherer     prometheus.Gatherer
	Health       HealthCheck
	AdminLimiter *limiter.Limiter
	Logger       *slog.Logger
}

func NewRouter(deps RouterDeps) *mux.Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthHandler(deps.Health, logger)).Methods(http.MethodGet)

	if deps.Rates != nil {
		deps.Rates.RegisterRoutes(router)
	}
	if deps.Admin != nil {
		var middlewares []mux.MiddlewareFunc
		if deps.AdminLimiter != nil {
			middlewares = append(middlewares, rateLimitMiddleware(deps.AdminLimiter, logger))
		}
		deps.Admin.RegisterRoutes(router, middlewares...)
	}
	return router
}

func healthHandler(check HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				logger.Warn("health check failed", "error", err)
				writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, logger, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
				return
			}
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(started),
			)
		})
	}
}
