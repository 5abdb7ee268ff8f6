package handlers

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/ulule/limiter/v3"
)

// rateLimitMiddleware limits requests per client IP.
func rateLimitMiddleware(l *limiter.Limiter, logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			limit, err := l.Get(r.Context(), ip)
			if err != nil {
				logger.Error("failed to check rate limit", "ip", ip, "error", err)
				writeError(w, logger, http.StatusInternalServerError, "internal server error")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(limit.Limit, 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(limit.Remaining, 10))
			if limit.Reached {
				logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path, "limit", limit.Limit)
				writeError(w, logger, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
