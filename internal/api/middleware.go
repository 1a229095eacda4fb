// Package api - Middleware for authentication and request processing
package api

import (
	"bufio"
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/alexbotov/pagacollect/internal/auth"
)

type contextKey string

const (
	claimsKey    contextKey = "claims"
	requestIDKey contextKey = "request_id"
)

// HeaderRequestID carries the request id on requests and responses
const HeaderRequestID = "X-Request-ID"

func claimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(claimsKey).(*auth.Claims); ok {
		return c
	}
	return &auth.Claims{}
}

// RequestIDFromContext returns the id assigned by RequestIDMiddleware
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// AuthMiddleware validates operator tokens and adds the claims to the context.
// WebSocket clients that cannot set headers may pass access_token instead.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("access_token")

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respondError(w, http.StatusUnauthorized, "INVALID_TOKEN_FORMAT", "Invalid authorization header format")
				return
			}
			token = parts[1]
		}
		if token == "" {
			respondError(w, http.StatusUnauthorized, "NO_TOKEN", "Authorization header required")
			return
		}

		claims, err := h.auth.ValidateToken(token)
		if err != nil {
			switch err {
			case auth.ErrTokenExpired:
				respondError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token has expired")
			default:
				respondError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token")
			}
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CallbackAuthMiddleware checks the HTTP Basic credentials the provider
// presents on callbacks
func (h *Handler) CallbackAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(h.callback.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(h.callback.Password)) == 1
		if !ok || !userOK || !passOK || h.callback.Username == "" {
			h.logger.Warn("callback rejected: bad credentials",
				zap.String("remote_addr", getClientIP(r)),
				zap.String("request_id", RequestIDFromContext(r.Context())))
			w.Header().Set("WWW-Authenticate", `Basic realm="callbacks"`)
			respondCallback(w, http.StatusUnauthorized, "1", "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDMiddleware assigns every request an id, keeping one supplied by the caller
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// Hijack lets websocket upgrades pass through the recorder
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rec.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// LoggingMiddleware logs every request once it completes
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", getClientIP(r)),
				zap.String("request_id", RequestIDFromContext(r.Context())))
		})
	}
}

// RateLimitMiddleware limits requests per second. If requestsPerSecond <= 0, rate limiting is disabled.
func RateLimitMiddleware(requestsPerSecond float64, burst int, logger *zap.Logger) func(http.Handler) http.Handler {
	if requestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	limiter := rate.NewLimiter(rate.Limit(requestsPerSecond), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				logger.Warn("rate limit exceeded",
					zap.String("remote_addr", getClientIP(r)),
					zap.String("request_id", RequestIDFromContext(r.Context())))
				respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
