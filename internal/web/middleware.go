package web

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"themed-storefront/internal/ratelimit"
)

func instrumentRequests(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			observer := &statusObserver{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(observer, r)

			event := log.Info()
			if observer.status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("event", "http_request").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", observer.status).
				Int64("duration_ms", time.Since(started).Milliseconds()).
				Str("remote", r.RemoteAddr).
				Str("request_id", middleware.GetReqID(r.Context())).
				Send()
		})
	}
}

type statusObserver struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (o *statusObserver) WriteHeader(status int) {
	if !o.wroteHeader {
		o.status = status
		o.wroteHeader = true
	}
	o.ResponseWriter.WriteHeader(status)
}

func (o *statusObserver) Write(p []byte) (int, error) {
	o.wroteHeader = true
	return o.ResponseWriter.Write(p)
}

func (o *statusObserver) Flush() {
	if flusher, ok := o.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (o *statusObserver) Unwrap() http.ResponseWriter { return o.ResponseWriter }

// rateLimit throttles requests per client IP. A nil limiter disables it.
func rateLimit(limiter *ratelimit.Limiter, log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !limiter.Allow(ip, time.Now()) {
				log.Warn().
					Str("event", "http_rate_limited").
					Str("remote", ip).
					Str("path", r.URL.Path).
					Send()
				w.Header().Set("Retry-After", "1")
				writeErr(w, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
