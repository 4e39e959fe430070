package server

import (
	"net"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/rs/zerolog"

	"themed-storefront/internal/ratelimit"
)

// RateLimitMiddleware enforces per-IP connection limits using limiter, which
// the HTTP surface may share.
func RateLimitMiddleware(limiter *ratelimit.Limiter, log zerolog.Logger) wish.Middleware {
	if limiter == nil {
		limiter = ratelimit.New(0, 0)
	}

	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			now := time.Now().UTC()
			ip := remoteIP(s)
			if !limiter.Allow(ip, now) {
				log.Warn().
					Str("event", "rate_limit_throttled").
					Str("remote_ip", ip).
					Time("timestamp", now).
					Send()
				_, _ = s.Write([]byte("rate limit exceeded\n"))
				return
			}
			next(s)
		}
	}
}

func remoteIP(s ssh.Session) string {
	remote := s.RemoteAddr()
	if remote == nil {
		return "unknown"
	}

	host, _, err := net.SplitHostPort(remote.String())
	if err != nil {
		return remote.String()
	}

	if host == "" {
		return "unknown"
	}
	return host
}
