package server

import (
	"sync"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/rs/zerolog"
)

// MaxSessionsMiddleware caps concurrent sessions. A slot is released exactly
// once, when the session context ends or the handler returns, whichever
// comes first.
func MaxSessionsMiddleware(limit int, log zerolog.Logger) wish.Middleware {
	if limit <= 0 {
		limit = 1
	}
	slots := make(chan struct{}, limit)

	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			select {
			case slots <- struct{}{}:
			default:
				log.Warn().
					Str("event", "max_sessions_exceeded").
					Str("remote_ip", remoteIP(s)).
					Int("limit", limit).
					Send()
				_, _ = s.Write([]byte("max sessions exceeded\n"))
				return
			}

			var once sync.Once
			release := func() { once.Do(func() { <-slots }) }
			handlerDone := make(chan struct{})
			go func() {
				select {
				case <-s.Context().Done():
					release()
				case <-handlerDone:
				}
			}()

			defer func() {
				close(handlerDone)
				release()
				if r := recover(); r != nil {
					log.Error().
						Str("event", "session_panic").
						Str("remote_ip", remoteIP(s)).
						Interface("panic", r).
						Send()
				}
			}()

			next(s)
		}
	}
}
