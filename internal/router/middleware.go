// Package router holds the SSH session middleware chain: theme selection by
// username and per-session metadata.
package router

import (
	"context"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"themed-storefront/internal/theme"
)

type contextKey string

const (
	sessionIdentityKey contextKey = "storefront.identity"
	sessionMetadataKey contextKey = "storefront.session"
)

// Descriptor names a middleware so the runtime can report its chain.
type Descriptor struct {
	Name       string
	Middleware wish.Middleware
}

// Identity is what the username told us about the session.
type Identity struct {
	Username string
	// Theme is set when the username names a registered theme.
	Theme    theme.ID
	Selected bool
}

// SessionInfo is attached to every session before the handler runs.
type SessionInfo struct {
	ID         string
	Identity   Identity
	RemoteAddr string
	StartedAt  time.Time
}

// DefaultChain returns the session chain in execution order.
func DefaultChain(store *theme.Store, log zerolog.Logger) []Descriptor {
	return []Descriptor{
		{Name: "theme-routing", Middleware: themeRouting(store, log)},
		{Name: "session-metadata", Middleware: sessionMetadata(log)},
	}
}

// MiddlewareFromDescriptors unwraps the chain, preserving order.
func MiddlewareFromDescriptors(chain []Descriptor) []wish.Middleware {
	out := make([]wish.Middleware, 0, len(chain))
	for _, d := range chain {
		out = append(out, d.Middleware)
	}
	return out
}

// Compose wraps h so that mw[0] runs first.
func Compose(h ssh.Handler, mw ...wish.Middleware) ssh.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// themeRouting selects the theme named by the username, if any. Other
// usernames connect with whatever theme is active.
func themeRouting(store *theme.Store, log zerolog.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			identity := Identity{Username: s.User()}
			if id, ok := theme.Lookup(s.User()); ok && store != nil {
				if err := store.SetCurrent(id); err != nil {
					log.Warn().Err(err).Str("event", "ssh_theme_select_failed").Str("user", s.User()).Send()
				} else {
					identity.Theme = id
					identity.Selected = true
				}
			}
			s.Context().SetValue(sessionIdentityKey, identity)
			next(s)
		}
	}
}

func sessionMetadata(log zerolog.Logger) wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(s ssh.Session) {
			identity, _ := IdentityFrom(s.Context())
			if identity.Username == "" {
				identity.Username = s.User()
			}
			info := SessionInfo{
				ID:        uuid.NewString(),
				Identity:  identity,
				StartedAt: time.Now().UTC(),
			}
			if remote := s.RemoteAddr(); remote != nil {
				info.RemoteAddr = remote.String()
			}
			s.Context().SetValue(sessionMetadataKey, info)

			log.Info().
				Str("event", "ssh_session_started").
				Str("session_id", info.ID).
				Str("user", identity.Username).
				Str("theme", string(identity.Theme)).
				Str("remote", info.RemoteAddr).
				Send()
			defer func() {
				log.Info().
					Str("event", "ssh_session_ended").
					Str("session_id", info.ID).
					Dur("duration", time.Since(info.StartedAt)).
					Send()
			}()

			next(s)
		}
	}
}

// IdentityFrom returns the identity recorded by the theme-routing middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(sessionIdentityKey).(Identity)
	return identity, ok
}

// SessionInfoFrom returns the metadata recorded for the session.
func SessionInfoFrom(ctx context.Context) (SessionInfo, bool) {
	info, ok := ctx.Value(sessionMetadataKey).(SessionInfo)
	return info, ok
}
