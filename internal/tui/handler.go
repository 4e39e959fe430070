package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/rs/zerolog"

	"themed-storefront/internal/catalog"
	"themed-storefront/internal/router"
	"themed-storefront/internal/theme"
)

// Handler builds a storefront program for every SSH session.
func Handler(store *theme.Store, cache *catalog.Cache, log zerolog.Logger) bm.Handler {
	return func(s ssh.Session) (tea.Model, []tea.ProgramOption) {
		pty, _, _ := s.Pty()
		m := NewModel(Options{
			Store:    store,
			Cache:    cache,
			Renderer: bm.MakeRenderer(s),
			Terminal: terminalOptions(s.Environ()),
			Width:    pty.Window.Width,
			Height:   pty.Window.Height,
			Context:  s.Context(),
		})

		event := log.Debug().Str("event", "tui_session_started").Str("term", pty.Term).Str("theme", string(m.themeID))
		if info, ok := router.SessionInfoFrom(s.Context()); ok {
			event = event.Str("session_id", info.ID)
		}
		event.Send()

		return m, []tea.ProgramOption{tea.WithAltScreen()}
	}
}

// terminalOptions honours NO_COLOR sent by the client; color detection itself
// is left to the session renderer.
func terminalOptions(environ []string) theme.TerminalOptions {
	for _, kv := range environ {
		if name, value, _ := strings.Cut(kv, "="); name == "NO_COLOR" && value != "" {
			return theme.TerminalOptions{ForceMono: true}
		}
	}
	return theme.TerminalOptions{}
}
