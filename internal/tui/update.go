package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"themed-storefront/internal/theme"
)

// Update handles Bubble Tea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case themeChangedMsg:
		m.applyTheme(msg.Current, msg.Config)
		return m, waitForTheme(m.ctx, m.changes)
	case productsMsg:
		if m.ctx.Err() != nil {
			return m, nil
		}
		m.loaded = true
		m.products = msg.products
		m.fetchErr = msg.err
		return m, nil
	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.unsubscribe()
		return m, tea.Quit
	case "1", "h":
		m.setPage(PageHome)
	case "2", "a":
		m.setPage(PageAbout)
	case "3", "c":
		m.setPage(PageContact)
	case "t":
		next := theme.Next(m.themeID)
		if err := m.store.SetCurrent(next); err == nil {
			m.applyTheme(next, theme.MustGet(next))
		}
	case "s":
		m.shell.ToggleSidebar()
	case "j", "down":
		if m.page == PageHome && m.scroll < len(m.products)-1 {
			m.scroll++
		}
	case "k", "up":
		if m.scroll > 0 {
			m.scroll--
		}
	}
	return m, nil
}

func (m *Model) setPage(p Page) {
	if m.page != p {
		m.scroll = 0
	}
	m.page = p
}
