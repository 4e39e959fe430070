// Package layout holds the storefront shell: header navigation, the
// collapsible sidebar and which of them the active theme shows.
package layout

import (
	"sync"

	"themed-storefront/internal/theme"
)

// NavItem is one routed page.
type NavItem struct {
	Href  string
	Label string
	Key   string
}

// NavItems lists the routed pages in display order.
var NavItems = []NavItem{
	{Href: "/", Label: "Home", Key: "1"},
	{Href: "/about", Label: "About", Key: "2"},
	{Href: "/contact", Label: "Contact", Key: "3"},
}

// NavLink is a NavItem resolved against the current path.
type NavLink struct {
	NavItem
	Active bool
}

// Frame is everything the header and sidebar need for one render.
type Frame struct {
	ThemeID     theme.ID
	Theme       theme.Config
	Themes      []theme.Config
	Path        string
	Nav         []NavLink
	TopNav      bool
	SidebarOpen bool
	// SidebarPinned is true when the theme shows the sidebar on every
	// viewport; otherwise it only appears on narrow screens.
	SidebarPinned bool
}

// Shell is the ephemeral UI state of one layout. It is never persisted.
type Shell struct {
	mu          sync.Mutex
	sidebarOpen bool
}

func NewShell() *Shell {
	return &Shell{sidebarOpen: true}
}

// RestoreShell rebuilds a shell whose sidebar state was kept by the client.
func RestoreShell(sidebarOpen bool) *Shell {
	return &Shell{sidebarOpen: sidebarOpen}
}

func (s *Shell) SidebarOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sidebarOpen
}

// ToggleSidebar flips the sidebar and returns the new state.
func (s *Shell) ToggleSidebar() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sidebarOpen = !s.sidebarOpen
	return s.sidebarOpen
}

// Frame derives the header/sidebar view state for path under the given theme.
func (s *Shell) Frame(id theme.ID, cfg theme.Config, path string) Frame {
	return Frame{
		ThemeID:       id,
		Theme:         cfg,
		Themes:        theme.List(),
		Path:          path,
		Nav:           Links(path),
		TopNav:        !cfg.Layout.HasSidebar,
		SidebarOpen:   s.SidebarOpen(),
		SidebarPinned: cfg.Layout.HasSidebar,
	}
}

// Links marks the nav item matching path as active.
func Links(path string) []NavLink {
	out := make([]NavLink, 0, len(NavItems))
	for _, item := range NavItems {
		out = append(out, NavLink{NavItem: item, Active: item.Href == path})
	}
	return out
}

// Resolve maps a path to its nav item.
func Resolve(path string) (NavItem, bool) {
	for _, item := range NavItems {
		if item.Href == path {
			return item, true
		}
	}
	return NavItem{}, false
}
