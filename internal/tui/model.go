// Package tui renders the storefront as a Bubble Tea program for SSH
// sessions. Each session owns its own layout shell and page; the theme and
// product list are shared with the HTTP surface.
package tui

import (
	"context"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"themed-storefront/internal/catalog"
	"themed-storefront/internal/layout"
	"themed-storefront/internal/theme"
)

// Page identifies the routed view.
type Page int

const (
	PageHome Page = iota
	PageAbout
	PageContact
)

var pagePaths = map[Page]string{
	PageHome:    "/",
	PageAbout:   "/about",
	PageContact: "/contact",
}

func (p Page) Path() string { return pagePaths[p] }

type (
	themeChangedMsg theme.Change
	productsMsg     struct {
		products []catalog.Product
		err      error
	}
)

// Options configures one session's model.
type Options struct {
	Store    *theme.Store
	Cache    *catalog.Cache
	Renderer *lipgloss.Renderer
	Terminal theme.TerminalOptions
	Width    int
	Height   int
	// Context ends the theme subscription when the session closes.
	Context context.Context
}

// Model is the Bubble Tea state of one terminal session.
type Model struct {
	store    *theme.Store
	cache    *catalog.Cache
	renderer *lipgloss.Renderer
	termOpts theme.TerminalOptions
	ctx      context.Context

	shell  *layout.Shell
	page   Page
	width  int
	height int
	scroll int

	themeID theme.ID
	cfg     theme.Config
	styles  theme.TerminalStyles

	spinner  spinner.Model
	loaded   bool
	products []catalog.Product
	fetchErr error

	changes     chan theme.Change
	unsubscribe func()
	quitting    bool
}

// NewModel subscribes to theme changes for the life of opts.Context.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	renderer := opts.Renderer
	if renderer == nil {
		renderer = lipgloss.DefaultRenderer()
	}

	m := Model{
		store:    opts.Store,
		cache:    opts.Cache,
		renderer: renderer,
		termOpts: opts.Terminal,
		ctx:      ctx,
		shell:    layout.NewShell(),
		page:     PageHome,
		width:    opts.Width,
		height:   opts.Height,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		changes:  make(chan theme.Change, 1),
	}

	id, cfg := m.store.Current()
	m.applyTheme(id, cfg)

	changes := m.changes
	unsubscribe := m.store.Subscribe(func(c theme.Change) {
		// Keep only the latest change.
		select {
		case <-changes:
		default:
		}
		select {
		case changes <- c:
		default:
		}
	})
	var once sync.Once
	m.unsubscribe = func() { once.Do(unsubscribe) }
	context.AfterFunc(ctx, m.unsubscribe)
	return m
}

// Init starts the product fetch (the model opens on the home page), the
// loading spinner and the theme listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		waitForProducts(m.ctx, m.cache.GetOrCreate()),
		waitForTheme(m.ctx, m.changes),
	)
}

func (m *Model) applyTheme(id theme.ID, cfg theme.Config) {
	m.themeID = id
	m.cfg = cfg
	m.styles = theme.TerminalStylesFor(m.renderer, cfg, m.termOpts)
	m.spinner.Style = m.styles.Heading
}

func (m Model) frame() layout.Frame {
	return m.shell.Frame(m.themeID, m.cfg, m.page.Path())
}

func waitForProducts(ctx context.Context, unit *catalog.FetchUnit) tea.Cmd {
	return func() tea.Msg {
		products, err := unit.Wait(ctx)
		return productsMsg{products: products, err: err}
	}
}

func waitForTheme(ctx context.Context, changes <-chan theme.Change) tea.Cmd {
	return func() tea.Msg {
		select {
		case c := <-changes:
			return themeChangedMsg(c)
		case <-ctx.Done():
			return nil
		}
	}
}
