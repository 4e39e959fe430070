package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// TerminalOptions controls how a theme is mapped onto a terminal.
type TerminalOptions struct {
	ForceColor bool
	ForceMono  bool
}

// TerminalStyles are the lipgloss styles the terminal storefront renders with.
type TerminalStyles struct {
	Header      lipgloss.Style
	Logo        lipgloss.Style
	NavItem     lipgloss.Style
	NavActive   lipgloss.Style
	Sidebar     lipgloss.Style
	Body        lipgloss.Style
	Heading     lipgloss.Style
	Muted       lipgloss.Style
	Card        lipgloss.Style
	Price       lipgloss.Style
	Failure     lipgloss.Style
	Mono        bool
	ActiveTheme ID
}

// TerminalStylesFor builds terminal styles for cfg using renderer r.
//
// The renderer's detected color profile decides the rendition: an ASCII
// profile, or an explicit ForceMono, gets a high-contrast grayscale version of
// the same layout. ANSI and 256-color profiles keep the palette; lipgloss
// downsamples hex colors for them.
func TerminalStylesFor(r *lipgloss.Renderer, cfg Config, opts TerminalOptions) TerminalStyles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	colors := cfg.Colors
	mono := shouldUseMonochrome(r.ColorProfile(), opts)
	if mono {
		colors = grayscaleColors()
	}

	border := lipgloss.RoundedBorder()
	if cfg.Name == Pixelated {
		border = lipgloss.BlockBorder()
	}

	c := func(v string) lipgloss.Color { return lipgloss.Color(v) }
	return TerminalStyles{
		Header: r.NewStyle().
			Foreground(c(colors.TextPrimary)).
			Background(c(colors.Surface)).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(c(colors.Border)).
			Padding(0, 1),
		Logo:      r.NewStyle().Bold(true).Foreground(c(onPrimary(cfg, colors, mono))).Background(c(colors.Primary)).Padding(0, 1),
		NavItem:   r.NewStyle().Foreground(c(colors.TextPrimary)).Padding(0, 1),
		NavActive: r.NewStyle().Bold(true).Foreground(c(colors.Primary)).Padding(0, 1),
		Sidebar: r.NewStyle().
			Foreground(c(colors.TextPrimary)).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderForeground(c(colors.Border)).
			Padding(0, 1),
		Body:    r.NewStyle().Foreground(c(colors.TextSecondary)),
		Heading: r.NewStyle().Bold(true).Foreground(c(colors.Primary)),
		Muted:   r.NewStyle().Faint(true).Foreground(c(colors.TextSecondary)),
		Card: r.NewStyle().
			Foreground(c(colors.TextPrimary)).
			BorderStyle(border).
			BorderForeground(c(colors.Border)).
			Padding(0, 1),
		Price:       r.NewStyle().Bold(true).Foreground(c(colors.Primary)),
		Failure:     r.NewStyle().Bold(true).Foreground(c(colors.Primary)).Background(c(colors.Surface)),
		Mono:        mono,
		ActiveTheme: cfg.Name,
	}
}

func shouldUseMonochrome(profile termenv.Profile, opts TerminalOptions) bool {
	if opts.ForceMono {
		return true
	}
	if opts.ForceColor {
		return false
	}
	return profile == termenv.Ascii
}

// onPrimary picks the text color drawn on top of the primary color. The
// minimal preset uses white, the others reuse their secondary text color.
func onPrimary(cfg Config, colors Colors, mono bool) string {
	if mono {
		return "#000000"
	}
	if cfg.Name == Minimal {
		return "#ffffff"
	}
	return colors.TextSecondary
}

func grayscaleColors() Colors {
	return Colors{
		Primary:       "#ffffff",
		Secondary:     "#cfcfcf",
		Background:    "#111111",
		Surface:       "#1a1a1a",
		TextPrimary:   "#f2f2f2",
		TextSecondary: "#e6e6e6",
		Border:        "#8f8f8f",
	}
}
