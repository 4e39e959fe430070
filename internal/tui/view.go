package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"themed-storefront/internal/catalog"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	sidebarWidth  = 14
)

// View renders header, optional sidebar, the active page and a help line.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width, height := m.size()
	frame := m.frame()

	header := m.renderHeader(width)
	help := m.styles.Muted.Render("1/2/3 pages · t theme · s sidebar · j/k scroll · q quit")

	bodyWidth := width
	var sidebar string
	if frame.SidebarPinned && frame.SidebarOpen {
		sidebar = m.renderSidebar(height)
		bodyWidth = max(width-lipgloss.Width(sidebar), 20)
	}

	bodyHeight := max(height-lipgloss.Height(header)-lipgloss.Height(help), 1)
	body := m.styles.Body.
		Width(bodyWidth).
		MaxHeight(bodyHeight).
		Padding(0, 1).
		Render(m.renderPage(bodyWidth - 2))

	if sidebar != "" {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, body)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, help)
}

func (m Model) size() (int, int) {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}
	return width, height
}

func (m Model) renderHeader(width int) string {
	frame := m.frame()
	parts := []string{m.styles.Logo.Render("Ecommerce")}
	if frame.TopNav {
		for _, link := range frame.Nav {
			label := fmt.Sprintf("%s %s", link.Key, link.Label)
			if link.Active {
				parts = append(parts, m.styles.NavActive.Render(label))
			} else {
				parts = append(parts, m.styles.NavItem.Render(label))
			}
		}
	}
	left := lipgloss.JoinHorizontal(lipgloss.Center, parts...)
	right := m.styles.Muted.Render("theme: " + m.cfg.DisplayName)

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return m.styles.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderSidebar(height int) string {
	var lines []string
	for _, link := range m.frame().Nav {
		label := fmt.Sprintf("%s %s", link.Key, link.Label)
		if link.Active {
			lines = append(lines, m.styles.NavActive.Render(label))
		} else {
			lines = append(lines, m.styles.NavItem.Render(label))
		}
	}
	return m.styles.Sidebar.
		Width(sidebarWidth).
		Height(max(height-4, len(lines))).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderPage(width int) string {
	switch m.page {
	case PageAbout:
		return strings.Join([]string{
			m.styles.Heading.Render("About Us"),
			"Building web pages that can be themed.",
			"",
			m.styles.Card.Width(min(width, 60)).Render(
				m.styles.Heading.Render("Our Goal") + "\n" +
					"One storefront, three looks. Pick Minimal, Dark or Pixelated and every page follows along, in the browser and over SSH.",
			),
		}, "\n")
	case PageContact:
		return strings.Join([]string{
			m.styles.Heading.Render("Contact Us"),
			"We'd love to hear from you! Get in touch with us.",
			"",
			m.styles.Card.Width(min(width, 60)).Render("Email Us\nhello@example.com"),
			m.styles.Card.Width(min(width, 60)).Render("Call Us\n+1 555-010-0199"),
		}, "\n")
	default:
		return m.renderHome(width)
	}
}

func (m Model) renderHome(width int) string {
	lines := []string{
		m.styles.Heading.Render("Welcome to Ecommerce"),
		"",
		m.styles.Heading.Render("Products For You"),
	}

	switch {
	case !m.loaded:
		lines = append(lines, m.spinner.View()+" Loading products...")
	case m.fetchErr != nil:
		lines = append(lines, m.styles.Failure.Render("Products unavailable. Please try again later."))
	case len(m.products) == 0:
		lines = append(lines, m.styles.Muted.Render("No products."))
	default:
		for _, p := range m.products[min(m.scroll, len(m.products)-1):] {
			lines = append(lines, m.renderCard(p, min(width, 60)))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderCard(p catalog.Product, width int) string {
	title := truncate(p.Title, max(width-4, 8))
	body := strings.Join([]string{
		title,
		m.styles.Muted.Render(p.Category),
		m.styles.Price.Render(p.DisplayPrice()) + "  " + m.styles.Muted.Render(fmt.Sprintf("★ %.1f (%d)", p.Rating.Rate, p.Rating.Count)),
		"[ Add to Cart ]",
	}, "\n")
	return m.styles.Card.Width(width).Render(body)
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}
