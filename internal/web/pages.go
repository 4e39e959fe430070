package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"themed-storefront/internal/catalog"
	"themed-storefront/internal/layout"
	"themed-storefront/internal/theme"
)

var (
	//go:embed templates/*.html
	templateFS embed.FS
	//go:embed static
	staticFS embed.FS
)

var pageNames = []string{"home", "about", "contact", "error"}

type pageData struct {
	layout.Frame
	Title    string
	ThemeCSS template.CSS

	Products []catalog.Product
	FetchErr string

	Status  int
	Message string
}

func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layout.html").ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("page %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// themeCSS renders the active preset as CSS custom properties. The values
// come from the built-in registry only.
func themeCSS(cfg theme.Config) template.CSS {
	var b strings.Builder
	vars := [][2]string{
		{"--color-primary", cfg.Colors.Primary},
		{"--color-secondary", cfg.Colors.Secondary},
		{"--color-background", cfg.Colors.Background},
		{"--color-surface", cfg.Colors.Surface},
		{"--color-text-primary", cfg.Colors.TextPrimary},
		{"--color-text-secondary", cfg.Colors.TextSecondary},
		{"--color-border", cfg.Colors.Border},
		{"--font-primary", cfg.Fonts.Primary},
		{"--font-secondary", cfg.Fonts.Secondary},
		{"--transition", cfg.Transition},
	}
	for _, v := range vars {
		fmt.Fprintf(&b, "%s: %s; ", v[0], v[1])
	}
	return template.CSS(strings.TrimSpace(b.String()))
}

func (h *Handler) frame(r *http.Request, path string) layout.Frame {
	id, cfg := h.store.Current()
	return shellFor(r).Frame(id, cfg, path)
}

// shellFor restores the requesting visitor's shell. Visitors without the
// cookie start with the sidebar open.
func shellFor(r *http.Request) *layout.Shell {
	c, err := r.Cookie(sidebarCookie)
	if err != nil {
		return layout.NewShell()
	}
	return layout.RestoreShell(c.Value != "closed")
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, status int, data pageData) {
	t, ok := h.pages[page]
	if !ok {
		writeErr(w, http.StatusInternalServerError, "INTERNAL_ERROR", "storefront internal error")
		return
	}
	data.ThemeCSS = themeCSS(data.Theme)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.log.Error().Err(err).Str("event", "template_render_failed").Str("page", page).Str("path", r.URL.Path).Send()
		writeErr(w, http.StatusInternalServerError, "INTERNAL_ERROR", "storefront internal error")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	data := pageData{Frame: h.frame(r, "/"), Title: "Home"}

	products, err := h.cache.GetOrCreate().Wait(r.Context())
	if r.Context().Err() != nil {
		return
	}
	if err != nil {
		data.FetchErr = "We could not load products right now. Please try again later."
	}
	data.Products = products
	h.render(w, r, "home", http.StatusOK, data)
}

func (h *Handler) about(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "about", http.StatusOK, pageData{Frame: h.frame(r, "/about"), Title: "About"})
}

func (h *Handler) contact(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "contact", http.StatusOK, pageData{Frame: h.frame(r, "/contact"), Title: "Contact"})
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeErr(w, http.StatusNotFound, "NOT_FOUND", "endpoint not found")
		return
	}
	h.renderError(w, r, http.StatusNotFound, "The page you requested does not exist.")
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, "error", status, pageData{
		Frame:   h.frame(r, r.URL.Path),
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}

func (h *Handler) selectTheme(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodyBytes)
	if err := r.ParseForm(); err != nil {
		logRejection(h.log, r, "select_theme", "bad_form", err.Error())
		h.renderError(w, r, http.StatusBadRequest, "The theme form could not be read.")
		return
	}

	raw := r.PostForm.Get("theme")
	id, ok := theme.Lookup(raw)
	if !ok {
		logRejection(h.log, r, "select_theme", "invalid_theme", raw)
		h.renderError(w, r, http.StatusBadRequest, fmt.Sprintf("%q is not an available theme.", raw))
		return
	}
	if err := h.store.SetCurrent(id); err != nil {
		logRejection(h.log, r, "select_theme", "set_failed", err.Error())
		h.renderError(w, r, mapError(err).Status, "The theme could not be applied.")
		return
	}
	http.Redirect(w, r, returnPath(r.PostForm.Get("return")), http.StatusSeeOther)
}

func (h *Handler) toggleSidebar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBodyBytes)
	_ = r.ParseForm()
	state := "closed"
	if shellFor(r).ToggleSidebar() {
		state = "open"
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sidebarCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, returnPath(r.PostForm.Get("return")), http.StatusSeeOther)
}

// returnPath only redirects back to routed pages.
func returnPath(raw string) string {
	if item, ok := layout.Resolve(raw); ok {
		return item.Href
	}
	return "/"
}
