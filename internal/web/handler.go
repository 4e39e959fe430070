// Package web serves the storefront over HTTP: server-rendered pages, a small
// JSON API and a server-sent event stream of theme changes.
package web

import (
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	"github.com/rs/zerolog"

	"themed-storefront/internal/catalog"
	"themed-storefront/internal/ratelimit"
	"themed-storefront/internal/theme"
)

const (
	maxFormBodyBytes  = 4 * 1024
	maxThemeBodyBytes = 1024
	defaultHeartbeat  = 25 * time.Second

	// sidebarCookie keeps each visitor's sidebar state.
	sidebarCookie = "storefront_sidebar"
)

// Options wires the handler to the process-wide state it renders.
type Options struct {
	Store   *theme.Store
	Cache   *catalog.Cache
	Limiter *ratelimit.Limiter
	Logger  zerolog.Logger
	// TrustProxy takes the client address from forwarding headers.
	TrustProxy bool
	// Heartbeat is the SSE keep-alive interval.
	Heartbeat time.Duration
}

type Handler struct {
	store      *theme.Store
	cache      *catalog.Cache
	limiter    *ratelimit.Limiter
	log        zerolog.Logger
	trustProxy bool
	heartbeat  time.Duration
	pages      map[string]*template.Template
	assets     fs.FS
}

func NewHandler(opts Options) (*Handler, error) {
	if opts.Store == nil || opts.Cache == nil {
		return nil, errors.New("web: theme store and product cache are required")
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, errors.Wrap(err, "static assets")
	}

	heartbeat := opts.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	return &Handler{
		store:      opts.Store,
		cache:      opts.Cache,
		limiter:    opts.Limiter,
		log:        opts.Logger,
		trustProxy: opts.TrustProxy,
		heartbeat:  heartbeat,
		pages:      pages,
		assets:     assets,
	}, nil
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if h.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(instrumentRequests(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(h.assets))))

	r.Group(func(r chi.Router) {
		r.Use(rateLimit(h.limiter, h.log))

		r.Get("/", h.home)
		r.Get("/about", h.about)
		r.Get("/contact", h.contact)
		r.Post("/theme", h.selectTheme)
		r.Post("/sidebar/toggle", h.toggleSidebar)

		r.Route("/api", func(r chi.Router) {
			r.NotFound(h.notFound)
			r.Get("/theme", h.getTheme)
			r.Put("/theme", h.putTheme)
			r.Get("/products", h.getProducts)
			r.Get("/products/status", h.getProductsStatus)
		})

		r.Get("/events/theme", h.themeEvents)
	})

	r.NotFound(h.notFound)
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}

func logRejection(log zerolog.Logger, r *http.Request, operation, reason, details string) {
	log.Warn().
		Str("event", "http_request_rejected").
		Str("operation", operation).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("reason", reason).
		Str("details", details).
		Str("remote", r.RemoteAddr).
		Send()
}
