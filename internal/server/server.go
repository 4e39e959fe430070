package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	bm "github.com/charmbracelet/wish/bubbletea"
	"github.com/charmbracelet/wish/logging"
	"github.com/go-faster/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"themed-storefront/internal/catalog"
	"themed-storefront/internal/config"
	"themed-storefront/internal/ratelimit"
	"themed-storefront/internal/router"
	"themed-storefront/internal/theme"
	"themed-storefront/internal/tui"
	"themed-storefront/internal/web"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

const (
	shutdownTimeout = 10 * time.Second
	pruneInterval   = time.Minute
	bucketIdle      = 10 * time.Minute
)

// Deps is the process-wide state both surfaces share.
type Deps struct {
	Store  *theme.Store
	Cache  *catalog.Cache
	Logger zerolog.Logger
}

// Runtime wires config, the HTTP handler and the Wish server as a testable unit.
type Runtime struct {
	cfg           config.Config
	log           zerolog.Logger
	limiter       *ratelimit.Limiter
	http          *http.Server
	ssh           *ssh.Server
	middlewareIDs []string
}

func New(cfg config.Config, deps Deps) (*Runtime, error) {
	if deps.Store == nil || deps.Cache == nil {
		return nil, errors.New("server: theme store and product cache are required")
	}
	limiter := ratelimit.New(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst)

	handler, err := web.NewHandler(web.Options{
		Store:      deps.Store,
		Cache:      deps.Cache,
		Limiter:    limiter,
		Logger:     deps.Logger.With().Str("surface", "http").Logger(),
		TrustProxy: cfg.HTTP.TrustProxy,
	})
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		cfg:     cfg,
		log:     deps.Logger,
		limiter: limiter,
		http: &http.Server{
			Addr:              cfg.HTTP.Addr(),
			Handler:           handler.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}

	if !cfg.SSH.Enabled {
		return rt, nil
	}

	chain := SessionChain(cfg, deps, limiter)
	if dir := filepath.Dir(cfg.SSH.HostKeyPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, errors.Wrap(err, "create host key directory")
		}
	}

	// wish runs the last middleware first; the chain is in execution order.
	middleware := router.MiddlewareFromDescriptors(chain)
	slices.Reverse(middleware)

	sshServer, err := wish.NewServer(
		wish.WithAddress(cfg.SSH.Addr()),
		wish.WithHostKeyPath(cfg.SSH.HostKeyPath),
		wish.WithIdleTimeout(cfg.SSH.IdleTimeout),
		wish.WithMiddleware(middleware...),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create ssh server")
	}

	rt.ssh = sshServer
	for _, d := range chain {
		rt.middlewareIDs = append(rt.middlewareIDs, d.Name)
	}
	return rt, nil
}

// SessionChain is the SSH middleware chain in execution order, ending with
// the storefront program.
func SessionChain(cfg config.Config, deps Deps, limiter *ratelimit.Limiter) []router.Descriptor {
	sshLog := deps.Logger.With().Str("surface", "ssh").Logger()

	chain := []router.Descriptor{
		{Name: "logging", Middleware: logging.MiddlewareWithLogger(&sshLog)},
		{Name: "rate-limit", Middleware: RateLimitMiddleware(limiter, sshLog)},
		{Name: "max-sessions", Middleware: MaxSessionsMiddleware(cfg.SSH.MaxSessions, sshLog)},
		{Name: "active-terminal", Middleware: activeterm.Middleware()},
	}
	chain = append(chain, router.DefaultChain(deps.Store, sshLog)...)
	return append(chain, router.Descriptor{
		Name:       "storefront",
		Middleware: bm.Middleware(tui.Handler(deps.Store, deps.Cache, sshLog)),
	})
}

func (r *Runtime) MiddlewareIDs() []string {
	out := make([]string, len(r.middlewareIDs))
	copy(out, r.middlewareIDs)
	return out
}

func (r *Runtime) HTTPAddress() string { return r.http.Addr }

// SSHAddress is empty when the SSH surface is disabled.
func (r *Runtime) SSHAddress() string {
	if r.ssh == nil {
		return ""
	}
	return r.ssh.Addr
}

// Handler exposes the HTTP routes.
func (r *Runtime) Handler() http.Handler { return r.http.Handler }

// Run listens on the configured addresses and serves until ctx ends or the
// process receives SIGINT/SIGTERM.
func (r *Runtime) Run(ctx context.Context) error {
	httpLn, err := net.Listen("tcp", r.http.Addr)
	if err != nil {
		return errors.Wrap(err, "listen http")
	}

	var sshLn net.Listener
	if r.ssh != nil {
		sshLn, err = net.Listen("tcp", r.ssh.Addr)
		if err != nil {
			_ = httpLn.Close()
			return errors.Wrap(err, "listen ssh")
		}
	}

	return r.Serve(ctx, httpLn, sshLn)
}

// Serve runs both surfaces on the given listeners. sshLn is ignored when
// SSH is disabled.
func (r *Runtime) Serve(ctx context.Context, httpLn, sshLn net.Listener) error {
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Request contexts end on shutdown so event streams and pending product
	// waits return instead of holding Shutdown open.
	baseCtx, cancelRequests := context.WithCancel(context.Background())
	defer cancelRequests()
	r.http.BaseContext = func(net.Listener) context.Context { return baseCtx }

	g, gctx := errgroup.WithContext(ctx)

	r.log.Info().
		Str("event", "startup").
		Str("version", Version).
		Str("http_addr", httpLn.Addr().String()).
		Str("ssh_addr", listenerAddr(sshLn, r.ssh != nil)).
		Strs("middleware", r.middlewareIDs).
		Str("host_key_path", r.cfg.SSH.HostKeyPath).
		Dur("idle_timeout", r.cfg.SSH.IdleTimeout).
		Int("max_sessions", r.cfg.SSH.MaxSessions).
		Send()

	g.Go(func() error {
		if err := r.http.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serve http")
		}
		return nil
	})

	if r.ssh != nil && sshLn != nil {
		g.Go(func() error {
			if err := r.ssh.Serve(sshLn); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				return errors.Wrap(err, "serve ssh")
			}
			return nil
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				r.limiter.Prune(now, bucketIdle)
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		return r.shutdown(cancelRequests)
	})

	err := g.Wait()
	r.log.Info().Str("event", "shutdown").Err(err).Send()
	return err
}

func (r *Runtime) shutdown(cancelRequests context.CancelFunc) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	cancelRequests()

	var firstErr error
	if err := r.http.Shutdown(ctx); err != nil {
		firstErr = errors.Wrap(err, "shutdown http")
	}
	if r.ssh != nil {
		if err := r.ssh.Shutdown(ctx); err != nil && !errors.Is(err, ssh.ErrServerClosed) && firstErr == nil {
			firstErr = errors.Wrap(err, "shutdown ssh")
		}
	}
	return firstErr
}

func listenerAddr(ln net.Listener, enabled bool) string {
	if !enabled || ln == nil {
		return "disabled"
	}
	return ln.Addr().String()
}
