package dev

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/errors"
)

// MetricsPath serves the dev server's prometheus metrics.
const MetricsPath = "/_signalshell/metrics"

// Options configures the development server.
type Options struct {
	// Config is the project configuration.
	Config *config.Config

	// Root is the served directory. Default: the static directory, or the
	// build output in preview mode.
	Root string

	// Preview serves a finished build: no watcher and no reload client.
	Preview bool

	// Prerender renders routes into the entry document on history
	// fallback. Used only when dev.prerender is on.
	Prerender Prerenderer

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// AccessLog receives one line per request. Default: os.Stdout.
	AccessLog io.Writer

	// Registry collects metrics. Default: a fresh registry.
	Registry *prometheus.Registry

	// TracerProvider creates proxy spans. Default: the global provider.
	TracerProvider trace.TracerProvider
}

// Server is the development server.
type Server struct {
	config   *config.Config
	options  Options
	logger   *slog.Logger
	proxy    *Proxy
	static   *staticHandler
	hub      *ReloadHub
	watcher  *Watcher
	registry *prometheus.Registry
	handler  http.Handler

	mu      sync.Mutex
	running bool
}

// NewServer creates a development server. Proxy rules are compiled here,
// so an invalid rule fails before anything listens.
func NewServer(opts Options) (*Server, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.AccessLog == nil {
		opts.AccessLog = os.Stdout
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	if opts.Root == "" {
		opts.Root = cfg.StaticPath()
		if opts.Preview {
			opts.Root = cfg.OutputPath()
		}
	}

	s := &Server{
		config:   cfg,
		options:  opts,
		logger:   opts.Logger,
		registry: opts.Registry,
	}
	m := newMetrics(opts.Registry)

	hotReload := cfg.Dev.HotReload && !opts.Preview
	if hotReload {
		s.hub = NewReloadHub()
		s.hub.metrics = m
		s.watcher = NewWatcher(WatcherConfig{
			Paths:  cfg.WatchPaths(),
			Ignore: cfg.Dev.Ignore,
		})
		s.watcher.OnChange(s.handleChanges)
	}

	proxyOpts := []ProxyOption{
		WithProxyLogger(opts.Logger),
		WithReloadScript(hotReload),
		withMetrics(m),
	}
	if opts.TracerProvider != nil {
		proxyOpts = append(proxyOpts, WithProxyTracerProvider(opts.TracerProvider))
	}
	proxy, err := NewProxy(cfg.Dev.Proxy, proxyOpts...)
	if err != nil {
		return nil, err
	}
	s.proxy = proxy

	s.static = newStaticHandler(opts.Root, cfg.Static.Index)
	s.static.fallback = cfg.Dev.HistoryFallback
	s.static.reload = hotReload
	s.static.logger = opts.Logger
	s.static.metrics = m
	if cfg.Dev.Prerender && !opts.Preview {
		s.static.prerender = opts.Prerender
	}

	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.headers)

	if s.hub != nil {
		r.Get(ReloadPath, s.hub.ServeHTTP)
	}
	r.Handle(MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Handle("/*", http.HandlerFunc(s.dispatch))

	return handlers.LoggingHandler(s.options.AccessLog, r)
}

// dispatch sends proxied prefixes to the proxy and everything else to the
// static handler.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.proxy.Match(r.URL.Path); ok {
		s.proxy.ServeHTTP(w, r)
		return
	}
	s.static.ServeHTTP(w, r)
}

// headers sets the configured dev headers on every response.
func (s *Server) headers(next http.Handler) http.Handler {
	keys := make([]string, 0, len(s.config.Dev.Headers))
	for k := range s.config.Dev.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, k := range keys {
			w.Header().Set(k, s.config.Dev.Headers[k])
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Hub returns the reload hub, nil when hot reload is off.
func (s *Server) Hub() *ReloadHub {
	return s.hub
}

// Start listens on the configured address and serves until ctx is done.
// An occupied port fails with E130.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	addr := s.config.DevAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if stderrors.Is(err, syscall.EADDRINUSE) {
			return errors.New("E130").
				WithDetailf("%s is already in use", addr).
				WithSuggestion("Stop the other process or pass --port").
				Wrap(err)
		}
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.watcher != nil {
		go s.watcher.Run(ctx)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("dev server listening",
		"addr", ln.Addr().String(),
		"root", s.options.Root,
		"preview", s.options.Preview,
		"proxy_rules", s.proxy.Len(),
		"hot_reload", s.hub != nil)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	if s.hub != nil {
		s.hub.Close()
	}
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleChanges turns a watcher batch into a reload broadcast. A batch of
// stylesheets only refreshes styles.
func (s *Server) handleChanges(changes []Change) {
	cssOnly := true
	for _, c := range changes {
		s.logger.Debug("file changed", "path", c.Path, "type", c.Type.String())
		if c.Type != ChangeCSS {
			cssOnly = false
		}
	}

	var sent int
	if cssOnly {
		sent = s.hub.NotifyCSS(changes[0].Path)
	} else {
		sent = s.hub.NotifyReload()
	}
	s.logger.Info("reloaded browsers", "changes", len(changes), "css_only", cssOnly, "clients", sent)
}
