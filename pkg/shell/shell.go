// Package shell bootstraps the application: it builds the view runtime,
// installs exactly one router and mounts the resolved view at a single
// anchor.
//
// Bootstrap is the only entry point:
//
//	app, err := shell.Bootstrap(ctx, shell.Options{
//	    Table: routes.Table(routes.Generation2),
//	    Host:  shell.NewMemoryHost(),
//	})
//	if err != nil {
//	    return err
//	}
//	defer app.Close()
//
//	app.Navigate(ctx, "/upload")
//
// Routes marked KeepAlive keep their view instance when the user navigates
// away; returning to the route re-activates the same instance. Other
// routes are destroyed on leave and rebuilt on return.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/signalshell/pkg/router"
	"github.com/vango-dev/signalshell/pkg/view"
)

// DefaultAnchor is the element the shell mounts into.
const DefaultAnchor = "#app"

// notFoundRoute names instances created for unmatched paths.
const notFoundRoute = "NotFound"

// ErrNoRoutes is returned when Options has neither a table nor entries.
var ErrNoRoutes = errors.New("shell: no route table")

// Options configures Bootstrap.
type Options struct {
	// Table is the route table. When nil, Routes is validated into one.
	Table *router.Table

	// Routes are used when Table is nil.
	Routes []router.RouteEntry

	// Host renders views. Default: a MemoryHost.
	Host Host

	// Anchor is the id selector of the mount element. Default: "#app".
	Anchor string

	// InitialPath is mounted during bootstrap. Default: "/".
	InitialPath string

	// Flags are fixed for the lifetime of the runtime.
	Flags RuntimeFlags

	// KeepAliveCapacity bounds retained views. 0 selects
	// view.DefaultCapacity; negative disables eviction.
	KeepAliveCapacity int

	// RouterOptions are passed to the router. A listener set here is
	// replaced by the App.
	RouterOptions []router.Option

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Registerer receives shell metrics. Nil disables metrics.
	Registerer prometheus.Registerer
}

// App is a bootstrapped application.
type App struct {
	runtime *Runtime
	router  *router.Router
	host    Host
	cache   *view.Cache
	logger  *slog.Logger
	metrics *metrics

	// Touched only from the router loop.
	active     *view.Instance
	activeKeep bool

	mu        sync.RWMutex
	shown     *view.Instance
	closeOnce sync.Once
}

// Bootstrap validates the route table, constructs the runtime, attaches
// the host, starts the router and mounts opts.InitialPath. A table error
// is returned before anything is attached or mounted.
func Bootstrap(ctx context.Context, opts Options) (*App, error) {
	table := opts.Table
	if table == nil {
		if len(opts.Routes) == 0 {
			return nil, ErrNoRoutes
		}
		var err error
		table, err = router.NewTable(opts.Routes...)
		if err != nil {
			return nil, err
		}
	}

	if opts.Host == nil {
		opts.Host = NewMemoryHost()
	}
	if opts.Anchor == "" {
		opts.Anchor = DefaultAnchor
	}
	if opts.InitialPath == "" {
		opts.InitialPath = "/"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	app := &App{
		runtime: newRuntime(opts.Flags),
		host:    opts.Host,
		logger:  opts.Logger,
		metrics: newMetrics(opts.Registerer),
	}
	app.cache = view.NewCache(opts.KeepAliveCapacity, view.WithEvictHook(app.onEvict))

	if err := app.host.Attach(app.runtime, opts.Anchor); err != nil {
		return nil, fmt.Errorf("attach %s: %w", opts.Anchor, err)
	}

	routerOpts := append([]router.Option{router.WithLogger(opts.Logger)}, opts.RouterOptions...)
	routerOpts = append(routerOpts, router.WithListener(router.ListenerFunc(app.transition)))
	app.router = router.New(table, routerOpts...)

	if err := app.router.Start(ctx); err != nil {
		return nil, err
	}
	if _, err := app.router.Navigate(ctx, opts.InitialPath); err != nil {
		app.Close()
		return nil, fmt.Errorf("mount %s: %w", opts.InitialPath, err)
	}

	app.logger.Debug("shell bootstrapped",
		"anchor", opts.Anchor,
		"routes", table.Len(),
		"hydration_mismatch_details", opts.Flags.HydrationMismatchDetails)
	return app, nil
}

// Navigate pushes path (or replaces with router.WithReplace()).
func (a *App) Navigate(ctx context.Context, path string, opts ...router.NavigateOption) (router.NavigationState, error) {
	return a.router.Navigate(ctx, path, opts...)
}

// Back moves one entry back in history.
func (a *App) Back(ctx context.Context) (router.NavigationState, error) {
	return a.router.Back(ctx)
}

// Forward moves one entry forward in history.
func (a *App) Forward(ctx context.Context) (router.NavigationState, error) {
	return a.router.Forward(ctx)
}

// Current returns the router's navigation state.
func (a *App) Current() router.NavigationState {
	return a.router.Current()
}

// Active returns the instance currently shown, or nil when blank.
func (a *App) Active() *view.Instance {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.shown
}

// Retained returns the names of routes with a retained instance, most
// recently used first.
func (a *App) Retained() []string {
	return a.cache.Routes()
}

// Runtime returns the app's runtime.
func (a *App) Runtime() *Runtime {
	return a.runtime
}

// Router returns the app's router.
func (a *App) Router() *router.Router {
	return a.router
}

// Close stops the router and destroys every live instance. It is safe to
// call more than once.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.router.Stop()

		if a.active != nil && !a.activeKeep {
			a.active.Destroy()
		}
		a.active = nil
		a.cache.Purge()
		a.metrics.setRetained(0)

		a.mu.Lock()
		a.shown = nil
		a.mu.Unlock()

		err = a.host.Clear()
	})
	return err
}

// transition runs on the router loop for every navigation about to be
// committed.
func (a *App) transition(ctx context.Context, t router.Transition) error {
	outcome := "mounted"
	if t.To.State == router.NotFoundMounted {
		outcome = "not_found"
	}

	if t.Factory == nil {
		if err := a.host.Clear(); err != nil {
			return err
		}
		a.leave(nil)
		a.show(nil, false)
		a.metrics.transition(t.Kind.String(), "blank")
		return nil
	}

	name := notFoundRoute
	keep := false
	if t.To.Route != nil {
		name = t.To.Route.Name
		keep = t.To.Route.KeepAlive
	}

	var next *view.Instance
	fresh := true
	if keep {
		if inst, ok := a.cache.Get(name); ok {
			next, fresh = inst, false
			outcome = "restored"
		}
	}
	if next == nil {
		next = view.NewInstance(name, t.Factory)
	}

	next.Activate()
	if err := a.host.Mount(next); err != nil {
		if fresh {
			next.Destroy()
		} else if next != a.active {
			next.Deactivate()
		}
		return fmt.Errorf("mount %s: %w", name, err)
	}

	a.leave(next)
	if keep && fresh {
		a.cache.Put(next)
	}
	a.show(next, keep)

	a.metrics.transition(t.Kind.String(), outcome)
	a.metrics.setRetained(a.cache.Len())
	a.logger.Debug("view mounted", "route", name, "instance", next.ID, "restored", !fresh)
	return nil
}

// leave deactivates the outgoing instance, destroying it unless retained.
func (a *App) leave(next *view.Instance) {
	prev := a.active
	if prev == nil || prev == next {
		return
	}
	if a.activeKeep {
		prev.Deactivate()
		return
	}
	prev.Destroy()
}

func (a *App) show(inst *view.Instance, keep bool) {
	a.active = inst
	a.activeKeep = keep

	a.mu.Lock()
	a.shown = inst
	a.mu.Unlock()
}

func (a *App) onEvict(inst *view.Instance) {
	a.metrics.evicted()
	a.logger.Debug("view evicted", "route", inst.Route, "instance", inst.ID)
}
