package shell

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vango-dev/signalshell/pkg/router"
	"github.com/vango-dev/signalshell/pkg/view"
)

type probe struct {
	mu     sync.Mutex
	events map[string][]string
}

func newProbe() *probe {
	return &probe{events: make(map[string][]string)}
}

func (p *probe) add(name, event string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[name] = append(p.events[name], event)
}

func (p *probe) of(name string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events[name]...)
}

type probeView struct {
	name string
	p    *probe
}

func (v *probeView) Render(w io.Writer) error {
	_, err := io.WriteString(w, "<p>"+v.name+"</p>")
	return err
}
func (v *probeView) Mount()      { v.p.add(v.name, "mount") }
func (v *probeView) Unmount()    { v.p.add(v.name, "unmount") }
func (v *probeView) Activate()   { v.p.add(v.name, "activate") }
func (v *probeView) Deactivate() { v.p.add(v.name, "deactivate") }

func probeFactory(p *probe, name string) view.Factory {
	return view.FactoryFunc(func() view.View { return &probeView{name: name, p: p} })
}

func probeRoutes(p *probe) []router.RouteEntry {
	return []router.RouteEntry{
		{Path: "/", Name: "Home", Component: probeFactory(p, "Home"), KeepAlive: true},
		{Path: "/upload", Name: "Upload", Component: probeFactory(p, "Upload"), KeepAlive: true},
		{Path: "/generator", Name: "Generator", Component: probeFactory(p, "Generator"), KeepAlive: true},
		{Path: "/analysis", Name: "Analysis", Component: probeFactory(p, "Analysis")},
	}
}

func bootstrap(t *testing.T, opts Options) (*App, *MemoryHost) {
	t.Helper()
	host := NewMemoryHost()
	opts.Host = host
	app, err := Bootstrap(context.Background(), opts)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app, host
}

func TestBootstrapMountsInitialPath(t *testing.T) {
	p := newProbe()
	app, host := bootstrap(t, Options{
		Routes: probeRoutes(p),
		Flags:  RuntimeFlags{HydrationMismatchDetails: true},
	})

	if host.Anchor() != DefaultAnchor {
		t.Errorf("Anchor = %q, want %q", host.Anchor(), DefaultAnchor)
	}
	if host.HTML() != "<p>Home</p>" {
		t.Errorf("HTML = %q, want <p>Home</p>", host.HTML())
	}
	if !host.Runtime().Flags().HydrationMismatchDetails {
		t.Error("runtime flags not passed to host")
	}
	state := app.Current()
	if state.State != router.Mounted || state.Route.Name != "Home" {
		t.Errorf("state = %v, want mounted Home", state.State)
	}
	if app.Active() == nil || app.Active().Route != "Home" {
		t.Error("Active() should be the Home instance")
	}
}

func TestBootstrapInitialPath(t *testing.T) {
	p := newProbe()
	_, host := bootstrap(t, Options{Routes: probeRoutes(p), InitialPath: "/generator"})
	if host.HTML() != "<p>Generator</p>" {
		t.Errorf("HTML = %q, want <p>Generator</p>", host.HTML())
	}
}

func TestBootstrapInvalidTableFailsBeforeMount(t *testing.T) {
	p := newProbe()
	routes := append(probeRoutes(p), router.RouteEntry{Path: "/other", Name: "Home", Component: probeFactory(p, "x")})
	host := NewMemoryHost()

	_, err := Bootstrap(context.Background(), Options{Routes: routes, Host: host})
	if !errors.Is(err, router.ErrDuplicateName) {
		t.Fatalf("error = %v, want ErrDuplicateName", err)
	}
	if host.Runtime() != nil || host.Mounts() != 0 {
		t.Error("host should not be attached or mounted")
	}

	if _, err := Bootstrap(context.Background(), Options{}); !errors.Is(err, ErrNoRoutes) {
		t.Errorf("empty options error = %v, want ErrNoRoutes", err)
	}
}

func TestBootstrapInvalidAnchor(t *testing.T) {
	p := newProbe()
	_, err := Bootstrap(context.Background(), Options{Routes: probeRoutes(p), Anchor: "app"})
	if !errors.Is(err, ErrInvalidAnchor) {
		t.Errorf("error = %v, want ErrInvalidAnchor", err)
	}
}

func TestKeepAliveRetainsInstance(t *testing.T) {
	p := newProbe()
	app, _ := bootstrap(t, Options{Routes: probeRoutes(p)})
	ctx := context.Background()

	app.Navigate(ctx, "/upload")
	upload := app.Active()
	app.Navigate(ctx, "/analysis")
	app.Navigate(ctx, "/upload")

	if app.Active() != upload {
		t.Error("returning to a keep-alive route should restore the same instance")
	}
	if want := []string{"mount", "activate", "deactivate", "activate"}; !reflect.DeepEqual(p.of("Upload"), want) {
		t.Errorf("Upload events = %v, want %v", p.of("Upload"), want)
	}
	if want := []string{"mount", "activate", "deactivate", "unmount"}; !reflect.DeepEqual(p.of("Analysis"), want) {
		t.Errorf("Analysis events = %v, want %v", p.of("Analysis"), want)
	}
	if want := []string{"Upload", "Home"}; !reflect.DeepEqual(app.Retained(), want) {
		t.Errorf("Retained() = %v, want %v", app.Retained(), want)
	}
}

func TestNonKeepAliveRebuilt(t *testing.T) {
	p := newProbe()
	app, _ := bootstrap(t, Options{Routes: probeRoutes(p), InitialPath: "/analysis"})
	ctx := context.Background()

	first := app.Active().ID
	app.Navigate(ctx, "/")
	app.Navigate(ctx, "/analysis")

	if app.Active().ID == first {
		t.Error("non keep-alive route should be reconstructed")
	}
}

func TestKeepAliveEviction(t *testing.T) {
	p := newProbe()
	reg := prometheus.NewRegistry()
	app, _ := bootstrap(t, Options{Routes: probeRoutes(p), KeepAliveCapacity: 2, Registerer: reg})
	ctx := context.Background()

	app.Navigate(ctx, "/upload")
	app.Navigate(ctx, "/generator")

	if want := []string{"Generator", "Upload"}; !reflect.DeepEqual(app.Retained(), want) {
		t.Errorf("Retained() = %v, want %v", app.Retained(), want)
	}
	if events := p.of("Home"); events[len(events)-1] != "unmount" {
		t.Errorf("evicted Home events = %v, want trailing unmount", events)
	}
	if got := testutil.ToFloat64(app.metrics.evictions); got != 1 {
		t.Errorf("evictions = %v, want 1", got)
	}
	if got := testutil.ToFloat64(app.metrics.retained); got != 2 {
		t.Errorf("retained gauge = %v, want 2", got)
	}
}

func TestNotFoundPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("default view", func(t *testing.T) {
		p := newProbe()
		app, host := bootstrap(t, Options{Routes: probeRoutes(p)})

		state, err := app.Navigate(ctx, "/nope")
		if err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		if state.State != router.NotFoundMounted {
			t.Errorf("state = %v, want not-found", state.State)
		}
		if !strings.Contains(host.HTML(), "Page not found") {
			t.Errorf("HTML = %q, want not-found markup", host.HTML())
		}
		if want := []string{"mount", "activate", "deactivate"}; !reflect.DeepEqual(p.of("Home"), want) {
			t.Errorf("Home events = %v, want %v", p.of("Home"), want)
		}
	})

	t.Run("blank", func(t *testing.T) {
		p := newProbe()
		app, host := bootstrap(t, Options{
			Routes:        probeRoutes(p),
			RouterOptions: []router.Option{router.WithNotFound(router.NotFoundBlank())},
		})

		if _, err := app.Navigate(ctx, "/nope"); err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		if host.HTML() != "" || app.Active() != nil {
			t.Errorf("blank policy should clear the anchor, got %q", host.HTML())
		}
	})

	t.Run("redirect", func(t *testing.T) {
		p := newProbe()
		app, host := bootstrap(t, Options{
			Routes:        probeRoutes(p),
			InitialPath:   "/upload",
			RouterOptions: []router.Option{router.WithNotFound(router.NotFoundRedirect("/"))},
		})

		state, err := app.Navigate(ctx, "/nope")
		if err != nil {
			t.Fatalf("Navigate: %v", err)
		}
		if state.Path != "/" || host.HTML() != "<p>Home</p>" {
			t.Errorf("path %q html %q, want / and Home", state.Path, host.HTML())
		}
	})
}

func TestTransitionMetrics(t *testing.T) {
	p := newProbe()
	reg := prometheus.NewRegistry()
	app, _ := bootstrap(t, Options{Routes: probeRoutes(p), Registerer: reg})
	ctx := context.Background()

	app.Navigate(ctx, "/upload")
	app.Back(ctx)
	app.Navigate(ctx, "/missing")

	tests := []struct {
		kind, outcome string
		want          float64
	}{
		{"push", "mounted", 2},
		{"pop", "restored", 1},
		{"push", "not_found", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(app.metrics.transitions.WithLabelValues(tt.kind, tt.outcome))
		if got != tt.want {
			t.Errorf("transitions{%s,%s} = %v, want %v", tt.kind, tt.outcome, got, tt.want)
		}
	}
}

func TestCloseDestroysEverything(t *testing.T) {
	p := newProbe()
	host := NewMemoryHost()
	app, err := Bootstrap(context.Background(), Options{Routes: probeRoutes(p), Host: host})
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	ctx := context.Background()
	app.Navigate(ctx, "/upload")
	app.Navigate(ctx, "/analysis")

	if err := app.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := app.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	for _, name := range []string{"Home", "Upload", "Analysis"} {
		events := p.of(name)
		if events[len(events)-1] != "unmount" {
			t.Errorf("%s events = %v, want trailing unmount", name, events)
		}
	}
	if host.HTML() != "" {
		t.Errorf("HTML after Close = %q, want empty", host.HTML())
	}
	if _, err := app.Navigate(ctx, "/"); !errors.Is(err, router.ErrStopped) {
		t.Errorf("Navigate after Close error = %v, want ErrStopped", err)
	}
}
