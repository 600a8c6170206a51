package router

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/signalshell/pkg/view"
)

// NotFoundMode selects what the router does with unmatched paths.
type NotFoundMode int

const (
	// NotFoundShowView mounts a dedicated not-found view and keeps the URL.
	NotFoundShowView NotFoundMode = iota
	// NotFoundRedirectTo navigates to a fallback path instead. The
	// unmatched path never enters history.
	NotFoundRedirectTo
	// NotFoundShowBlank mounts nothing and keeps the URL.
	NotFoundShowBlank
)

// NotFoundPolicy is the router's handling of unmatched paths.
type NotFoundPolicy struct {
	Mode    NotFoundMode
	Factory view.Factory
	Target  string
}

// NotFoundView mounts f for unmatched paths. A nil factory selects a
// minimal built-in view.
func NotFoundView(f view.Factory) NotFoundPolicy {
	if f == nil {
		f = view.FactoryFunc(func() view.View { return defaultNotFound{} })
	}
	return NotFoundPolicy{Mode: NotFoundShowView, Factory: f}
}

// NotFoundRedirect sends unmatched paths to target ("/" when empty). If
// the target does not match either, the router falls back to blank.
func NotFoundRedirect(target string) NotFoundPolicy {
	if target == "" {
		target = "/"
	}
	return NotFoundPolicy{Mode: NotFoundRedirectTo, Target: target}
}

// NotFoundBlank leaves the anchor empty for unmatched paths.
func NotFoundBlank() NotFoundPolicy {
	return NotFoundPolicy{Mode: NotFoundShowBlank}
}

type defaultNotFound struct{}

func (defaultNotFound) Render(w io.Writer) error {
	_, err := io.WriteString(w, `<section class="not-found"><h1>Page not found</h1></section>`)
	return err
}

// Option configures a Router.
type Option func(*Router)

// WithListener sets the listener notified of every transition.
func WithListener(l Listener) Option {
	return func(r *Router) {
		r.listener = l
	}
}

// WithNotFound sets the unmatched-path policy. Default: NotFoundView(nil).
func WithNotFound(p NotFoundPolicy) Option {
	return func(r *Router) {
		r.notFound = p
	}
}

// WithHistory sets the history implementation. Default: MemoryHistory.
func WithHistory(h History) Option {
	return func(r *Router) {
		r.history = h
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// WithTracerProvider sets the tracer provider used for navigation spans.
// Default: the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(r *Router) {
		r.tracer = tp.Tracer(tracerName)
	}
}

// NavigateOption configures a single navigation.
type NavigateOption func(*navigateOptions)

type navigateOptions struct {
	replace bool
}

// WithReplace replaces the current history entry instead of pushing.
func WithReplace() NavigateOption {
	return func(o *navigateOptions) {
		o.replace = true
	}
}
