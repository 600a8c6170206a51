package dev

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/errors"
)

const tracerName = "github.com/vango-dev/signalshell/internal/dev"

// Proxy forwards requests under configured prefixes to backend origins.
// When several prefixes match, the longest wins.
type Proxy struct {
	routes       []*proxyRoute
	logger       *slog.Logger
	tracer       trace.Tracer
	metrics      *metrics
	reloadScript bool
}

type proxyRoute struct {
	rule     config.ProxyRule
	target   *url.URL
	rewrites []pathRewrite
	proxy    *httputil.ReverseProxy
}

type pathRewrite struct {
	re   *regexp.Regexp
	repl string
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithProxyLogger sets the logger. Default: slog.Default().
func WithProxyLogger(l *slog.Logger) ProxyOption {
	return func(p *Proxy) {
		p.logger = l
	}
}

// WithProxyTracerProvider sets the provider of forward spans. Default:
// the global provider.
func WithProxyTracerProvider(tp trace.TracerProvider) ProxyOption {
	return func(p *Proxy) {
		p.tracer = tp.Tracer(tracerName)
	}
}

// WithReloadScript makes the unreachable-backend page reload itself once
// the dev server sees a change.
func WithReloadScript(enabled bool) ProxyOption {
	return func(p *Proxy) {
		p.reloadScript = enabled
	}
}

func withMetrics(m *metrics) ProxyOption {
	return func(p *Proxy) {
		p.metrics = m
	}
}

// NewProxy compiles the proxy rules. Invalid rules fail with E121.
func NewProxy(rules []config.ProxyRule, opts ...ProxyOption) (*Proxy, error) {
	p := &Proxy{
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, rule := range rules {
		route, err := p.compile(rule)
		if err != nil {
			return nil, errors.New("E121").
				WithDetailf("proxy rule %q", rule.Prefix).
				Wrap(err)
		}
		p.routes = append(p.routes, route)
	}
	sort.SliceStable(p.routes, func(i, j int) bool {
		return len(p.routes[i].rule.Prefix) > len(p.routes[j].rule.Prefix)
	})
	return p, nil
}

func (p *Proxy) compile(rule config.ProxyRule) (*proxyRoute, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	target, err := url.Parse(rule.Target)
	if err != nil {
		return nil, err
	}

	route := &proxyRoute{rule: rule, target: target}

	patterns := make([]string, 0, len(rule.PathRewrite))
	for pattern := range rule.PathRewrite {
		patterns = append(patterns, pattern)
	}
	sort.Strings(patterns)
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		route.rewrites = append(route.rewrites, pathRewrite{re: re, repl: rule.PathRewrite[pattern]})
	}

	route.proxy = &httputil.ReverseProxy{
		Rewrite:      route.rewrite,
		ErrorHandler: p.unreachable(route),
	}
	return route, nil
}

// Match returns the rule whose prefix is the longest one path starts with.
func (p *Proxy) Match(path string) (config.ProxyRule, bool) {
	if r := p.match(path); r != nil {
		return r.rule, true
	}
	return config.ProxyRule{}, false
}

func (p *Proxy) match(path string) *proxyRoute {
	for _, r := range p.routes {
		if strings.HasPrefix(path, r.rule.Prefix) {
			return r
		}
	}
	return nil
}

// Len returns the number of rules.
func (p *Proxy) Len() int {
	return len(p.routes)
}

// ServeHTTP forwards r to the matching rule's target. Requests matching
// no rule get a 404.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := p.match(r.URL.Path)
	if route == nil {
		http.NotFound(w, r)
		return
	}

	ctx, span := p.tracer.Start(r.Context(), "proxy "+route.rule.Prefix,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("url.path", r.URL.Path),
			attribute.String("signalshell.proxy.prefix", route.rule.Prefix),
			attribute.String("signalshell.proxy.target", route.rule.Target),
		),
	)
	defer span.End()

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	start := time.Now()
	route.proxy.ServeHTTP(ww, r.WithContext(ctx))

	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}
	span.SetAttributes(attribute.Int("http.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	p.metrics.proxy(route.rule.Prefix, status, time.Since(start))
}

// rewrite prepares the outgoing request: rewritten path, target URL,
// forwarding headers and, with ChangeOrigin, the target's Host and Origin.
// Rewrites run on the escaped path so encoded separators such as %2F
// reach the target unchanged.
func (r *proxyRoute) rewrite(pr *httputil.ProxyRequest) {
	escaped := r.rewritePath(pr.In.URL.EscapedPath())
	path, err := url.PathUnescape(escaped)
	if err != nil {
		path = r.rewritePath(pr.In.URL.Path)
		escaped = ""
	}
	pr.Out.URL.Path = path
	pr.Out.URL.RawPath = escaped

	pr.SetURL(r.target)
	pr.SetXForwarded()

	if !r.rule.ChangeOrigin {
		pr.Out.Host = pr.In.Host
		return
	}
	if pr.Out.Header.Get("Origin") != "" {
		pr.Out.Header.Set("Origin", r.target.Scheme+"://"+r.target.Host)
	}
}

// rewritePath applies the rule's rewrites in pattern order.
func (r *proxyRoute) rewritePath(p string) string {
	for _, rw := range r.rewrites {
		p = rw.re.ReplaceAllString(p, rw.repl)
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func (p *Proxy) unreachable(route *proxyRoute) func(http.ResponseWriter, *http.Request, error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		trace.SpanFromContext(r.Context()).RecordError(err)
		p.logger.Warn("proxy target unreachable",
			"prefix", route.rule.Prefix,
			"target", route.rule.Target,
			"path", r.URL.Path,
			"error", err)

		script := ""
		if p.reloadScript {
			script = ReloadClientScript
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head><title>signalshell dev server</title></head>
<body style="font-family: system-ui; padding: 40px; background: #1a1a1a; color: #fff;">
<h1 style="color: #ff5555;">Backend Not Reachable</h1>
<p>%s %s could not be forwarded to <code>%s</code>.</p>
<p style="color: #888;">%s</p>
<p style="color: #888;">Start the backend or change dev.proxy in the project configuration.</p>
%s
</body>
</html>`, html.EscapeString(r.Method), html.EscapeString(r.URL.Path),
			html.EscapeString(route.rule.Target), html.EscapeString(err.Error()), script)
	}
}
