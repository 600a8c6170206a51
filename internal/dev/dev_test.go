package dev

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/errors"
	"github.com/vango-dev/signalshell/pkg/router"
	"github.com/vango-dev/signalshell/pkg/view"
)

const entryDocument = `<!DOCTYPE html>
<html>
<head><title>Signals</title></head>
<body><div id="app"></div></body>
</html>`

// echoBackend reports the path, Host and Origin it received.
func echoBackend(t *testing.T, name string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, name+" "+r.URL.RequestURI()+" host="+r.Host+" origin="+r.Header.Get("Origin"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newProject(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	public := filepath.Join(dir, "public")
	if err := os.MkdirAll(public, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, content := range map[string]string{
		"index.html": entryDocument,
		"main.js":    "console.log('signals')",
		"about.html": "<html><body><p>about</p></body></html>",
	} {
		if err := os.WriteFile(filepath.Join(public, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg, err := config.LoadProject(dir, "development", config.Development)
	if err != nil {
		t.Fatalf("LoadProject: %v", err)
	}
	cfg.Dev.Proxy = nil
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, opts Options) *Server {
	t.Helper()
	opts.Config = cfg
	opts.AccessLog = io.Discard
	srv, err := NewServer(opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func get(t *testing.T, h http.Handler, method, target, accept string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestProxyRewritesAndChangesOrigin(t *testing.T) {
	api := echoBackend(t, "api")
	v2 := echoBackend(t, "v2")

	cfg := newProject(t)
	cfg.Dev.Proxy = []config.ProxyRule{
		{Prefix: "/api", Target: api.URL, ChangeOrigin: true, PathRewrite: map[string]string{"^/api": ""}},
		{Prefix: "/api/v2", Target: v2.URL, PathRewrite: map[string]string{"^/api/v2": "/next"}},
	}
	srv := newTestServer(t, cfg, Options{})

	apiHost := strings.TrimPrefix(api.URL, "http://")
	tests := []struct {
		name   string
		target string
		origin string
		want   string
	}{
		{"prefix stripped", "/api/signals?n=3", "http://localhost:8080", "api /signals?n=3 host=" + apiHost + " origin=" + api.URL},
		{"bare prefix", "/api", "", "api / host=" + apiHost + " origin="},
		{"longest prefix wins", "/api/v2/fft", "http://localhost:8080", "v2 /next/fft host=localhost:8080 origin=http://localhost:8080"},
		{"encoded slash kept", "/api/files/a%2Fb.csv", "", "api /files/a%2Fb.csv host=" + apiHost + " origin="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.Host = "localhost:8080"
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %q", rec.Code, rec.Body.String())
			}
			if got := rec.Body.String(); got != tt.want {
				t.Errorf("backend saw %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProxyMatch(t *testing.T) {
	p, err := NewProxy([]config.ProxyRule{
		{Prefix: "/api", Target: "http://127.0.0.1:5000"},
		{Prefix: "/api/uploads", Target: "http://127.0.0.1:5001"},
	})
	if err != nil {
		t.Fatalf("NewProxy: %v", err)
	}

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/api/fft", "/api", true},
		{"/api/uploads/1", "/api/uploads", true},
		{"/upload", "", false},
	}
	for _, tt := range tests {
		rule, ok := p.Match(tt.path)
		if ok != tt.ok || rule.Prefix != tt.want {
			t.Errorf("Match(%q) = %q, %v; want %q, %v", tt.path, rule.Prefix, ok, tt.want, tt.ok)
		}
	}

	_, err = NewProxy([]config.ProxyRule{{Prefix: "/api", Target: "http://x", PathRewrite: map[string]string{"(": ""}}})
	var se *errors.ShellError
	if !stderrors.As(err, &se) || se.Code != "E121" {
		t.Errorf("NewProxy(bad rewrite) error = %v, want E121", err)
	}
}

func TestProxyUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	cfg := newProject(t)
	cfg.Dev.Proxy = []config.ProxyRule{{Prefix: "/api", Target: deadURL}}
	srv := newTestServer(t, cfg, Options{})

	rec := get(t, srv.Handler(), http.MethodGet, "/api/fft", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Backend Not Reachable") || !strings.Contains(body, ReloadPath) {
		t.Errorf("error page = %q", body)
	}

	metrics := get(t, srv.Handler(), http.MethodGet, MetricsPath, "").Body.String()
	if !strings.Contains(metrics, `signalshell_dev_proxy_requests_total{code="502",prefix="/api"} 1`) {
		t.Errorf("metrics missing 502 count:\n%s", metrics)
	}
}

func TestStaticAndHistoryFallback(t *testing.T) {
	cfg := newProject(t)
	srv := newTestServer(t, cfg, Options{})
	h := srv.Handler()

	tests := []struct {
		name     string
		method   string
		target   string
		accept   string
		wantCode int
		wantBody string
	}{
		{"root document", http.MethodGet, "/", "", http.StatusOK, `<div id="app">`},
		{"asset", http.MethodGet, "/main.js", "*/*", http.StatusOK, "console.log"},
		{"client route", http.MethodGet, "/upload", "text/html,application/xhtml+xml", http.StatusOK, `<div id="app">`},
		{"nested client route", http.MethodGet, "/analysis/run", "text/html", http.StatusOK, `<div id="app">`},
		{"head client route", http.MethodHead, "/generator", "text/html", http.StatusOK, ""},
		{"no html accept", http.MethodGet, "/upload", "application/json", http.StatusNotFound, ""},
		{"dotted segment", http.MethodGet, "/missing.js", "text/html", http.StatusNotFound, ""},
		{"post", http.MethodPost, "/upload", "text/html", http.StatusNotFound, ""},
		{"html file gets reload client", http.MethodGet, "/about.html", "text/html", http.StatusOK, ReloadPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, h, tt.method, tt.target, tt.accept)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q", got)
			}
			if tt.wantBody != "" && !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tt.wantBody)
			}
		})
	}

	doc := get(t, h, http.MethodGet, "/upload", "text/html").Body.String()
	if !strings.Contains(doc, ReloadPath) {
		t.Error("entry document should carry the reload client")
	}
}

func TestHistoryFallbackDisabled(t *testing.T) {
	cfg := newProject(t)
	cfg.Dev.HistoryFallback = false
	srv := newTestServer(t, cfg, Options{})

	if rec := get(t, srv.Handler(), http.MethodGet, "/upload", "text/html"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCustomHeaders(t *testing.T) {
	cfg := newProject(t)
	cfg.Dev.Headers = map[string]string{"X-Frame-Options": "DENY"}
	srv := newTestServer(t, cfg, Options{})

	rec := get(t, srv.Handler(), http.MethodGet, "/main.js", "")
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Errorf("headers = %v", rec.Header())
	}
}

type pageView struct{ name string }

func (v pageView) Render(w io.Writer) error {
	_, err := io.WriteString(w, "<h1>"+v.name+"</h1>")
	return err
}

func page(name string) view.Factory {
	return view.FactoryFunc(func() view.View { return pageView{name: name} })
}

func TestPrerender(t *testing.T) {
	table := router.MustTable(
		router.RouteEntry{Path: "/", Name: "Home", Component: page("Home"), KeepAlive: true},
		router.RouteEntry{Path: "/upload", Name: "Upload", Component: page("Upload"), KeepAlive: true},
	)

	cfg := newProject(t)
	cfg.Dev.Prerender = true
	srv := newTestServer(t, cfg, Options{Prerender: &ShellPrerenderer{Table: table}})

	body := get(t, srv.Handler(), http.MethodGet, "/upload", "text/html").Body.String()
	if !strings.Contains(body, `<div id="app" data-route="Upload"><h1>Upload</h1></div>`) {
		t.Errorf("document not prerendered:\n%s", body)
	}
	if !strings.Contains(body, "__SIGNALSHELL_FLAGS__") {
		t.Error("prerendered document should define the runtime flags")
	}

	body = get(t, srv.Handler(), http.MethodGet, "/missing", "text/html").Body.String()
	if !strings.Contains(body, "Page not found") {
		t.Errorf("unmatched route should prerender the not-found view:\n%s", body)
	}
}

func TestPreviewServesOutput(t *testing.T) {
	cfg := newProject(t)
	out := cfg.OutputPath()
	if err := os.MkdirAll(out, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out, "index.html"), []byte("<html><body>built</body></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := newTestServer(t, cfg, Options{Preview: true})
	if srv.Hub() != nil {
		t.Error("preview should not start the reload hub")
	}

	body := get(t, srv.Handler(), http.MethodGet, "/upload", "text/html").Body.String()
	if !strings.Contains(body, "built") || strings.Contains(body, ReloadPath) {
		t.Errorf("preview body = %q", body)
	}
}

func TestIsHistoryRequest(t *testing.T) {
	tests := []struct {
		method string
		target string
		accept string
		want   bool
	}{
		{http.MethodGet, "/upload", "text/html", true},
		{http.MethodHead, "/upload", "text/html", true},
		{http.MethodGet, "/v1.2/upload", "text/html", true},
		{http.MethodGet, "/upload/file.csv", "text/html", false},
		{http.MethodGet, "/upload", "", false},
		{http.MethodDelete, "/upload", "text/html", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.target, nil)
		if tt.accept != "" {
			req.Header.Set("Accept", tt.accept)
		}
		if got := IsHistoryRequest(req); got != tt.want {
			t.Errorf("IsHistoryRequest(%s %s, %q) = %v, want %v", tt.method, tt.target, tt.accept, got, tt.want)
		}
	}
}

func TestInjectReloadScript(t *testing.T) {
	tests := []struct {
		doc    string
		before string
	}{
		{"<html><body><p>x</p></body></html>", "</body>"},
		{"<html><p>x</p></html>", "</html>"},
		{"<p>x</p>", ""},
	}
	for _, tt := range tests {
		out := string(InjectReloadScript([]byte(tt.doc)))
		idx := strings.Index(out, ReloadClientScript)
		if idx == -1 {
			t.Fatalf("script missing from %q", out)
		}
		if tt.before != "" && !strings.HasPrefix(out[idx+len(ReloadClientScript):], tt.before) {
			t.Errorf("script should precede %s: %q", tt.before, out)
		}
		if tt.before == "" && !strings.HasSuffix(out, ReloadClientScript) {
			t.Errorf("script should be appended: %q", out)
		}
	}
}

func TestReloadHubBroadcast(t *testing.T) {
	hub := NewReloadHub()
	ts := httptest.NewServer(hub)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if n := hub.NotifyCSS("/styles.css"); n != 1 {
		t.Fatalf("NotifyCSS reached %d clients, want 1", n)
	}
	var msg ReloadMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != ReloadTypeCSS || msg.File != "/styles.css" {
		t.Errorf("message = %+v", msg)
	}

	hub.Close()
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d after Close", hub.ClientCount())
	}
}

func TestWatcherPoll(t *testing.T) {
	dir := t.TempDir()
	css := filepath.Join(dir, "styles.css")
	if err := os.WriteFile(css, []byte("body{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(WatcherConfig{Paths: []string{dir}})
	if changes := w.poll(); changes != nil {
		t.Fatalf("initial poll = %v, want snapshot only", changes)
	}

	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(css, later, later); err != nil {
		t.Fatal(err)
	}
	page := filepath.Join(dir, "index.html")
	if err := os.WriteFile(page, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	changes := w.poll()
	if len(changes) != 2 {
		t.Fatalf("changes = %v, want 2", changes)
	}
	if changes[0].Path != page || changes[0].Type != ChangeDocument {
		t.Errorf("changes[0] = %+v", changes[0])
	}
	if changes[1].Path != css || changes[1].Type != ChangeCSS {
		t.Errorf("changes[1] = %+v", changes[1])
	}

	if err := os.Remove(page); err != nil {
		t.Fatal(err)
	}
	if changes := w.poll(); len(changes) != 1 || changes[0].Path != page {
		t.Errorf("after remove = %v", changes)
	}
	if changes := w.poll(); len(changes) != 0 {
		t.Errorf("quiet poll = %v", changes)
	}
}

func TestWatcherRunReportsBatches(t *testing.T) {
	dir := t.TempDir()
	w := NewWatcher(WatcherConfig{Paths: []string{dir}, Interval: 20 * time.Millisecond})

	batches := make(chan []Change, 4)
	w.OnChange(func(c []Change) { batches <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(dir, "logo.svg"), []byte("<svg/>"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case batch := <-batches:
		if len(batch) != 1 || batch[0].Type != ChangeAsset {
			t.Errorf("batch = %v", batch)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for change")
	}
}

func TestWatcherIgnore(t *testing.T) {
	root := filepath.FromSlash("/project/public")
	w := NewWatcher(WatcherConfig{Ignore: []string{"*.map", "vendor/generated"}})

	tests := []struct {
		path string
		want bool
	}{
		{"app.js", false},
		{"app.js.map", true},
		{"node_modules/lib/index.js", true},
		{".git", true},
		{"styles.css.swp", true},
		{"vendor/generated", true},
		{"lib/vendor/generated", true},
		{"vendor/handwritten.js", false},
		{"attempt.js", false},
	}
	for _, tt := range tests {
		p := filepath.Join(root, filepath.FromSlash(tt.path))
		if got := w.ignored(root, p); got != tt.want {
			t.Errorf("ignored(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestClassifyChange(t *testing.T) {
	tests := []struct {
		path string
		want ChangeType
	}{
		{"styles.css", ChangeCSS},
		{"index.html", ChangeDocument},
		{"INDEX.HTM", ChangeDocument},
		{"main.js", ChangeAsset},
		{"logo.png", ChangeAsset},
	}
	for _, tt := range tests {
		if got := classifyChange(tt.path); got != tt.want {
			t.Errorf("classifyChange(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestStartPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	cfg := newProject(t)
	cfg.Dev.Host = "127.0.0.1"
	cfg.Dev.Port = ln.Addr().(*net.TCPAddr).Port
	srv := newTestServer(t, cfg, Options{})

	err = srv.Start(context.Background())
	var se *errors.ShellError
	if !stderrors.As(err, &se) || se.Code != "E130" {
		t.Errorf("Start() error = %v, want E130", err)
	}
}

func TestServeShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	srv := newTestServer(t, newProject(t), Options{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/main.js")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
