package main

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/signalshell/internal/build"
	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/errors"
)

const entryDocument = `<!DOCTYPE html>
<html>
<head><script type="module" src="/main.js"></script></head>
<body><div id="app"></div></body>
</html>`

// newProject creates a project in a temporary directory and makes it the
// working directory for the rest of the test.
func newProject(t *testing.T, configJSON string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"signalshell.json":  configJSON,
		"public/index.html": entryDocument,
		"public/main.js":    "console.log('signals')",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv(config.EnvMode, "")
	return dir
}

// run executes the CLI with args and returns what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevErr := stdout, stderr
	stdout, stderr = &buf, &buf
	t.Cleanup(func() { stdout, stderr = prevOut, prevErr })

	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func code(err error) string {
	var se *errors.ShellError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, "version", "--short")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version --short = %q, want %q", out, version)
	}
}

func TestRoutesCommand(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		wantRoutes []string
		absent     string
	}{
		{
			name:       "configured generation",
			args:       []string{"routes"},
			wantRoutes: []string{"/", "/upload", "/generator", "/analysis", "/dimenreduct"},
		},
		{
			name:       "generation flag",
			args:       []string{"routes", "--generation", "1"},
			wantRoutes: []string{"/upload", "/analysis"},
			absent:     "/dimenreduct",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newProject(t, `{"name": "signals"}`)
			out, err := run(t, tt.args...)
			if err != nil {
				t.Fatalf("routes: %v", err)
			}
			for _, route := range tt.wantRoutes {
				if !strings.Contains(out, "  "+route+" ") {
					t.Errorf("output missing %s:\n%s", route, out)
				}
			}
			if tt.absent != "" && strings.Contains(out, tt.absent) {
				t.Errorf("output should not list %s:\n%s", tt.absent, out)
			}
		})
	}
}

func TestRoutesUnknownGeneration(t *testing.T) {
	newProject(t, `{"name": "signals"}`)
	_, err := run(t, "routes", "--generation", "7")
	if code(err) != "E105" {
		t.Errorf("routes --generation 7 error = %v, want E105", err)
	}
}

func TestBuildCommand(t *testing.T) {
	dir := newProject(t, `{"name": "signals"}`)

	out, err := run(t, "build", "--output", "out")
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Build complete") {
		t.Errorf("build output:\n%s", out)
	}
	for _, name := range []string{"index.html", build.ManifestFile} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
}

func TestBuildInvalidMode(t *testing.T) {
	newProject(t, `{"name": "signals"}`)
	if _, err := run(t, "build", "--mode", "staging"); code(err) != "E123" {
		t.Errorf("build --mode staging error = %v, want E123", err)
	}
}

func TestPreviewRequiresBuild(t *testing.T) {
	newProject(t, `{"name": "signals"}`)
	if _, err := run(t, "preview"); code(err) != "E143" {
		t.Errorf("preview error = %v, want E143", err)
	}
}

func TestPreviewIgnoresModeVariable(t *testing.T) {
	newProject(t, `{"name": "signals"}`)
	t.Setenv(config.EnvMode, string(config.Development))

	cfg, err := loadPreviewProject()
	if err != nil {
		t.Fatalf("loadPreviewProject: %v", err)
	}
	if cfg.Mode != config.Preview {
		t.Errorf("Mode = %q, want %q", cfg.Mode, config.Preview)
	}
}

func TestPublishRequiresBucket(t *testing.T) {
	newProject(t, `{"name": "signals"}`)
	if _, err := run(t, "build"); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := run(t, "publish", "--dry-run"); code(err) != "E152" {
		t.Errorf("publish without bucket error = %v, want E152", err)
	}
}

func TestPublishDryRun(t *testing.T) {
	newProject(t, `{"name": "signals", "publish": {"bucket": "signals-web"}}`)
	if _, err := run(t, "build"); err != nil {
		t.Fatalf("build: %v", err)
	}
	out, err := run(t, "publish", "--dry-run", "--prefix", "staging")
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !strings.Contains(out, "s3://signals-web/staging") || !strings.Contains(out, "Dry run: 3 objects") {
		t.Errorf("publish output:\n%s", out)
	}
}

func TestNewPrerenderer(t *testing.T) {
	tests := []struct {
		name     string
		notFound string
		path     string
		want     string
	}{
		{"matched route", "view", "/upload", `data-route="Upload"`},
		{"not-found view", "view", "/missing", "Page not found"},
		{"not-found redirect", "redirect", "/missing", `data-route="Upload"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New()
			cfg.Routes.NotFound = tt.notFound
			cfg.Routes.NotFoundRedirect = "/upload"

			p, err := newPrerenderer(cfg, nil)
			if err != nil {
				t.Fatalf("newPrerenderer: %v", err)
			}
			doc, err := p.Prerender(context.Background(), []byte(entryDocument), tt.path)
			if err != nil {
				t.Fatalf("Prerender: %v", err)
			}
			if !strings.Contains(string(doc), tt.want) {
				t.Errorf("document missing %s:\n%s", tt.want, doc)
			}
		})
	}
}

func TestInitCommand(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "web")

	out, err := run(t, "init", dir, "--template", "full", "--bucket", "signals-web")
	if err != nil {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Created web from the full template") {
		t.Errorf("init output:\n%s", out)
	}
	for _, name := range []string{"signalshell.yaml", ".env", "public/index.html"} {
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil {
			t.Errorf("%s not created: %v", name, err)
		}
	}

	if _, err := run(t, "init", dir, "--template", "full"); code(err) != "E145" {
		t.Errorf("second init error = %v, want E145", err)
	}
	if _, err := run(t, "init", t.TempDir(), "--template", "api"); code(err) != "E144" {
		t.Errorf("unknown template error = %v, want E144", err)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
