package assets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManifestResolve(t *testing.T) {
	m := NewManifest()
	m.Set("main.js", "assets/main.3f2a9c1d.js")
	m.Set("styles.css", "assets/styles.0b1c2d3e.css")

	tests := []struct {
		name     string
		source   string
		expected string
	}{
		{"found entry", "main.js", "assets/main.3f2a9c1d.js"},
		{"found entry css", "styles.css", "assets/styles.0b1c2d3e.css"},
		{"missing entry returns original", "unknown.js", "unknown.js"},
		{"empty string returns empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Resolve(tt.source); got != tt.expected {
				t.Errorf("Resolve(%q) = %q, want %q", tt.source, got, tt.expected)
			}
		})
	}

	if _, ok := m.Lookup("unknown.js"); ok {
		t.Error("Lookup(unknown.js) should miss")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestManifestSaveLoad(t *testing.T) {
	m := NewManifest()
	m.Set("z.png", "assets/z.11111111.png")
	m.Set("a.js", "assets/a.22222222.js")

	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := m.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Index(string(data), "a.js") > strings.Index(string(data), "z.png") {
		t.Errorf("manifest keys not sorted:\n%s", data)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := loaded.Sources(); len(got) != 2 || got[0] != "a.js" || got[1] != "z.png" {
		t.Errorf("Sources() = %v", got)
	}
	if loaded.Resolve("z.png") != "assets/z.11111111.png" {
		t.Errorf("Resolve(z.png) = %q", loaded.Resolve("z.png"))
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Load(missing) should fail")
	}

	path := filepath.Join(t.TempDir(), "manifest.json")
	os.WriteFile(path, []byte("{not json"), 0o644)
	if _, err := Load(path); err == nil {
		t.Error("Load(invalid) should fail")
	}
}

func TestResolverAsset(t *testing.T) {
	m := NewManifest()
	m.Set("main.js", "assets/main.3f2a9c1d.js")

	tests := []struct {
		base   string
		source string
		want   string
	}{
		{"/", "main.js", "/assets/main.3f2a9c1d.js"},
		{"./", "/main.js", "./assets/main.3f2a9c1d.js"},
		{"/app", "main.js", "/app/assets/main.3f2a9c1d.js"},
		{"", "main.js", "/assets/main.3f2a9c1d.js"},
		{"/", "other.js", "/other.js"},
	}
	for _, tt := range tests {
		if got := NewResolver(m, tt.base).Asset(tt.source); got != tt.want {
			t.Errorf("NewResolver(%q).Asset(%q) = %q, want %q", tt.base, tt.source, got, tt.want)
		}
	}
}

func TestResolverReference(t *testing.T) {
	m := NewManifest()
	m.Set("main.js", "assets/main.3f2a9c1d.js")
	m.Set("img/logo.svg", "assets/img/logo.77e0b1aa.svg")
	r := NewResolver(m, "./")

	tests := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{"/main.js", "./assets/main.3f2a9c1d.js", true},
		{"./main.js", "./assets/main.3f2a9c1d.js", true},
		{"main.js?v=2", "./assets/main.3f2a9c1d.js?v=2", true},
		{"img/logo.svg#mark", "./assets/img/logo.77e0b1aa.svg#mark", true},
		{"https://cdn.example.com/main.js", "https://cdn.example.com/main.js", false},
		{"//cdn.example.com/main.js", "//cdn.example.com/main.js", false},
		{"data:image/png;base64,AAAA", "data:image/png;base64,AAAA", false},
		{"#top", "#top", false},
		{"/missing.js", "/missing.js", false},
		{"/api/v1:run", "/api/v1:run", false},
	}
	for _, tt := range tests {
		got, ok := r.Reference(tt.ref)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Reference(%q) = %q, %v; want %q, %v", tt.ref, got, ok, tt.want, tt.wantOK)
		}
	}
}
