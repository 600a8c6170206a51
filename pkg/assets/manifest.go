// Package assets maps source asset paths to their fingerprinted build
// output.
//
// A build writes manifest.json next to the entry document:
//
//	{
//	  "main.js": "assets/main.3f2a9c1d.js",
//	  "img/logo.svg": "assets/img/logo.77e0b1aa.svg"
//	}
//
// The resolver prefixes resolved paths with the mode's base path:
//
//	manifest, _ := assets.Load("dist/manifest.json")
//	resolver := assets.NewResolver(manifest, "/")
//	resolver.Asset("main.js") // "/assets/main.3f2a9c1d.js"
package assets

import (
	"encoding/json"
	"os"
	"sort"
	"sync"
)

// Manifest holds the mapping from source asset paths to fingerprinted paths.
// It is safe for concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// Load reads a manifest.json file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return &Manifest{entries: entries}, nil
}

// Save writes the manifest as indented JSON with sorted keys.
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.entries, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Resolve returns the fingerprinted path for source, or source unchanged
// when it is not in the manifest.
func (m *Manifest) Resolve(source string) string {
	if resolved, ok := m.Lookup(source); ok {
		return resolved
	}
	return source
}

// Lookup returns the fingerprinted path for source.
func (m *Manifest) Lookup(source string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resolved, ok := m.entries[source]
	return resolved, ok
}

// Set adds or updates an entry.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[source] = resolved
}

// Len returns the number of entries in the manifest.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// Sources returns the source paths in sorted order.
func (m *Manifest) Sources() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make([]string, 0, len(m.entries))
	for k := range m.entries {
		sources = append(sources, k)
	}
	sort.Strings(sources)
	return sources
}
