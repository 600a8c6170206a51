package assets

import "strings"

// Resolver turns source asset paths into URLs under a base path.
type Resolver struct {
	manifest *Manifest
	base     string
}

// NewResolver creates a Resolver. base is the mode's public path, e.g.
// "/" for production or "./" for development; a missing trailing slash
// is added.
func NewResolver(m *Manifest, base string) *Resolver {
	if base == "" {
		base = "/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Resolver{manifest: m, base: base}
}

// Base returns the normalized base path.
func (r *Resolver) Base() string {
	return r.base
}

// Asset resolves source to its fingerprinted URL. Sources missing from
// the manifest are returned under the base path unchanged.
func (r *Resolver) Asset(source string) string {
	return r.base + r.manifest.Resolve(strings.TrimPrefix(source, "/"))
}

// Reference rewrites a URL found in a document. Local references to
// manifest entries become fingerprinted URLs under the base path, keeping
// any query or fragment. Everything else is returned unchanged with ok
// false.
func (r *Resolver) Reference(ref string) (string, bool) {
	if !isLocal(ref) {
		return ref, false
	}

	source, suffix := ref, ""
	if i := strings.IndexAny(source, "?#"); i >= 0 {
		source, suffix = source[:i], source[i:]
	}
	source = strings.TrimPrefix(source, "./")
	source = strings.TrimPrefix(source, "/")

	resolved, ok := r.manifest.Lookup(source)
	if !ok {
		return ref, false
	}
	return r.base + resolved + suffix, true
}

func isLocal(ref string) bool {
	switch {
	case ref == "", strings.HasPrefix(ref, "#"), strings.HasPrefix(ref, "//"):
		return false
	case strings.Contains(ref, ":"):
		// Scheme URLs: http:, data:, mailto: and the like.
		i := strings.IndexAny(ref, ":/?#")
		return ref[i] != ':'
	}
	return true
}
