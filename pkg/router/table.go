package router

import (
	"fmt"

	"github.com/vango-dev/signalshell/pkg/routepath"
	"github.com/vango-dev/signalshell/pkg/view"
)

// RouteEntry binds a path to a view.
type RouteEntry struct {
	// Path is the route pattern, e.g. "/upload" or "/runs/:id".
	Path string

	// Name uniquely identifies the route. Retained views are keyed by it.
	Name string

	// Component constructs the view eagerly.
	Component view.Factory

	// Lazy loads the view factory on first navigation.
	Lazy view.Loader

	// KeepAlive retains the view instance when navigating away so that
	// returning to the route restores it instead of reconstructing it.
	KeepAlive bool
}

// IsLazy reports whether the entry's view is loaded on demand.
func (e *RouteEntry) IsLazy() bool {
	return e.Component == nil && e.Lazy != nil
}

// Match is the result of a successful table lookup.
type Match struct {
	Entry  *RouteEntry
	Path   string
	Query  string
	Params map[string]string
}

// Table is an immutable ordered route table.
type Table struct {
	entries  []RouteEntry
	patterns []pattern
	byName   map[string]int
}

// NewTable validates entries and builds a table. Paths are canonicalized;
// duplicate paths or names, malformed paths and entries without exactly
// one view source are rejected.
func NewTable(entries ...RouteEntry) (*Table, error) {
	t := &Table{
		entries:  make([]RouteEntry, 0, len(entries)),
		patterns: make([]pattern, 0, len(entries)),
		byName:   make(map[string]int, len(entries)),
	}
	seen := make(map[string]string, len(entries))

	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("route %q: empty name: %w", e.Path, ErrInvalidPath)
		}
		if (e.Component == nil) == (e.Lazy == nil) {
			return nil, fmt.Errorf("route %q: %w", e.Name, ErrNoComponent)
		}

		res, err := routepath.NavPath(e.Path)
		if err != nil {
			return nil, fmt.Errorf("route %q path %q: %w: %w", e.Name, e.Path, ErrInvalidPath, err)
		}
		if res.Query != "" {
			return nil, fmt.Errorf("route %q path %q: query not allowed: %w", e.Name, e.Path, ErrInvalidPath)
		}
		p, err := compilePattern(res.Path)
		if err != nil {
			return nil, fmt.Errorf("route %q path %q: %w", e.Name, e.Path, err)
		}

		if other, dup := seen[p.key()]; dup {
			return nil, fmt.Errorf("routes %q and %q share path %q: %w", other, e.Name, res.Path, ErrDuplicatePath)
		}
		if _, dup := t.byName[e.Name]; dup {
			return nil, fmt.Errorf("route name %q: %w", e.Name, ErrDuplicateName)
		}

		e.Path = res.Path
		seen[p.key()] = e.Name
		t.byName[e.Name] = len(t.entries)
		t.entries = append(t.entries, e)
		t.patterns = append(t.patterns, p)
	}
	return t, nil
}

// MustTable is like NewTable but panics on error.
func MustTable(entries ...RouteEntry) *Table {
	t, err := NewTable(entries...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the first entry, in table order, whose pattern matches
// path. The query string takes no part in matching.
func (t *Table) Lookup(path string) (*Match, error) {
	res, err := routepath.Canonicalize(path)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", path, err)
	}
	parts := routepath.Split(res.Path)

	for i := range t.entries {
		if params, ok := t.patterns[i].match(parts); ok {
			return &Match{
				Entry:  &t.entries[i],
				Path:   res.Path,
				Query:  res.Query,
				Params: params,
			}, nil
		}
	}
	return nil, fmt.Errorf("lookup %q: %w", res.Path, ErrNotFound)
}

// Entries returns a copy of the table's entries in order.
func (t *Table) Entries() []RouteEntry {
	out := make([]RouteEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ByName returns the entry with the given name.
func (t *Table) ByName(name string) (*RouteEntry, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return &t.entries[i], true
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}
