package dev

import (
	"context"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ChangeType represents the type of file change.
type ChangeType int

const (
	ChangeAsset ChangeType = iota
	ChangeCSS
	ChangeDocument
)

func (t ChangeType) String() string {
	switch t {
	case ChangeCSS:
		return "css"
	case ChangeDocument:
		return "document"
	default:
		return "asset"
	}
}

// Change represents a detected file change.
type Change struct {
	Path string
	Type ChangeType
}

// WatcherConfig configures the file watcher.
type WatcherConfig struct {
	// Paths are the directories to watch. Missing directories are
	// skipped until they appear.
	Paths []string

	// Ignore lists patterns to skip. A pattern without a slash matches
	// any path segment; one with a slash matches the path relative to
	// the watched directory or any directory below it.
	Ignore []string

	// Interval between polls. Default: 250ms.
	Interval time.Duration
}

// DefaultIgnore contains patterns ignored in addition to the configured ones.
var DefaultIgnore = []string{
	".git",
	"node_modules",
	".DS_Store",
	"*.tmp",
	"*.swp",
	"*~",
}

type stamp struct {
	mod  time.Time
	size int64
}

// Watcher polls directories and reports changed files in batches.
type Watcher struct {
	config   WatcherConfig
	mu       sync.Mutex
	onChange func([]Change)
	files    map[string]stamp
}

// NewWatcher creates a new file watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.Interval <= 0 {
		config.Interval = 250 * time.Millisecond
	}
	config.Ignore = append(append([]string(nil), DefaultIgnore...), config.Ignore...)

	return &Watcher{config: config}
}

// OnChange sets the callback for change batches.
func (w *Watcher) OnChange(fn func([]Change)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Run takes an initial snapshot and polls until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	w.poll()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			changes := w.poll()
			if len(changes) == 0 {
				continue
			}
			w.mu.Lock()
			fn := w.onChange
			w.mu.Unlock()
			if fn != nil {
				fn(changes)
			}
		}
	}
}

// poll rescans the watched paths and returns what changed since the last
// scan. The first scan only records the snapshot.
func (w *Watcher) poll() []Change {
	current := w.scan()

	w.mu.Lock()
	previous := w.files
	w.files = current
	w.mu.Unlock()

	if previous == nil {
		return nil
	}

	var changes []Change
	for p, s := range current {
		if old, ok := previous[p]; !ok || !old.mod.Equal(s.mod) || old.size != s.size {
			changes = append(changes, Change{Path: p, Type: classifyChange(p)})
		}
	}
	for p := range previous {
		if _, ok := current[p]; !ok {
			changes = append(changes, Change{Path: p, Type: classifyChange(p)})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes
}

func (w *Watcher) scan() map[string]stamp {
	files := make(map[string]stamp)
	for _, root := range w.config.Paths {
		filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if p != root && w.ignored(root, p) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			files[p] = stamp{mod: info.ModTime(), size: info.Size()}
			return nil
		})
	}
	return files
}

// ignored reports whether p, found under root, matches an ignore pattern.
func (w *Watcher) ignored(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	segments := strings.Split(rel, "/")

	for _, pattern := range w.config.Ignore {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}

		if !strings.Contains(pattern, "/") {
			for _, seg := range segments {
				if ok, _ := path.Match(pattern, seg); ok {
					return true
				}
			}
			continue
		}

		pattern = strings.Trim(filepath.ToSlash(pattern), "/")
		for i := range segments {
			if ok, _ := path.Match(pattern, strings.Join(segments[i:], "/")); ok {
				return true
			}
		}
	}
	return false
}

// classifyChange determines the type of change based on file extension.
func classifyChange(p string) ChangeType {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".css":
		return ChangeCSS
	case ".html", ".htm":
		return ChangeDocument
	default:
		return ChangeAsset
	}
}
