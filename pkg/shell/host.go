package shell

import (
	"bytes"
	"errors"
	"strings"
	"sync"

	"github.com/vango-dev/signalshell/pkg/view"
)

// Host errors.
var (
	ErrInvalidAnchor  = errors.New("anchor must be an id selector such as #app")
	ErrAnchorNotFound = errors.New("anchor element not found")
	ErrNotAttached    = errors.New("host not attached")
)

// Host is the surface an App renders into.
type Host interface {
	// Attach binds the host to a runtime and anchor. Called once, before
	// the first Mount.
	Attach(rt *Runtime, anchor string) error

	// Mount replaces the anchor's content with the instance's markup.
	Mount(inst *view.Instance) error

	// Clear empties the anchor.
	Clear() error
}

func anchorID(anchor string) (string, error) {
	if !strings.HasPrefix(anchor, "#") || len(anchor) == 1 {
		return "", ErrInvalidAnchor
	}
	return anchor[1:], nil
}

// MemoryHost renders into an in-memory buffer.
type MemoryHost struct {
	mu      sync.Mutex
	rt      *Runtime
	anchor  string
	mounted *view.Instance
	html    string
	mounts  int
}

// NewMemoryHost creates an unattached MemoryHost.
func NewMemoryHost() *MemoryHost {
	return &MemoryHost{}
}

func (h *MemoryHost) Attach(rt *Runtime, anchor string) error {
	if _, err := anchorID(anchor); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.rt = rt
	h.anchor = anchor
	return nil
}

func (h *MemoryHost) Mount(inst *view.Instance) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rt == nil {
		return ErrNotAttached
	}

	var buf bytes.Buffer
	if err := inst.Render(&buf); err != nil {
		return err
	}
	h.mounted = inst
	h.html = buf.String()
	h.mounts++
	return nil
}

func (h *MemoryHost) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rt == nil {
		return ErrNotAttached
	}
	h.mounted = nil
	h.html = ""
	return nil
}

// Mounted returns the instance currently shown, if any.
func (h *MemoryHost) Mounted() *view.Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mounted
}

// HTML returns the markup currently shown.
func (h *MemoryHost) HTML() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.html
}

// Mounts returns how many times Mount succeeded.
func (h *MemoryHost) Mounts() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mounts
}

// Anchor returns the anchor the host was attached to.
func (h *MemoryHost) Anchor() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.anchor
}

// Runtime returns the attached runtime.
func (h *MemoryHost) Runtime() *Runtime {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rt
}
