package router

// History is the browser history abstraction the router drives. The router
// calls it only from its loop goroutine.
type History interface {
	// Entries returns the history stack.
	Entries() []string
	// Index returns the position of the current entry, -1 when empty.
	Index() int
	// Push drops entries after the current one and appends url.
	Push(url string)
	// Replace overwrites the current entry, or pushes when empty.
	Replace(url string)
	// Go moves the current position to index.
	Go(index int)
}

// MemoryHistory is an in-memory History.
type MemoryHistory struct {
	entries []string
	index   int
}

// NewMemoryHistory creates an empty history.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{index: -1}
}

func (h *MemoryHistory) Entries() []string {
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out
}

func (h *MemoryHistory) Index() int {
	return h.index
}

func (h *MemoryHistory) Push(url string) {
	h.entries = append(h.entries[:h.index+1], url)
	h.index++
}

func (h *MemoryHistory) Replace(url string) {
	if h.index < 0 {
		h.Push(url)
		return
	}
	h.entries[h.index] = url
}

func (h *MemoryHistory) Go(index int) {
	if index < 0 || index >= len(h.entries) {
		return
	}
	h.index = index
}

// plannedHistory computes the stack a commit would produce without
// touching the underlying history.
func plannedHistory(h History, kind Kind, url string, target int) ([]string, int) {
	entries := h.Entries()
	index := h.Index()

	switch kind {
	case Pop:
		entries[target] = url
		return entries, target
	case Replace:
		if index >= 0 {
			entries[index] = url
			return entries, index
		}
	}
	entries = append(entries[:index+1], url)
	return entries, index + 1
}

func applyHistory(h History, kind Kind, url string, target int) {
	switch kind {
	case Pop:
		h.Go(target)
		if entries := h.Entries(); entries[target] != url {
			h.Replace(url)
		}
	case Replace:
		h.Replace(url)
	default:
		h.Push(url)
	}
}
