package dev

import (
	"bytes"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// staticHandler serves files from root and answers client-side routes
// with the entry document.
type staticHandler struct {
	root      string
	index     string
	fallback  bool
	reload    bool
	prerender Prerenderer
	logger    *slog.Logger
	metrics   *metrics
	files     http.Handler
}

func newStaticHandler(root, index string) *staticHandler {
	return &staticHandler{
		root:   root,
		index:  index,
		logger: slog.Default(),
		files:  http.FileServer(http.Dir(root)),
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)

	if name == "/" || name == "/"+h.index {
		h.serveDocument(w, r, "/")
		return
	}

	info, err := os.Stat(filepath.Join(h.root, filepath.FromSlash(name)))
	if err == nil && !info.IsDir() {
		if h.reload && isHTML(name) {
			h.serveHTMLFile(w, r, name, info.ModTime())
			return
		}
		h.files.ServeHTTP(w, r)
		return
	}

	if h.fallback && IsHistoryRequest(r) {
		h.metrics.fallback()
		h.serveDocument(w, r, r.URL.RequestURI())
		return
	}
	http.NotFound(w, r)
}

// IsHistoryRequest reports whether r should receive the entry document:
// a GET or HEAD accepting text/html whose last path segment has no dot.
func IsHistoryRequest(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if !strings.Contains(r.Header.Get("Accept"), "text/html") {
		return false
	}
	last := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	return !strings.Contains(last, ".")
}

// serveDocument writes the entry document, prerendered for route when a
// Prerenderer is set. A prerender failure serves the plain document.
func (h *staticHandler) serveDocument(w http.ResponseWriter, r *http.Request, route string) {
	indexPath := filepath.Join(h.root, h.index)
	info, err := os.Stat(indexPath)
	if err != nil {
		http.Error(w, "entry document not found: "+h.index, http.StatusNotFound)
		return
	}
	doc, err := os.ReadFile(indexPath)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if h.prerender != nil {
		rendered, err := h.prerender.Prerender(r.Context(), doc, route)
		if err != nil {
			h.logger.Warn("prerender failed", "path", route, "error", err)
		} else {
			doc = rendered
		}
	}

	h.writeHTML(w, r, doc, info.ModTime())
}

func (h *staticHandler) serveHTMLFile(w http.ResponseWriter, r *http.Request, name string, mod time.Time) {
	doc, err := os.ReadFile(filepath.Join(h.root, filepath.FromSlash(name)))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.writeHTML(w, r, doc, mod)
}

func (h *staticHandler) writeHTML(w http.ResponseWriter, r *http.Request, doc []byte, mod time.Time) {
	if h.reload {
		doc = InjectReloadScript(doc)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, h.index, mod, bytes.NewReader(doc))
}

func isHTML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".html" || ext == ".htm"
}
