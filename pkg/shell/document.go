package shell

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vango-dev/signalshell/pkg/view"
)

// flagsScriptID marks the injected runtime flags script so that attaching
// twice replaces it rather than duplicating it.
const flagsScriptID = "signalshell-flags"

// DocumentHost renders views into the anchor element of an HTML entry
// document. It is used to prerender the entry document on the server.
type DocumentHost struct {
	mu     sync.Mutex
	doc    *html.Node
	anchor *html.Node
}

// NewDocumentHost parses an entry document.
func NewDocumentHost(r io.Reader) (*DocumentHost, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse entry document: %w", err)
	}
	return &DocumentHost{doc: doc}, nil
}

func (h *DocumentHost) Attach(rt *Runtime, anchor string) error {
	id, err := anchorID(anchor)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	node := findByID(h.doc, id)
	if node == nil {
		return fmt.Errorf("%w: %s", ErrAnchorNotFound, anchor)
	}
	h.anchor = node

	script, err := rt.flagsScript()
	if err != nil {
		return err
	}
	h.injectFlags(script)
	return nil
}

func (h *DocumentHost) Mount(inst *view.Instance) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.anchor == nil {
		return ErrNotAttached
	}

	var buf bytes.Buffer
	if err := inst.Render(&buf); err != nil {
		return err
	}
	nodes, err := html.ParseFragment(&buf, h.anchor)
	if err != nil {
		return fmt.Errorf("parse view %s markup: %w", inst.Route, err)
	}

	clearChildren(h.anchor)
	for _, n := range nodes {
		h.anchor.AppendChild(n)
	}
	setAttr(h.anchor, "data-route", inst.Route)
	return nil
}

func (h *DocumentHost) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.anchor == nil {
		return ErrNotAttached
	}
	clearChildren(h.anchor)
	removeAttr(h.anchor, "data-route")
	return nil
}

// WriteTo renders the whole document.
func (h *DocumentHost) WriteTo(w io.Writer) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cw := &countingWriter{w: w}
	err := html.Render(cw, h.doc)
	return cw.n, err
}

// String renders the whole document to a string.
func (h *DocumentHost) String() string {
	var buf bytes.Buffer
	h.WriteTo(&buf)
	return buf.String()
}

func (h *DocumentHost) injectFlags(script string) {
	if old := findByID(h.doc, flagsScriptID); old != nil && old.Parent != nil {
		old.Parent.RemoveChild(old)
	}

	parent := findElement(h.doc, atom.Head)
	if parent == nil {
		parent = findElement(h.doc, atom.Body)
	}
	if parent == nil {
		return
	}

	node := &html.Node{
		Type:     html.ElementNode,
		Data:     "script",
		DataAtom: atom.Script,
		Attr:     []html.Attribute{{Key: "id", Val: flagsScriptID}},
	}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: script})
	// Flags must be defined before any module script in the head runs.
	parent.InsertBefore(node, parent.FirstChild)
}

func findByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func clearChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
