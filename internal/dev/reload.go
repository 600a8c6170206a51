package dev

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// ReloadPath is the WebSocket endpoint browsers connect to.
const ReloadPath = "/_signalshell/reload"

// ReloadMessageType represents the type of reload message.
type ReloadMessageType string

const (
	ReloadTypeFull ReloadMessageType = "reload"
	ReloadTypeCSS  ReloadMessageType = "css"
)

// ReloadMessage is sent to browsers via WebSocket.
type ReloadMessage struct {
	Type ReloadMessageType `json:"type"`
	File string            `json:"file,omitempty"`
}

// ReloadHub tracks connected browsers and broadcasts reload messages.
// It is safe for concurrent use.
type ReloadHub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]struct{}
	writeMu  sync.Mutex
	upgrader websocket.Upgrader
	metrics  *metrics
}

// NewReloadHub creates an empty hub.
func NewReloadHub() *ReloadHub {
	return &ReloadHub{
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The dev server only listens locally.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and holds it until the browser leaves.
func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.add(conn)
	defer h.remove(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *ReloadHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.setClients(n)
}

func (h *ReloadHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		conn.Close()
		h.metrics.setClients(n)
	}
}

// NotifyReload asks every browser to reload the page.
func (h *ReloadHub) NotifyReload() int {
	return h.Broadcast(ReloadMessage{Type: ReloadTypeFull})
}

// NotifyCSS asks every browser to refetch its stylesheets.
func (h *ReloadHub) NotifyCSS(file string) int {
	return h.Broadcast(ReloadMessage{Type: ReloadTypeCSS, File: file})
}

// Broadcast sends msg to all clients and returns how many received it.
// Clients that fail the write are dropped.
func (h *ReloadHub) Broadcast(msg ReloadMessage) int {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0
	}
	h.metrics.reload(msg.Type)

	h.mu.Lock()
	clients := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	// A connection allows one concurrent writer.
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	sent := 0
	for _, c := range clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			h.remove(c)
			continue
		}
		sent++
	}
	return sent
}

// ClientCount returns the number of connected browsers.
func (h *ReloadHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every browser.
func (h *ReloadHub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.Close()
	}
	h.metrics.setClients(0)
}

// InjectReloadScript inserts the reload client before </body>, or
// </html>, or at the end of doc.
func InjectReloadScript(doc []byte) []byte {
	idx := bytes.LastIndex(doc, []byte("</body>"))
	if idx == -1 {
		idx = bytes.LastIndex(doc, []byte("</html>"))
	}
	if idx == -1 {
		return append(doc, ReloadClientScript...)
	}

	out := make([]byte, 0, len(doc)+len(ReloadClientScript))
	out = append(out, doc[:idx]...)
	out = append(out, ReloadClientScript...)
	return append(out, doc[idx:]...)
}

// ReloadClientScript connects to ReloadPath and acts on reload messages.
const ReloadClientScript = `<script>
(function() {
    'use strict';
    var delay = 1000;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + location.host + '` + ReloadPath + `');

        ws.onopen = function() { delay = 1000; };

        ws.onmessage = function(e) {
            var msg;
            try { msg = JSON.parse(e.data); } catch (err) { return; }

            if (msg.type === 'css') {
                document.querySelectorAll('link[rel="stylesheet"]').forEach(function(link) {
                    var url = new URL(link.href);
                    url.searchParams.set('_reload', Date.now());
                    link.href = url.toString();
                });
                return;
            }
            if (msg.type === 'reload') {
                location.reload();
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                delay = Math.min(delay * 2, 30000);
                connect();
            }, delay);
        };
    }

    connect();
})();
</script>
`
