// Package dev provides the development and preview servers.
//
// The server is a chi router with these parts:
//
//   - Proxy: forwards configured path prefixes to backend origins,
//     rewriting the path and optionally the Host and Origin headers
//   - Static: serves the static directory, falling back to the entry
//     document for client-side routes (history fallback)
//   - ReloadHub: notifies browsers of file changes via WebSocket
//   - Watcher: polls the watched directories for changes
//
// Every response carries the configured dev headers and is access-logged.
// Proxy and reload metrics are exposed at /_signalshell/metrics.
//
// # Usage
//
//	srv, err := dev.NewServer(dev.Options{Config: cfg})
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx)
//
// # History Fallback
//
// A GET or HEAD request that matches no file, whose Accept header contains
// text/html and whose last path segment has no dot is answered with the
// entry document, so /upload survives a browser reload. With a
// Prerenderer the route's view is rendered into the document first.
//
// # Hot Reload Protocol
//
// The browser connects to /_signalshell/reload via WebSocket.
// Messages are JSON-encoded:
//
//	{"type": "reload"}               // Triggers full page reload
//	{"type": "css", "file": "..."}   // Triggers stylesheet reload
package dev
