package dev

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/vango-dev/signalshell/pkg/router"
	"github.com/vango-dev/signalshell/pkg/shell"
)

// Prerenderer renders the view for a request path into the entry document.
type Prerenderer interface {
	Prerender(ctx context.Context, doc []byte, path string) ([]byte, error)
}

// ShellPrerenderer bootstraps a throwaway shell per request on a
// DocumentHost and returns the document with the view mounted.
type ShellPrerenderer struct {
	Table *router.Table

	// NotFound is the unmatched-path policy. The zero value keeps the
	// router's default.
	NotFound *router.NotFoundPolicy

	Flags shell.RuntimeFlags

	// KeepAliveCapacity is passed to the shell's view cache.
	KeepAliveCapacity int

	// Anchor defaults to shell.DefaultAnchor.
	Anchor string

	Logger *slog.Logger
}

// Prerender implements Prerenderer.
func (p *ShellPrerenderer) Prerender(ctx context.Context, doc []byte, path string) ([]byte, error) {
	host, err := shell.NewDocumentHost(bytes.NewReader(doc))
	if err != nil {
		return nil, err
	}

	var routerOpts []router.Option
	if p.NotFound != nil {
		routerOpts = append(routerOpts, router.WithNotFound(*p.NotFound))
	}

	app, err := shell.Bootstrap(ctx, shell.Options{
		Table:             p.Table,
		Host:              host,
		Anchor:            p.Anchor,
		InitialPath:       path,
		Flags:             p.Flags,
		KeepAliveCapacity: p.KeepAliveCapacity,
		RouterOptions:     routerOpts,
		Logger:            p.Logger,
	})
	if err != nil {
		return nil, err
	}

	out := []byte(host.String())
	app.Close()
	return out, nil
}
