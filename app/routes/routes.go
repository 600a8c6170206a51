// Package routes declares the application's route tables.
//
// Generation 1 is the original four-page surface. Generation 2 adds the
// dimension reduction page, loaded lazily since it is the heaviest view.
package routes

import (
	"context"
	"fmt"

	"github.com/vango-dev/signalshell/app/views"
	"github.com/vango-dev/signalshell/pkg/router"
	"github.com/vango-dev/signalshell/pkg/view"
)

// Generation selects a route table revision.
type Generation int

const (
	Generation1 Generation = 1
	Generation2 Generation = 2

	// Latest is the generation served by default.
	Latest = Generation2
)

// Valid reports whether g names a known generation.
func (g Generation) Valid() bool {
	return g == Generation1 || g == Generation2
}

// Entries returns the route entries of generation g.
func Entries(g Generation) ([]router.RouteEntry, error) {
	home := views.HomeFactory
	if g == Generation2 {
		home = views.HomeWithDimenReductFactory
	}

	entries := []router.RouteEntry{
		{Path: "/", Name: "Home", Component: home, KeepAlive: true},
		{Path: "/upload", Name: "Upload", Component: views.UploadFactory, KeepAlive: true},
		{Path: "/generator", Name: "Generator", Component: views.GeneratorFactory, KeepAlive: true},
		{Path: "/analysis", Name: "Analysis", Component: views.AnalysisFactory},
	}

	switch g {
	case Generation1:
	case Generation2:
		entries = append(entries, router.RouteEntry{
			Path:      "/dimenreduct",
			Name:      "DimenReduct",
			Lazy:      loadDimenReduct,
			KeepAlive: true,
		})
	default:
		return nil, fmt.Errorf("unknown route generation %d", g)
	}
	return entries, nil
}

// Table builds the route table of generation g.
func Table(g Generation) (*router.Table, error) {
	entries, err := Entries(g)
	if err != nil {
		return nil, err
	}
	return router.NewTable(entries...)
}

func loadDimenReduct(ctx context.Context) (view.Factory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return views.DimenReductFactory, nil
}

// NotFound maps a not-found policy name ("view", "redirect" or "blank") to
// the router policy. The view policy mounts the application's NotFound
// view.
func NotFound(policy, target string) (router.NotFoundPolicy, error) {
	switch policy {
	case "", "view":
		return router.NotFoundView(views.NotFoundFactory), nil
	case "redirect":
		return router.NotFoundRedirect(target), nil
	case "blank":
		return router.NotFoundBlank(), nil
	}
	return router.NotFoundPolicy{}, fmt.Errorf("unknown not-found policy %q", policy)
}
