package main

import (
	"log/slog"

	"github.com/vango-dev/signalshell/app/routes"
	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/dev"
	"github.com/vango-dev/signalshell/internal/errors"
	"github.com/vango-dev/signalshell/pkg/router"
	"github.com/vango-dev/signalshell/pkg/shell"
)

// loadProject loads the configuration of the project containing the
// working directory. Env files for the resolved mode are applied first.
func loadProject(modeFlag string, fallback config.Mode) (*config.Config, error) {
	cfg, err := config.LoadFromWorkingDir(modeFlag, fallback)
	if err != nil {
		return nil, err
	}
	if cfg.Path() == "" {
		warn("No signalshell.json found, using defaults")
	}
	return cfg, nil
}

// routeTable builds the configured route table generation.
func routeTable(cfg *config.Config) (*router.Table, error) {
	gen := routes.Generation(cfg.Routes.Generation)
	if !gen.Valid() {
		return nil, errors.New("E105").WithDetailf("unknown route generation %d", gen)
	}
	table, err := routes.Table(gen)
	if err != nil {
		return nil, errors.FromRouteError(err)
	}
	return table, nil
}

// newPrerenderer wires the route table, not-found policy and runtime
// flags of cfg into a shell prerenderer.
func newPrerenderer(cfg *config.Config, logger *slog.Logger) (*dev.ShellPrerenderer, error) {
	table, err := routeTable(cfg)
	if err != nil {
		return nil, err
	}
	notFound, err := routes.NotFound(cfg.Routes.NotFound, cfg.Routes.NotFoundRedirect)
	if err != nil {
		return nil, errors.New("E124").Wrap(err)
	}
	return &dev.ShellPrerenderer{
		Table:    table,
		NotFound: &notFound,
		Flags: shell.RuntimeFlags{
			HydrationMismatchDetails: cfg.Runtime.HydrationMismatchDetails,
		},
		KeepAliveCapacity: cfg.Routes.KeepAliveCapacity,
		Logger:            logger,
	}, nil
}
