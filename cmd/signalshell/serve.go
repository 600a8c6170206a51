package main

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/signalshell/internal/build"
	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/dev"
)

type serveFlags struct {
	port        int
	host        string
	openBrowser bool
	mode        string
}

func (f *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to run on (default from signalshell.json)")
	cmd.Flags().StringVarP(&f.host, "host", "H", "", "Host to bind to (default from signalshell.json)")
	cmd.Flags().BoolVarP(&f.openBrowser, "open", "o", false, "Open browser on start")
}

// apply overrides cfg with the flags that were given.
func (f *serveFlags) apply(cfg *config.Config) {
	if f.port > 0 {
		cfg.Dev.Port = f.port
	}
	if f.host != "" {
		cfg.Dev.Host = f.host
	}
	if f.openBrowser {
		cfg.Dev.OpenBrowser = true
	}
}

func serveCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development server",
		Long: `Start the development server.

Requests under a proxy prefix are forwarded to the backend API. Other
requests are served from the public directory; navigations to client
routes fall back to the entry document. Connected browsers reload when
a watched file changes.

Examples:
  signalshell serve
  signalshell serve --port=3000
  signalshell serve --host=0.0.0.0 --open`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(flags.mode, config.Development)
			if err != nil {
				return err
			}
			flags.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, false)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "", "Mode: development, production or preview")

	return cmd
}

func previewCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve the build output",
		Long: `Serve the finished build with history fallback and the API proxy.

Run signalshell build first. Live reload is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadPreviewProject()
			if err != nil {
				return err
			}
			flags.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := build.CheckOutput(cfg.OutputPath(), cfg.Static.Index); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, true)
		},
	}

	flags.register(cmd)

	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, preview bool) error {
	logger := slog.Default()

	opts := dev.Options{
		Config:  cfg,
		Preview: preview,
		Logger:  logger,
	}
	if cfg.Dev.Prerender && !preview {
		p, err := newPrerenderer(cfg, logger)
		if err != nil {
			return err
		}
		opts.Prerender = p
	}

	server, err := dev.NewServer(opts)
	if err != nil {
		return err
	}

	printBanner()
	if preview {
		info("preview  %s", cfg.OutputPath())
	} else {
		info("serve    %s (%s)", cfg.StaticPath(), cfg.Mode)
	}
	for _, rule := range cfg.Dev.Proxy {
		info("proxy    %s -> %s", rule.Prefix, rule.Target)
	}
	success("Listening on %s", cfg.DevURL())

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Dev.OpenBrowser {
		go openURL(cfg.DevURL())
	}

	err = server.Start(ctx)
	info("Shutting down...")
	return err
}

// loadPreviewProject loads the project in preview mode. SIGNALSHELL_MODE
// does not apply since preview always serves the build output.
func loadPreviewProject() (*config.Config, error) {
	return loadProject(string(config.Preview), config.Preview)
}

// openURL opens a URL in the default browser.
func openURL(url string) {
	var cmd *exec.Cmd

	switch {
	case runtime.GOOS == "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	case commandExists("xdg-open"):
		cmd = exec.Command("xdg-open", url)
	case commandExists("open"):
		cmd = exec.Command("open", url)
	default:
		warn("Could not open a browser, visit %s", url)
		return
	}

	if err := cmd.Start(); err != nil {
		warn("Could not open a browser: %v", err)
	}
}

// commandExists checks if a command exists in PATH.
func commandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
