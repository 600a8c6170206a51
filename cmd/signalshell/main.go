package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/signalshell/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ┌─┐┬┌─┐┌┐┌┌─┐┬  ┌─┐┬ ┬┌─┐┬  ┬
  └─┐││ ┬│││├─┤│  └─┐├─┤├┤ │  │
  └─┘┴└─┘┘└┘┴ ┴┴─┘└─┘┴ ┴└─┘┴─┘┴─┘
`

// Global flags.
var (
	verbose bool
	noColor bool
)

var (
	stdout io.Writer = color.Output
	stderr io.Writer = color.Error
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.Fprint(stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "signalshell",
		Short: "Development and build tooling for the signal analysis front-end",
		Long: `signalshell serves, builds and publishes the signal analysis front-end.

The application shell mounts one view per route. Upload, generator and
home keep their state when you navigate away; analysis is rebuilt on
every visit.

  • Dev server with an API proxy and history fallback
  • Live reload of the public directory
  • Fingerprinted production builds
  • Publishing to S3 or an S3-compatible store`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				errors.DisableColors()
			}
			slog.SetDefault(newLogger(stderr, verbose))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		initCmd(),
		serveCmd(),
		previewCmd(),
		buildCmd(),
		routesCmd(),
		publishCmd(),
		versionCmd(),
	)
	return rootCmd
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Fprint(stdout, color.CyanString(banner))
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Fprintf(stdout, "%s %s\n", color.GreenString("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Fprintf(stdout, "  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Fprintf(stdout, "%s %s\n", color.YellowString("⚠"), fmt.Sprintf(format, args...))
}
