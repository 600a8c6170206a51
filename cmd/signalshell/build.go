package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/signalshell/internal/build"
	"github.com/vango-dev/signalshell/internal/config"
)

func buildCmd() *cobra.Command {
	var (
		mode   string
		output string
		clean  bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build for deployment",
		Long: `Build the front-end for deployment.

This command:
  • Copies every public file into assets/ with a content hash in its name
  • Rewrites asset references in the entry document to the mode's base path
  • Writes manifest.json mapping source paths to fingerprinted paths

Production builds reference assets from "/", development and preview
builds from "./".

Examples:
  signalshell build
  signalshell build --mode=development --output=out
  signalshell build --clean`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject(mode, config.Production)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			info("Building for %s...", cfg.Mode)
			fmt.Fprintln(stdout)

			builder := build.New(cfg, build.Options{
				Output: output,
				Clean:  clean,
				OnProgress: func(step string) {
					info(step)
				},
			})
			result, err := builder.Build(ctx)
			if err != nil {
				return err
			}

			printBuildResult(cfg, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Mode: production, development or preview")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory (default from signalshell.json)")
	cmd.Flags().BoolVar(&clean, "clean", false, "Clean output directory before build")

	return cmd
}

func printBuildResult(cfg *config.Config, result *build.Result) {
	out := result.Output
	if rel, err := filepath.Rel(cfg.Dir(), out); err == nil {
		out = rel
	}

	fmt.Fprintln(stdout)
	success("Build complete in %s", result.Duration.Round(1000000))
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  Output:")
	fmt.Fprintf(stdout, "    %s/\n", out)
	fmt.Fprintf(stdout, "    ├── %s\n", cfg.Static.Index)
	fmt.Fprintf(stdout, "    ├── %s/  (%d files, %s)\n", cfg.Build.AssetsDir, result.Assets, formatBytes(result.Bytes))
	fmt.Fprintf(stdout, "    └── %s\n", build.ManifestFile)
	fmt.Fprintln(stdout)
	info("Base path %q, %d references rewritten", result.BasePath, result.Rewritten)
	fmt.Fprintln(stdout)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
