package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/signalshell/internal/build"
	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/internal/publish"
)

func publishCmd() *cobra.Command {
	var (
		bucket string
		prefix string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the build output to S3",
		Long: `Upload the build output to S3 or an S3-compatible store.

Fingerprinted assets are uploaded first with a long-lived Cache-Control.
The manifest and the entry document follow, uncached. Credentials come
from AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY and AWS_SESSION_TOKEN.

Examples:
  signalshell publish --bucket=signals-web
  signalshell publish --bucket=signals-web --prefix=staging --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject("", config.Production)
			if err != nil {
				return err
			}
			if bucket != "" {
				cfg.Publish.Bucket = bucket
			}
			if prefix != "" {
				cfg.Publish.Prefix = prefix
			}

			dir := cfg.OutputPath()
			if err := build.CheckOutput(dir, cfg.Static.Index); err != nil {
				return err
			}

			p, err := publish.New(publish.NewClient(cfg.Publish), publish.Options{
				Bucket:       cfg.Publish.Bucket,
				Prefix:       cfg.Publish.Prefix,
				AssetsDir:    cfg.Build.AssetsDir,
				CacheControl: cfg.Publish.CacheControl,
				DryRun:       dryRun,
				OnUpload: func(key string) {
					if !dryRun {
						info(key)
					}
				},
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			info("Publishing %s to s3://%s/%s", dir, cfg.Publish.Bucket, cfg.Publish.Prefix)
			fmt.Fprintln(stdout)
			result, err := p.Publish(ctx, dir)
			if err != nil {
				return err
			}

			fmt.Fprintln(stdout)
			if dryRun {
				warn("Dry run: %d objects (%s) not uploaded", len(result.Keys), formatBytes(result.Bytes))
				return nil
			}
			success("Published %d objects (%s)", len(result.Keys), formatBytes(result.Bytes))
			return nil
		},
	}

	cmd.Flags().StringVarP(&bucket, "bucket", "b", "", "Bucket name (default from signalshell.json)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Key prefix (default from signalshell.json)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the uploads without performing them")

	return cmd
}
