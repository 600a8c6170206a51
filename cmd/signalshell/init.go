package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/signalshell/internal/templates"
)

func initCmd() *cobra.Command {
	var (
		template  string
		name      string
		apiTarget string
		bucket    string
	)

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a new project",
		Long: `Create a new project from a template.

Available templates: ` + strings.Join(templates.List(), ", ") + `

Examples:
  signalshell init
  signalshell init web --template=full
  signalshell init web --api-target=http://127.0.0.1:5001 --bucket=signals-web`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(abs)
			}

			tmpl, err := templates.Get(template)
			if err != nil {
				return err
			}
			files, err := tmpl.Create(abs, templates.Config{
				ProjectName: name,
				APITarget:   apiTarget,
				Bucket:      bucket,
			})
			if err != nil {
				return err
			}

			success("Created %s from the %s template", name, tmpl.Name)
			fmt.Fprintln(stdout)
			for _, f := range files {
				info(f)
			}
			fmt.Fprintln(stdout)
			if dir != "." {
				info("cd %s", dir)
			}
			info("signalshell serve")
			if _, err := os.Stat(filepath.Join(abs, ".env")); err == nil {
				info("Edit .env to point API_TARGET at your backend")
			}
			fmt.Fprintln(stdout)
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "minimal", "Project template")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name (default: directory name)")
	cmd.Flags().StringVar(&apiTarget, "api-target", "", "Backend the /api prefix forwards to")
	cmd.Flags().StringVar(&bucket, "bucket", "", "Publish bucket")

	return cmd
}
