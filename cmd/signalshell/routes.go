package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/signalshell/internal/config"
	"github.com/vango-dev/signalshell/pkg/router"
)

func routesCmd() *cobra.Command {
	var generation int

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table",
		Long: `Print the route table of the configured generation.

Examples:
  signalshell routes
  signalshell routes --generation=1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadProject("", config.Development)
			if err != nil {
				return err
			}
			if generation > 0 {
				cfg.Routes.Generation = generation
			}
			table, err := routeTable(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "\n  Generation %d\n\n", cfg.Routes.Generation)
			printRoutes(stdout, table)
			fmt.Fprintln(stdout)
			return nil
		},
	}

	cmd.Flags().IntVarP(&generation, "generation", "g", 0, "Route table generation (default from signalshell.json)")

	return cmd
}

// printRoutes writes one aligned line per route entry.
func printRoutes(w io.Writer, table *router.Table) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  PATH\tNAME\tLOAD\tKEEP-ALIVE")
	for _, e := range table.Entries() {
		load := "eager"
		if e.IsLazy() {
			load = "lazy"
		}
		keep := "no"
		if e.KeepAlive {
			keep = color.GreenString("yes")
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", e.Path, e.Name, load, keep)
	}
	tw.Flush()
}
