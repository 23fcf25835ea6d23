package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"framed/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the episodes frames are drawn from",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			cat, err := catalog.Load(cfg.Paths.CatalogPath)
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}

			rows := make([][]string, 0, cat.Len())
			for _, ep := range cat.Episodes() {
				source := ep.Source
				if _, err := os.Stat(ep.Source); err != nil {
					source += " (missing)"
				}
				rows = append(rows, []string{
					fmt.Sprintf("S%02dE%02d", ep.Season, ep.Episode),
					ep.DisplayTitle(),
					fmt.Sprintf("%.0fs", ep.DurationSeconds),
					fmt.Sprintf("%.0fs", ep.SeekableSeconds()),
					source,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d episodes\n", cat.Len())
			fmt.Fprint(out, renderTable(
				[]string{"Episode", "Title", "Duration", "Seekable", "Source"}, rows))
			fmt.Fprintln(out)
			return nil
		},
	}
}
