package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framed/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check required external binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			statuses := deps.Check(deps.Requirements(cfg))
			rows := make([][]string, 0, len(statuses))
			missing := false
			for _, status := range statuses {
				state := status.Path
				switch {
				case !status.Found && status.Optional:
					state = "missing (optional)"
				case !status.Found:
					state = "missing"
					missing = true
				}
				rows = append(rows, []string{status.Binary, status.Purpose, state})
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable([]string{"Binary", "Purpose", "Status"}, rows))
			fmt.Fprintln(out)
			if missing {
				return fmt.Errorf("required binaries are missing")
			}
			return nil
		},
	}
}
