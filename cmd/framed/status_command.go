package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"framed/internal/daemon"
	"framed/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and state database status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open state database: %w", err)
			}
			defer st.Close()

			health, err := st.CheckHealth(cmd.Context())
			if err != nil {
				return fmt.Errorf("check state database: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Daemon: %s\n", daemonState(cfg.Paths.StateDir))
			fmt.Fprintf(out, "Database: %s\n", health.DBPath)

			rows := make([][]string, 0, len(health.Counts))
			for _, namespace := range []string{
				store.NamespaceFrameState,
				store.NamespaceAnswer,
				store.NamespaceRunState,
				store.NamespaceArchive,
			} {
				rows = append(rows, []string{namespace, strconv.Itoa(health.Counts[namespace])})
			}
			fmt.Fprint(out, renderTable([]string{"Namespace", "Records"}, rows))
			fmt.Fprintln(out)
			return nil
		},
	}
}

// daemonState probes the instance lock without disturbing a running daemon.
func daemonState(stateDir string) string {
	lock := flock.New(filepath.Join(stateDir, daemon.LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return "unknown"
	}
	if !locked {
		return "running"
	}
	_ = lock.Unlock()
	return "stopped"
}
