package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"framed/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point catalog_path at your episode catalog before running framedd.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration is valid.")
			fmt.Fprint(out, renderTable(
				[]string{"Setting", "Value"},
				[][]string{
					{"state_dir", cfg.Paths.StateDir},
					{"frames_dir", cfg.Paths.FramesDir},
					{"log_dir", cfg.Paths.LogDir},
					{"catalog_path", cfg.Paths.CatalogPath},
					{"extension", cfg.Frames.Extension},
					{"quality gate", qualityGateSummary(cfg)},
					{"pregen", fmt.Sprintf("length=%d max_pending=%d max_retries=%d",
						cfg.Pregen.Length, cfg.Pregen.MaxPending, cfg.Pregen.MaxRetries)},
					{"cleanup interval", fmt.Sprintf("%ds", cfg.Cleanup.Interval)},
				},
			))
			fmt.Fprintln(out)
			return nil
		},
	}
}

func qualityGateSummary(cfg *config.Config) string {
	if !cfg.QualityGateEnabled() {
		return "disabled"
	}
	return fmt.Sprintf("min_std_dev=%.3f max_rejects=%d", cfg.Frames.MinStdDev, cfg.Frames.MaxRejects)
}
