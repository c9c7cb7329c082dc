package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	pkgconfig "github.com/bebsworthy/startupbench/pkg/config"
)

func newConfigCmd(e *env, global *globalOptions) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration a benchmark run would use, after the configuration
file and --cache-dir were applied, as JSON. Paths are shown resolved against
the working directory.`,
		Example: `  # Show the settings in effect
  startupbench config

  # Start a configuration file from the defaults
  startupbench config --output .startupbench.json`,
		Args: exactArgs(0, "startupbench config [--output file]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(e, global)
			if err != nil {
				return err
			}

			data, err := pkgconfig.SaveConfig(cfg)
			if err != nil {
				return usagef("invalid settings: %v", err)
			}

			if outputPath == "" {
				_, _ = fmt.Fprintln(e.stdout, string(data)) //nolint:errcheck
				return nil
			}

			path := e.resolve(outputPath)
			if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
				return fmt.Errorf("failed to write configuration: %w", err)
			}
			_, _ = fmt.Fprintf(e.stdout, "Configuration written to %s\n", path) //nolint:errcheck
			return nil
		},
	}
	cmd.Flags().StringVar(&outputPath, "output", "", "Write the configuration to this file instead of stdout")
	return cmd
}
