package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bebsworthy/startupbench/internal/fetcher"
)

func newFetchCmd(e *env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch [minVersion] [maxVersion]",
		Short: "Download agent releases into the cache without benchmarking",
		Long: `Download dd-java-agent releases from minVersion upward into the cache
directory. Releases already present are kept. The scan stops at the first
release the repository does not have, or after maxVersion.`,
		Example: `  # Fill the cache from 0.30.0 to the latest release
  startupbench fetch

  # Fetch 0.40.0 to 0.45.0 into another directory
  startupbench fetch --cache-dir /tmp/tracers 40 45`,
		Args: maxArgs(2, "startupbench fetch [min tracer version] [max tracer version]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions, err := parseVersionRange(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(e, global)
			if err != nil {
				return err
			}
			versions.apply(cfg)
			if err := cfg.Validate(); err != nil {
				return usagef("invalid settings: %v", err)
			}
			if err := preflight(e, cfg, false); err != nil {
				return err
			}

			f, err := newFetcher(e, cfg)
			if err != nil {
				return err
			}
			summary, err := f.EnsureArtifacts(cmd.Context(), cfg.MinVersion, cfg.MaxVersion)
			if err != nil {
				return err
			}
			printSummary(e, f.Dir(), summary)
			return nil
		},
	}
}

func printSummary(e *env, dir string, s *fetcher.Summary) {
	stop := s.Stop.String()
	if s.Stop != fetcher.StopMaxReached {
		stop = fmt.Sprintf("%s at %s", stop, s.StopVersion)
	}
	_, _ = fmt.Fprintf(e.stdout, "Downloaded %d, already cached %d in %s (%s)\n", //nolint:errcheck
		len(s.Downloaded), len(s.Cached), dir, stop)
}
