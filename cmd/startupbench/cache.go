package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bebsworthy/startupbench/internal/fetcher"
)

func newCacheCmd(e *env, global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or empty the agent cache",
	}
	cmd.AddCommand(newCacheListCmd(e, global))
	cmd.AddCommand(newCacheCleanCmd(e, global))
	return cmd
}

func newCacheListCmd(e *env, global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached agent releases in version order",
		Args:  exactArgs(0, "startupbench cache list"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(e, global)
			if err != nil {
				return err
			}
			dir := cfg.CacheDir

			artifacts, err := fetcher.List(dir)
			if err != nil {
				return err
			}
			if len(artifacts) == 0 {
				_, _ = fmt.Fprintf(e.stdout, "No cached tracers in %s\n", dir) //nolint:errcheck
				return nil
			}
			for _, a := range artifacts {
				_, _ = fmt.Fprintf(e.stdout, "%s\t%s\n", a.Version, a.Path) //nolint:errcheck
			}
			return nil
		},
	}
}

func newCacheCleanCmd(e *env, global *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete every cached agent release",
		Args:  exactArgs(0, "startupbench cache clean [--yes]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(e, global)
			if err != nil {
				return err
			}
			dir := cfg.CacheDir

			if !yes {
				if !e.isTerminal() {
					return errors.New("refusing to delete the cache without confirmation; pass --yes")
				}
				ok, err := e.confirm(fmt.Sprintf("Delete all cached tracers in %s?", dir))
				if err != nil {
					return fmt.Errorf("confirmation failed: %w", err)
				}
				if !ok {
					_, _ = fmt.Fprintln(e.stdout, "Nothing deleted") //nolint:errcheck
					return nil
				}
			}

			removed, err := fetcher.Clean(dir)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(e.stdout, "Removed %d cached tracers from %s\n", removed, dir) //nolint:errcheck
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
