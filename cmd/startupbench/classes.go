package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bebsworthy/startupbench/internal/jar"
)

func newClassesCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "classes <jar>",
		Short: "List the classes a benchmark run loads from a jar",
		Long: `Print the fully-qualified name of every class the benchmark entry point
force-loads from the jar. Entries under BOOT-INF are skipped.`,
		Args: exactArgs(1, "startupbench classes <jar>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := jar.ClassNames(e.resolve(args[0]), jar.SpringBootPrefix)
			if err != nil {
				return err
			}
			for _, name := range names {
				if _, err := fmt.Fprintln(e.stdout, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
