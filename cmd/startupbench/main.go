// Package main is the entry point for the startupbench CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/reporter"
)

// Version is set at build time via ldflags
var Version = "dev"

const usageLine = "usage: startupbench <jar to load classes from> [min tracer version] [max tracer version]"

// usageError is an invocation mistake. It is printed without the error
// decoration and exits with reporter.ExitUsage.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, a ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, a...)}
}

// globalOptions holds the flags shared by every command.
type globalOptions struct {
	debug      bool
	configPath string
	cacheDir   string
}

// newRootCmd creates the root command, which runs the benchmark
func newRootCmd(e *env) *cobra.Command {
	global := &globalOptions{}
	benchOpts := &benchOptions{}

	cmd := &cobra.Command{
		Use:   "startupbench <targetJar> [minVersion] [maxVersion]",
		Short: "Measure dd-java-agent startup overhead across releases",
		Long: `Startupbench measures how much each release of the dd-java-agent slows down
class loading of an application jar.

It downloads every agent release from minVersion upward into a local cache,
then starts a JVM with each agent attached a fixed number of times, loading
every class of the target jar, and prints per release statistics of the
wall-clock time: failures, mean, population stddev, min and max.

The scan for releases stops at the first version the repository does not
have. Without maxVersion every release up to the latest one is measured.`,
		Example: `  # Benchmark every release from 0.30.0 on
  startupbench petclinic.jar

  # Benchmark 0.40.0 up to and including 0.45.0
  startupbench petclinic.jar 40 45

  # Reuse the cache, 5 trials each, printed as a table
  startupbench --skip-fetch --trials 5 --format table petclinic.jar`,
		Version:       Version,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if global.debug {
				debug.SetWriter(e.stderr)
				debug.Enable()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, e, global, benchOpts, args)
		},
	}

	cmd.PersistentFlags().BoolVar(&global.debug, "debug", false, "Enable debug output")
	cmd.PersistentFlags().StringVar(&global.configPath, "config", "", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&global.cacheDir, "cache-dir", "", "Directory holding downloaded agents (default \"tracers\")")

	cmd.Flags().IntVar(&benchOpts.trials, "trials", 0, "Runs per agent version (default 10)")
	cmd.Flags().DurationVar(&benchOpts.timeout, "timeout", 0, "Kill a run after this long and count it as failed (default: wait forever)")
	cmd.Flags().StringVar(&benchOpts.format, "format", "", "Report format: csv, table or json (default \"csv\")")
	cmd.Flags().BoolVar(&benchOpts.skipFetch, "skip-fetch", false, "Benchmark the cache as is without downloading")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{msg: err.Error()}
	})
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(e.stdout)
	cmd.SetErr(e.stderr)

	cmd.AddCommand(newFetchCmd(e, global))
	cmd.AddCommand(newClassesCmd(e))
	cmd.AddCommand(newCacheCmd(e, global))
	cmd.AddCommand(newConfigCmd(e, global))

	return cmd
}

// run executes the CLI with args and returns the process exit code.
func run(ctx context.Context, args []string, e *env) int {
	cmd := newRootCmd(e)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return reporter.ExitOK
	}

	var uerr *usageError
	if errors.As(err, &uerr) {
		_, _ = fmt.Fprintln(e.stderr, uerr.msg) //nolint:errcheck
		return reporter.ExitUsage
	}

	report := reporter.NewErrorReporter("startupbench").Report(err)
	_, _ = fmt.Fprintln(e.stderr, report.Stderr) //nolint:errcheck
	return report.ExitCode
}

func main() {
	e, err := newEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(reporter.ExitError)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], e)
	stop()
	os.Exit(code)
}
