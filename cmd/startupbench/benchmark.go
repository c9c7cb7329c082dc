package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bebsworthy/startupbench/internal/bench"
	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/loader"
	"github.com/bebsworthy/startupbench/internal/reporter"
	pkgconfig "github.com/bebsworthy/startupbench/pkg/config"
)

type benchOptions struct {
	trials    int
	timeout   time.Duration
	format    string
	skipFetch bool
}

// apply overrides cfg with the flags the user set explicitly.
func (o *benchOptions) apply(cmd *cobra.Command, cfg *pkgconfig.Config) {
	if cmd.Flags().Changed("trials") {
		cfg.Trials = o.trials
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TrialTimeout = int(o.timeout / time.Millisecond)
	}
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = o.format
	}
}

func runBenchmark(cmd *cobra.Command, e *env, global *globalOptions, opts *benchOptions, args []string) error {
	if len(args) == 0 {
		return usagef("%s", usageLine)
	}
	versions, err := parseVersionRange(args[1:])
	if err != nil {
		return err
	}
	targetJar := e.resolve(args[0])

	cfg, err := loadConfig(e, global)
	if err != nil {
		return err
	}
	versions.apply(cfg)
	opts.apply(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return usagef("invalid settings: %v", err)
	}
	if err := preflight(e, cfg, true); err != nil {
		return err
	}

	ctx := cmd.Context()

	if opts.skipFetch {
		debug.Log("Skipping fetch, benchmarking %s as is", cfg.CacheDir)
	} else {
		f, err := newFetcher(e, cfg)
		if err != nil {
			return err
		}
		if _, err := f.EnsureArtifacts(ctx, cfg.MinVersion, cfg.MaxVersion); err != nil {
			return err
		}
	}

	classpath := cfg.Java.LoaderClasspath
	if classpath == "" {
		classpath, err = loader.New(cfg.Java.Javac, cfg.Java.LoaderDir, e.exec).Prepare(ctx)
		if err != nil {
			return err
		}
	}

	runnerOpts := bench.Options{
		CacheDir:         cfg.CacheDir,
		TargetJar:        targetJar,
		LoaderClasspath:  classpath,
		WorkingDir:       e.workingDir,
		Java:             cfg.Java.Command,
		SystemProperties: cfg.Java.SystemProperties,
		JVMArgs:          cfg.Java.Args,
		MainClass:        cfg.Java.MainClass,
		Trials:           cfg.Trials,
		TrialTimeout:     cfg.TrialTimeoutDuration(),
		Stdout:           e.stdout,
		Stderr:           e.stderr,
		Progress:         e.stderr,
	}
	if cfg.HostCheck {
		runnerOpts.HostLoad = e.hostLoad
	}

	start := time.Now()
	results, runErr := bench.NewRunner(runnerOpts, e.exec).Run(ctx)
	debug.LogTiming("benchmark", time.Since(start))

	if len(results) > 0 {
		rows := reporter.Rows(results, cfg.Output.UnitDuration())
		reporter.Sort(rows)
		if err := reporter.Write(e.stdout, cfg.Output.Format, cfg.Output.Unit, rows); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return runErr
}
