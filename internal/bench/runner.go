// Package bench runs the startup benchmark: every cached agent artifact is
// attached to a fresh JVM a fixed number of times and each run is timed.
package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/executor"
	"github.com/bebsworthy/startupbench/internal/fetcher"
	"github.com/bebsworthy/startupbench/internal/jar"
)

// ErrNoArtifacts is returned when the cache directory holds no agent artifacts.
var ErrNoArtifacts = errors.New("no agent artifacts found")

// Executor runs a subprocess with its output streamed to the given writers.
type Executor interface {
	ExecuteWithStreaming(ctx context.Context, command string, args []string, options executor.ExecOptions, stdout, stderr io.Writer) (*executor.ExecResult, error)
}

// Options configures a Runner. Every value is explicit; the runner does not
// consult the process working directory or environment on its own.
type Options struct {
	// CacheDir is scanned for dd-java-agent-*.jar artifacts.
	CacheDir string
	// TargetJar is the application whose classes are loaded.
	TargetJar string
	// LoaderClasspath holds the compiled entry point.
	LoaderClasspath string
	// WorkingDir of each subprocess; empty inherits the current one.
	WorkingDir string

	Java             string
	SystemProperties []string
	JVMArgs          []string
	MainClass        string

	Trials int
	// TrialTimeout kills a trial that runs longer. Zero waits forever.
	TrialTimeout time.Duration

	// Stdout and Stderr receive the subprocess streams.
	Stdout io.Writer
	Stderr io.Writer
	// Progress receives runner status lines.
	Progress io.Writer

	// HostLoad samples system load before each artifact; nil disables the check.
	HostLoad LoadFunc
}

// Runner executes the trial loop.
type Runner struct {
	opts Options
	exec Executor
}

// NewRunner creates a runner. Nil writers discard their output.
func NewRunner(opts Options, exec Executor) *Runner {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Progress == nil {
		opts.Progress = io.Discard
	}
	return &Runner{opts: opts, exec: exec}
}

// Args returns the JVM arguments for a trial with the given agent artifact.
func (r *Runner) Args(artifact string) []string {
	args := make([]string, 0, len(r.opts.SystemProperties)+len(r.opts.JVMArgs)+4)
	args = append(args, "-javaagent:"+artifact)
	for _, prop := range r.opts.SystemProperties {
		args = append(args, "-D"+prop)
	}
	args = append(args, r.opts.JVMArgs...)
	args = append(args, "-cp", r.classpath(), r.opts.MainClass)
	return args
}

func (r *Runner) classpath() string {
	if r.opts.LoaderClasspath == "" {
		return r.opts.TargetJar
	}
	return r.opts.TargetJar + string(os.PathListSeparator) + r.opts.LoaderClasspath
}

// Run benchmarks every cached artifact in ascending version order. Trial
// failures are recorded in the results; only unreadable artifacts, invalid
// executor input and cancellation abort the run. On cancellation the
// results gathered so far are returned with the context error.
func (r *Runner) Run(ctx context.Context) ([]*TrialResult, error) {
	debug.LogSection("Benchmark")

	artifacts, err := fetcher.List(r.opts.CacheDir)
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoArtifacts, r.opts.CacheDir)
	}

	for _, a := range artifacts {
		entries, err := jar.Verify(a.Path)
		if err != nil {
			return nil, fmt.Errorf("unreadable artifact: %w", err)
		}
		debug.Log("Artifact %s has %d entries", a.Path, entries)
	}

	results := make([]*TrialResult, 0, len(artifacts))
	for _, a := range artifacts {
		r.checkHost()
		fprintf(r.opts.Progress, "Running %d trials with tracer %s\n", r.opts.Trials, a.Version)

		result, err := r.runArtifact(ctx, a)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

func (r *Runner) runArtifact(ctx context.Context, a fetcher.Artifact) (*TrialResult, error) {
	result := &TrialResult{
		Version:   a.Version.String(),
		Artifact:  a.Path,
		TargetJar: r.opts.TargetJar,
	}
	args := r.Args(a.Path)
	options := executor.ExecOptions{
		WorkingDir: r.opts.WorkingDir,
		Timeout:    r.opts.TrialTimeout,
		InheritEnv: true,
	}

	for i := 0; i < r.opts.Trials; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := r.exec.ExecuteWithStreaming(ctx, r.opts.Java, args, options, r.opts.Stdout, r.opts.Stderr)
		if err != nil {
			return nil, fmt.Errorf("failed to run trial for %s: %w", result.Version, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		failed := res.Failed()
		result.Add(res.Duration, failed)
		debug.LogTrial(result.Version, i, res.Duration, failed)
		if res.Error != nil {
			debug.LogError(res.Error, "trial "+result.Version)
		}
	}

	return result, nil
}

func (r *Runner) checkHost() {
	if r.opts.HostLoad == nil {
		return
	}
	h, err := r.opts.HostLoad()
	if err != nil {
		debug.LogError(err, "reading host load")
		return
	}
	debug.Log("Host %s", h)
	if h.Busy() {
		fprintf(r.opts.Progress, "Warning: host is busy (%s), timings may be unreliable\n", h)
	}
}

func fprintf(w io.Writer, format string, a ...interface{}) {
	_, _ = fmt.Fprintf(w, format, a...) //nolint:errcheck
}
