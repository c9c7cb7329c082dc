package bench

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/executor"
	"github.com/bebsworthy/startupbench/internal/jar/jartest"
)

type call struct {
	command string
	args    []string
	options executor.ExecOptions
}

// fakeExecutor replays scripted results and records every invocation.
type fakeExecutor struct {
	calls   []call
	results []*executor.ExecResult
	err     error
	onCall  func(n int)
}

func (f *fakeExecutor) ExecuteWithStreaming(_ context.Context, command string, args []string, options executor.ExecOptions, stdout, _ io.Writer) (*executor.ExecResult, error) {
	f.calls = append(f.calls, call{command: command, args: args, options: options})
	if f.onCall != nil {
		f.onCall(len(f.calls))
	}
	if f.err != nil {
		return nil, f.err
	}
	_, _ = io.WriteString(stdout, "loaded\n")
	if len(f.results) == 0 {
		return &executor.ExecResult{Duration: 100 * time.Millisecond}, nil
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r, nil
}

func cacheWith(t *testing.T, versions ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, v := range versions {
		jartest.Write(t, dir, "dd-java-agent-"+v+".jar", "datadog/trace/Agent.class")
	}
	return dir
}

func baseOptions(cacheDir string) Options {
	return Options{
		CacheDir:         cacheDir,
		TargetJar:        "/apps/app.jar",
		LoaderClasspath:  "/cache/loader/classes",
		Java:             "java",
		SystemProperties: []string{"dd.jmxfetch.enabled=false", "dd.profiling.enabled=false"},
		MainClass:        "startupbench.LoadClasses",
		Trials:           10,
	}
}

func TestRunner_Args(t *testing.T) {
	opts := baseOptions("")
	opts.JVMArgs = []string{"-Xmx256m"}
	r := NewRunner(opts, &fakeExecutor{})

	sep := string(os.PathListSeparator)
	assert.Equal(t, []string{
		"-javaagent:/cache/dd-java-agent-0.42.0.jar",
		"-Ddd.jmxfetch.enabled=false",
		"-Ddd.profiling.enabled=false",
		"-Xmx256m",
		"-cp", "/apps/app.jar" + sep + "/cache/loader/classes",
		"startupbench.LoadClasses",
	}, r.Args("/cache/dd-java-agent-0.42.0.jar"))
}

func TestRunner_RunsTrialsSequentiallyPerArtifact(t *testing.T) {
	dir := cacheWith(t, "0.10.0", "0.9.0")
	exec := &fakeExecutor{}

	var stdout, progress bytes.Buffer
	opts := baseOptions(dir)
	opts.Stdout = &stdout
	opts.Progress = &progress
	opts.TrialTimeout = 5 * time.Second

	results, err := NewRunner(opts, exec).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "0.9.0", results[0].Version)
	assert.Equal(t, "0.10.0", results[1].Version)
	assert.Equal(t, "/apps/app.jar", results[0].TargetJar)
	for _, r := range results {
		assert.Len(t, r.Durations, 10)
		assert.Equal(t, 0, r.Failures())
	}

	require.Len(t, exec.calls, 20)
	assert.Equal(t, "java", exec.calls[0].command)
	assert.Equal(t, "-javaagent:"+filepath.Join(dir, "dd-java-agent-0.9.0.jar"), exec.calls[0].args[0])
	assert.Equal(t, "-javaagent:"+filepath.Join(dir, "dd-java-agent-0.10.0.jar"), exec.calls[10].args[0])
	assert.Equal(t, 5*time.Second, exec.calls[0].options.Timeout)
	assert.True(t, exec.calls[0].options.InheritEnv)

	assert.Equal(t, 20, strings.Count(stdout.String(), "loaded\n"), "subprocess output is passed through")
	assert.Contains(t, progress.String(), "Running 10 trials with tracer 0.9.0")
}

func TestRunner_RecordsFailedTrials(t *testing.T) {
	dir := cacheWith(t, "0.42.0")
	exec := &fakeExecutor{results: []*executor.ExecResult{
		{ExitCode: 1, Duration: 50 * time.Millisecond},
		{ExitCode: -1, TimedOut: true, Duration: time.Second, Error: &executor.ExecError{Type: executor.ErrorTypeTimeout, Command: "java"}},
		{ExitCode: -1, Duration: time.Millisecond, Error: &executor.ExecError{Type: executor.ErrorTypeCommandNotFound, Command: "java"}},
	}}

	results, err := NewRunner(baseOptions(dir), exec).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 3, r.Failures())
	assert.Equal(t, []bool{true, true, true, false, false, false, false, false, false, false}, r.Failed)
	assert.Equal(t, time.Second, r.Durations[1], "duration is kept for a timed out trial")

	s := r.Summary(time.Millisecond)
	assert.Equal(t, 3, s.Failures)
	assert.Equal(t, 100.0, s.Mean)
}

func TestRunner_NoArtifacts(t *testing.T) {
	_, err := NewRunner(baseOptions(t.TempDir()), &fakeExecutor{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoArtifacts)

	_, err = NewRunner(baseOptions(filepath.Join(t.TempDir(), "missing")), &fakeExecutor{}).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoArtifacts)
}

func TestRunner_UnreadableArtifactIsFatal(t *testing.T) {
	dir := cacheWith(t, "0.40.0")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dd-java-agent-0.41.0.jar"), []byte("truncated"), 0600))
	exec := &fakeExecutor{}

	_, err := NewRunner(baseOptions(dir), exec).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreadable artifact")
	assert.Empty(t, exec.calls, "no trial may start before every artifact was checked")
}

func TestRunner_ExecutorErrorIsFatal(t *testing.T) {
	dir := cacheWith(t, "0.40.0")
	exec := &fakeExecutor{err: errors.New("command cannot be empty")}

	_, err := NewRunner(baseOptions(dir), exec).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0.40.0")
}

func TestRunner_Canceled(t *testing.T) {
	dir := cacheWith(t, "0.40.0", "0.41.0")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := &fakeExecutor{onCall: func(n int) {
		if n == 12 {
			cancel()
		}
	}}

	results, err := NewRunner(baseOptions(dir), exec).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1, "completed artifacts are returned")
	assert.Equal(t, "0.40.0", results[0].Version)
	assert.Len(t, exec.calls, 12)
}

func TestRunner_HostLoadWarning(t *testing.T) {
	dir := cacheWith(t, "0.40.0")
	var progress bytes.Buffer
	opts := baseOptions(dir)
	opts.Trials = 1
	opts.Progress = &progress

	samples := 0
	opts.HostLoad = func() (HostLoad, error) {
		samples++
		return HostLoad{Load1: 7.5, CPUs: 4}, nil
	}

	_, err := NewRunner(opts, &fakeExecutor{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, samples)
	assert.Contains(t, progress.String(), "Warning: host is busy (load 7.50 on 4 CPUs)")

	progress.Reset()
	opts.HostLoad = func() (HostLoad, error) { return HostLoad{}, errors.New("unsupported") }
	_, err = NewRunner(opts, &fakeExecutor{}).Run(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, progress.String(), "Warning")
}

func TestRunner_DebugTraceNumbersTrialsFromOne(t *testing.T) {
	var trace bytes.Buffer
	debug.SetWriter(&trace)
	debug.Enable()
	t.Cleanup(func() {
		debug.Disable()
		debug.SetWriter(os.Stderr)
	})

	dir := cacheWith(t, "0.40.0")
	opts := baseOptions(dir)
	opts.Trials = 2

	_, err := NewRunner(opts, &fakeExecutor{}).Run(context.Background())
	require.NoError(t, err)

	assert.Contains(t, trace.String(), "Trial 1 for 0.40.0:")
	assert.Contains(t, trace.String(), "Trial 2 for 0.40.0:")
	assert.NotContains(t, trace.String(), "Trial 3 for")
}
